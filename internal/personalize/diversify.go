package personalize

import (
	"math/rand"
	"time"

	"github.com/scout-labs/tokscout/internal/domain"
)

// Shuffler randomizes hashtag ordering within equal-priority buckets.
// *math/rand.Rand satisfies it; tests inject a seeded source so
// diversification stays reproducible.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Diversifier returns fresh ranked hashtag sets across retry attempts within
// one search session, avoiding hashtags the session already consumed.
//
// The used set is owned by the calling session: the caller must add every
// hashtag actually consumed in an attempt before the next retry invocation.
// The Diversifier only reads it.
type Diversifier struct {
	engine   *SearchEngine
	popularK int
	shuffler Shuffler
}

// NewDiversifier creates a Diversifier. popularK bounds the "popular" band
// of the profile's hashtag ranking; everything below it counts as niche and
// is preferred on retries.
func NewDiversifier(engine *SearchEngine, popularK int, shuffler Shuffler) *Diversifier {
	if popularK <= 0 {
		popularK = 7
	}
	if shuffler == nil {
		shuffler = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Diversifier{
		engine:   engine,
		popularK: popularK,
		shuffler: shuffler,
	}
}

// Diversify returns up to limit hashtags for the given retry attempt.
//
// Attempt 0 returns the search engine's top-ranked hashtags regardless of
// the used set: popular, high-confidence tags first. Later attempts exclude
// every used hashtag and rank niche tags (outside the profile's top-K) ahead
// of the remaining popular ones, shuffling within each band so similar
// profiles do not repeat across sessions. Fewer survivors than limit are
// returned as-is; none at all yields an empty slice and the caller decides
// whether to relax exclusion.
func (d *Diversifier) Diversify(profile *domain.PreferenceProfile, used map[string]struct{}, attempt, limit int) []string {
	if attempt <= 0 {
		return d.engine.GenerateHashtags(profile, limit)
	}

	ranked := d.engine.GenerateHashtags(profile, 0)
	popular := make(map[string]struct{}, d.popularK)
	for i, tag := range ranked {
		if i >= d.popularK {
			break
		}
		popular[tag] = struct{}{}
	}

	var niche, fallback []string
	for _, tag := range ranked {
		if _, consumed := used[tag]; consumed {
			continue
		}
		if _, pop := popular[tag]; pop {
			fallback = append(fallback, tag)
		} else {
			niche = append(niche, tag)
		}
	}

	d.shuffler.Shuffle(len(niche), func(i, j int) { niche[i], niche[j] = niche[j], niche[i] })
	d.shuffler.Shuffle(len(fallback), func(i, j int) { fallback[i], fallback[j] = fallback[j], fallback[i] })

	out := append(niche, fallback...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
