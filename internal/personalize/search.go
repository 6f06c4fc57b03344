package personalize

import (
	"sort"

	"github.com/scout-labs/tokscout/internal/domain"
)

// SearchEngine proposes ranked hashtags and preferred creators from a
// profile to drive the next scrape. All methods are pure read-only views:
// idempotent for a fixed profile, no mutation.
type SearchEngine struct {
	table    CategoryTable
	tagOwner map[string]string
}

// NewSearchEngine creates a SearchEngine over the given category table.
func NewSearchEngine(table CategoryTable) *SearchEngine {
	return &SearchEngine{
		table:    table,
		tagOwner: table.hashtagIndex(),
	}
}

// GenerateHashtags returns the profile's hashtags ranked by frequency
// descending, ties broken by the category affinity of the hashtag's owning
// category, then lexicographically for determinism. A limit <= 0 returns the
// full ranking.
func (e *SearchEngine) GenerateHashtags(profile *domain.PreferenceProfile, limit int) []string {
	if profile == nil || len(profile.HashtagFreq) == 0 {
		return nil
	}

	tags := make([]string, 0, len(profile.HashtagFreq))
	for tag := range profile.HashtagFreq {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		fi, fj := profile.HashtagFreq[tags[i]], profile.HashtagFreq[tags[j]]
		if fi != fj {
			return fi > fj
		}
		ai, aj := e.categoryAffinity(profile, tags[i]), e.categoryAffinity(profile, tags[j])
		if ai != aj {
			return ai > aj
		}
		return tags[i] < tags[j]
	})

	if limit > 0 && len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}

// PreferredCreators returns creator IDs ranked by liked-video frequency
// descending, ties broken lexicographically. A limit <= 0 returns all.
func (e *SearchEngine) PreferredCreators(profile *domain.PreferenceProfile, limit int) []string {
	if profile == nil || len(profile.CreatorFreq) == 0 {
		return nil
	}

	creators := make([]string, 0, len(profile.CreatorFreq))
	for id := range profile.CreatorFreq {
		creators = append(creators, id)
	}
	sort.Slice(creators, func(i, j int) bool {
		fi, fj := profile.CreatorFreq[creators[i]], profile.CreatorFreq[creators[j]]
		if fi != fj {
			return fi > fj
		}
		return creators[i] < creators[j]
	})

	if limit > 0 && len(creators) > limit {
		creators = creators[:limit]
	}
	return creators
}

// categoryAffinity returns the profile's affinity for the category owning
// the hashtag, or 0 when the hashtag belongs to no tracked category.
func (e *SearchEngine) categoryAffinity(profile *domain.PreferenceProfile, tag string) float64 {
	owner, ok := e.tagOwner[tag]
	if !ok {
		return 0
	}
	return profile.CategoryScores[owner]
}
