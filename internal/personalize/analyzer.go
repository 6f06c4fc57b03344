package personalize

import (
	"time"

	"github.com/scout-labs/tokscout/internal/domain"
)

// Analyzer folds batches of liked videos into preference profile deltas.
// Deltas merge into persisted profiles via domain.PreferenceProfile.Merge,
// which keeps incremental re-analysis commutative and associative.
type Analyzer struct {
	extractor      *Extractor
	categoryWeight float64
	now            func() time.Time
}

// NewAnalyzer creates an Analyzer. categoryWeight is the affinity added to
// a video's matched category; 1.0 reproduces simple occurrence counting.
func NewAnalyzer(extractor *Extractor, categoryWeight float64) *Analyzer {
	if categoryWeight <= 0 {
		categoryWeight = 1.0
	}
	return &Analyzer{
		extractor:      extractor,
		categoryWeight: categoryWeight,
		now:            time.Now,
	}
}

// Analyze builds a delta profile from a batch of liked videos. Videos already
// present in prior (by ID) are skipped, as are in-batch duplicates, so the
// resulting delta can be merged into prior without double counting. An empty
// batch yields an empty delta; Analyze never errors.
func (a *Analyzer) Analyze(videos []domain.CandidateVideo, prior *domain.PreferenceProfile) *domain.PreferenceProfile {
	delta := domain.NewPreferenceProfile()

	for i := range videos {
		v := &videos[i]
		if v.ID == "" || prior.Analyzed(v.ID) || delta.Analyzed(v.ID) {
			continue
		}

		features := a.extractor.Extract(v)
		for _, tag := range features.Hashtags {
			delta.HashtagFreq[tag]++
		}
		for _, word := range features.Keywords {
			delta.KeywordFreq[word]++
		}
		if v.AuthorID != "" {
			delta.CreatorFreq[v.AuthorID]++
		}
		if features.Category != "" {
			delta.CategoryScores[features.Category] += a.categoryWeight
		}

		// Incremental running means: no per-video history is retained.
		n := delta.SampleCount
		delta.Engagement = delta.Engagement.Combine(n, domain.EngagementStats{
			AvgLikes:    float64(v.Likes),
			AvgViews:    float64(v.Views),
			AvgComments: float64(v.Comments),
			AvgShares:   float64(v.Shares),
			AvgRate:     v.EngagementRate(),
		}, 1)

		delta.AnalyzedIDs[v.ID] = struct{}{}
		delta.SampleCount++
	}

	if delta.SampleCount > 0 {
		delta.LastUpdated = a.now().UTC()
	}
	return delta
}
