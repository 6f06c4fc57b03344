package personalize

import (
	"math"
	"sort"

	"github.com/scout-labs/tokscout/internal/domain"
)

// Weights configures the contribution of each sub-score to the final
// preference score. Validated once at startup; must sum to 1.0.
type Weights struct {
	Hashtag    float64
	Keyword    float64
	Creator    float64
	Category   float64
	Engagement float64
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{
		Hashtag:    0.30,
		Keyword:    0.25,
		Creator:    0.20,
		Category:   0.15,
		Engagement: 0.10,
	}
}

const weightSumTolerance = 1e-6

// Validate checks that all weights are non-negative and sum to 1.0.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Hashtag, w.Keyword, w.Creator, w.Category, w.Engagement} {
		if v < 0 {
			return domain.ErrWeightsInvalid
		}
	}
	sum := w.Hashtag + w.Keyword + w.Creator + w.Category + w.Engagement
	if math.Abs(sum-1.0) > weightSumTolerance {
		return domain.ErrWeightsInvalid
	}
	return nil
}

// BaselineFilter is the non-personalized minimum-quality gate applied before
// personalization scoring.
type BaselineFilter interface {
	Passes(video *domain.CandidateVideo) bool
}

// Scorer computes weighted [0,1] preference scores for candidate videos
// against a profile. Score is pure and deterministic; candidates with
// missing fields contribute zero for the affected sub-scores and never fail
// the whole batch.
type Scorer struct {
	extractor   *Extractor
	weights     Weights
	topCreators int
	baseline    BaselineFilter
}

// NewScorer creates a Scorer. topCreators bounds the creator set that earns
// a full creator_match; baseline may be nil, which disables the pre-filter.
func NewScorer(extractor *Extractor, weights Weights, topCreators int, baseline BaselineFilter) *Scorer {
	if topCreators <= 0 {
		topCreators = 10
	}
	return &Scorer{
		extractor:   extractor,
		weights:     weights,
		topCreators: topCreators,
		baseline:    baseline,
	}
}

// Score returns the weighted preference score in [0,1]. An empty profile
// yields a neutral 0.5 so fresh users are not starved of results.
func (s *Scorer) Score(profile *domain.PreferenceProfile, video *domain.CandidateVideo) float64 {
	if video == nil {
		return 0
	}
	if profile.IsEmpty() {
		return 0.5
	}

	features := s.extractor.Extract(video)

	score := s.weights.Hashtag*overlapScore(features.Hashtags, profile.HashtagFreq) +
		s.weights.Keyword*overlapScore(features.Keywords, profile.KeywordFreq) +
		s.weights.Creator*s.creatorScore(profile, video.AuthorID) +
		s.weights.Category*categoryScore(profile, features.Category) +
		s.weights.Engagement*engagementScore(profile.Engagement, video)

	return clamp01(score)
}

// PassesFilters applies the baseline gate and the personalization threshold.
// Both must pass. The score is always computed so the caller can report it
// even for rejected candidates.
func (s *Scorer) PassesFilters(profile *domain.PreferenceProfile, video *domain.CandidateVideo, threshold float64) (bool, float64) {
	score := s.Score(profile, video)
	if s.baseline != nil && !s.baseline.Passes(video) {
		return false, score
	}
	if score < threshold {
		return false, score
	}
	return true, score
}

// Rank scores every candidate, keeps the passing ones, and sorts descending
// by score. The sort is stable: ties preserve original relative order.
func (s *Scorer) Rank(profile *domain.PreferenceProfile, videos []domain.CandidateVideo, threshold float64) []domain.ScoredCandidate {
	scored := make([]domain.ScoredCandidate, 0, len(videos))
	for i := range videos {
		passes, score := s.PassesFilters(profile, &videos[i], threshold)
		if !passes {
			continue
		}
		scored = append(scored, domain.ScoredCandidate{
			Video:           videos[i],
			PreferenceScore: score,
			PassesFilter:    true,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].PreferenceScore > scored[j].PreferenceScore
	})
	return scored
}

// overlapScore is the fraction of the candidate's tokens present in the
// profile's frequency table: |tokens ∩ keys| / max(1, |tokens|).
func overlapScore(tokens []string, freq map[string]int64) float64 {
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, tok := range tokens {
		if freq[tok] > 0 {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// creatorScore is 1.0 for creators in the profile's top-N, a frequency-
// decayed fraction for creators liked less often, 0 for unknown creators.
func (s *Scorer) creatorScore(profile *domain.PreferenceProfile, authorID string) float64 {
	if authorID == "" {
		return 0
	}
	count := profile.CreatorFreq[authorID]
	if count <= 0 {
		return 0
	}

	var maxCount int64
	rank := 0
	for id, n := range profile.CreatorFreq {
		if n > maxCount {
			maxCount = n
		}
		if n > count || (n == count && id < authorID) {
			rank++
		}
	}
	if rank < s.topCreators {
		return 1.0
	}
	return float64(count) / float64(maxCount)
}

// categoryScore normalizes the matched category's affinity against the
// profile's strongest category.
func categoryScore(profile *domain.PreferenceProfile, category string) float64 {
	if category == "" {
		return 0
	}
	affinity, ok := profile.CategoryScores[category]
	if !ok || affinity <= 0 {
		return 0
	}
	var maxAffinity float64
	for _, a := range profile.CategoryScores {
		if a > maxAffinity {
			maxAffinity = a
		}
	}
	return affinity / maxAffinity
}

// engagementScore measures closeness of the candidate's engagement numbers
// to the profile's running means: 1 − normalized absolute difference per
// metric, averaged over the metrics the profile tracks, clamped to [0,1].
func engagementScore(stats domain.EngagementStats, video *domain.CandidateVideo) float64 {
	type metric struct {
		mean  float64
		value float64
	}
	metrics := []metric{
		{stats.AvgLikes, float64(video.Likes)},
		{stats.AvgViews, float64(video.Views)},
		{stats.AvgRate, video.EngagementRate()},
	}

	var sum float64
	tracked := 0
	for _, m := range metrics {
		if m.mean <= 0 {
			continue
		}
		diff := math.Abs(m.value-m.mean) / math.Max(m.mean, m.value)
		sum += 1 - clamp01(diff)
		tracked++
	}
	if tracked == 0 {
		return 0
	}
	return clamp01(sum / float64(tracked))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
