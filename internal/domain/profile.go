package domain

import (
	"fmt"
	"time"
)

// EngagementStats holds running means over the engagement metrics of every
// liked video folded into a profile.
type EngagementStats struct {
	AvgLikes    float64
	AvgViews    float64
	AvgComments float64
	AvgShares   float64
	AvgRate     float64 // mean of per-video likes/views ratios
}

// Combine merges two running means weighted by their sample counts.
// Commutative and associative up to floating rounding.
func (s EngagementStats) Combine(n int64, other EngagementStats, otherN int64) EngagementStats {
	total := n + otherN
	if total == 0 {
		return EngagementStats{}
	}
	w := func(a, b float64) float64 {
		return (a*float64(n) + b*float64(otherN)) / float64(total)
	}
	return EngagementStats{
		AvgLikes:    w(s.AvgLikes, other.AvgLikes),
		AvgViews:    w(s.AvgViews, other.AvgViews),
		AvgComments: w(s.AvgComments, other.AvgComments),
		AvgShares:   w(s.AvgShares, other.AvgShares),
		AvgRate:     w(s.AvgRate, other.AvgRate),
	}
}

// PreferenceProfile is the aggregated record of a user's inferred content
// preferences derived from their liked-video history. It is a pure
// accumulation: entries are only ever added, never removed, except through
// an explicit Reset.
type PreferenceProfile struct {
	HashtagFreq    map[string]int64
	KeywordFreq    map[string]int64
	CreatorFreq    map[string]int64
	CategoryScores map[string]float64
	Engagement     EngagementStats
	AnalyzedIDs    map[string]struct{}
	SampleCount    int64
	LastUpdated    time.Time
}

// NewPreferenceProfile returns an empty profile with all tables allocated.
func NewPreferenceProfile() *PreferenceProfile {
	return &PreferenceProfile{
		HashtagFreq:    make(map[string]int64),
		KeywordFreq:    make(map[string]int64),
		CreatorFreq:    make(map[string]int64),
		CategoryScores: make(map[string]float64),
		AnalyzedIDs:    make(map[string]struct{}),
	}
}

// IsEmpty reports whether no videos have been folded into the profile.
func (p *PreferenceProfile) IsEmpty() bool {
	return p == nil || p.SampleCount == 0
}

// Analyzed reports whether the given video ID has already been folded in.
func (p *PreferenceProfile) Analyzed(videoID string) bool {
	if p == nil || p.AnalyzedIDs == nil {
		return false
	}
	_, ok := p.AnalyzedIDs[videoID]
	return ok
}

// Merge folds another profile into this one. Frequency tables and sample
// counts sum, engagement means recombine weighted by sample counts, analyzed
// ID sets union. Merging delta profiles is commutative and associative per
// field, so batches may be folded in any grouping with the same result.
func (p *PreferenceProfile) Merge(other *PreferenceProfile) {
	if other == nil || other.SampleCount == 0 && len(other.AnalyzedIDs) == 0 {
		return
	}
	for tag, n := range other.HashtagFreq {
		p.HashtagFreq[tag] += n
	}
	for word, n := range other.KeywordFreq {
		p.KeywordFreq[word] += n
	}
	for creator, n := range other.CreatorFreq {
		p.CreatorFreq[creator] += n
	}
	for category, score := range other.CategoryScores {
		p.CategoryScores[category] += score
	}
	p.Engagement = p.Engagement.Combine(p.SampleCount, other.Engagement, other.SampleCount)
	for id := range other.AnalyzedIDs {
		p.AnalyzedIDs[id] = struct{}{}
	}
	p.SampleCount += other.SampleCount
	if other.LastUpdated.After(p.LastUpdated) {
		p.LastUpdated = other.LastUpdated
	}
}

// Clone returns a deep copy safe for concurrent read-only use.
func (p *PreferenceProfile) Clone() *PreferenceProfile {
	if p == nil {
		return NewPreferenceProfile()
	}
	c := NewPreferenceProfile()
	for tag, n := range p.HashtagFreq {
		c.HashtagFreq[tag] = n
	}
	for word, n := range p.KeywordFreq {
		c.KeywordFreq[word] = n
	}
	for creator, n := range p.CreatorFreq {
		c.CreatorFreq[creator] = n
	}
	for category, score := range p.CategoryScores {
		c.CategoryScores[category] = score
	}
	c.Engagement = p.Engagement
	for id := range p.AnalyzedIDs {
		c.AnalyzedIDs[id] = struct{}{}
	}
	c.SampleCount = p.SampleCount
	c.LastUpdated = p.LastUpdated
	return c
}

// Reset clears all accumulated state. This is the only way entries leave
// a profile.
func (p *PreferenceProfile) Reset() {
	p.HashtagFreq = make(map[string]int64)
	p.KeywordFreq = make(map[string]int64)
	p.CreatorFreq = make(map[string]int64)
	p.CategoryScores = make(map[string]float64)
	p.Engagement = EngagementStats{}
	p.AnalyzedIDs = make(map[string]struct{})
	p.SampleCount = 0
	p.LastUpdated = time.Time{}
}

// ValidateProfile validates a PreferenceProfile instance against the
// accumulation invariants.
func ValidateProfile(p *PreferenceProfile) error {
	if p == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if p.SampleCount < 0 {
		return fmt.Errorf("profile SampleCount must be non-negative")
	}
	for tag, n := range p.HashtagFreq {
		if n < 0 {
			return fmt.Errorf("profile hashtag frequency for %q is negative", tag)
		}
	}
	for word, n := range p.KeywordFreq {
		if n < 0 {
			return fmt.Errorf("profile keyword frequency for %q is negative", word)
		}
	}
	for creator, n := range p.CreatorFreq {
		if n < 0 {
			return fmt.Errorf("profile creator frequency for %q is negative", creator)
		}
	}
	for category, score := range p.CategoryScores {
		if score < 0 {
			return fmt.Errorf("profile category score for %q is negative", category)
		}
	}
	return nil
}
