package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// profileSnapshot is the serialized form of a PreferenceProfile, used both
// for the JSONB database column and for exported snapshot files.
type profileSnapshot struct {
	Hashtags    map[string]int64   `json:"hashtags,omitempty"`
	Keywords    map[string]int64   `json:"keywords,omitempty"`
	Creators    map[string]int64   `json:"creators,omitempty"`
	Categories  map[string]float64 `json:"categories,omitempty"`
	Engagement  engagementSnapshot `json:"engagement"`
	AnalyzedIDs []string           `json:"analyzed_ids,omitempty"`
	SampleCount int64              `json:"sample_count"`
	LastUpdated time.Time          `json:"last_updated"`
}

type engagementSnapshot struct {
	AvgLikes    float64 `json:"avg_likes"`
	AvgViews    float64 `json:"avg_views"`
	AvgComments float64 `json:"avg_comments"`
	AvgShares   float64 `json:"avg_shares"`
	AvgRate     float64 `json:"avg_rate"`
}

// EncodeProfile serializes a profile. Analyzed IDs are sorted so the output
// is deterministic for a given profile.
func EncodeProfile(p *PreferenceProfile) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("profile cannot be nil")
	}

	ids := make([]string, 0, len(p.AnalyzedIDs))
	for id := range p.AnalyzedIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	snap := profileSnapshot{
		Hashtags:   p.HashtagFreq,
		Keywords:   p.KeywordFreq,
		Creators:   p.CreatorFreq,
		Categories: p.CategoryScores,
		Engagement: engagementSnapshot{
			AvgLikes:    p.Engagement.AvgLikes,
			AvgViews:    p.Engagement.AvgViews,
			AvgComments: p.Engagement.AvgComments,
			AvgShares:   p.Engagement.AvgShares,
			AvgRate:     p.Engagement.AvgRate,
		},
		AnalyzedIDs: ids,
		SampleCount: p.SampleCount,
		LastUpdated: p.LastUpdated.UTC(),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile snapshot: %w", err)
	}
	return data, nil
}

// DecodeProfile deserializes a profile snapshot produced by EncodeProfile.
// The returned profile always has all tables allocated.
func DecodeProfile(data []byte) (*PreferenceProfile, error) {
	var snap profileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode profile snapshot: %w", err)
	}

	p := NewPreferenceProfile()
	for tag, n := range snap.Hashtags {
		p.HashtagFreq[tag] = n
	}
	for word, n := range snap.Keywords {
		p.KeywordFreq[word] = n
	}
	for creator, n := range snap.Creators {
		p.CreatorFreq[creator] = n
	}
	for category, score := range snap.Categories {
		p.CategoryScores[category] = score
	}
	p.Engagement = EngagementStats{
		AvgLikes:    snap.Engagement.AvgLikes,
		AvgViews:    snap.Engagement.AvgViews,
		AvgComments: snap.Engagement.AvgComments,
		AvgShares:   snap.Engagement.AvgShares,
		AvgRate:     snap.Engagement.AvgRate,
	}
	for _, id := range snap.AnalyzedIDs {
		p.AnalyzedIDs[id] = struct{}{}
	}
	p.SampleCount = snap.SampleCount
	p.LastUpdated = snap.LastUpdated

	if err := ValidateProfile(p); err != nil {
		return nil, fmt.Errorf("decoded profile snapshot is invalid: %w", err)
	}
	return p, nil
}
