package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPreferenceProfile(t *testing.T) {
	p := NewPreferenceProfile()

	assert.NotNil(t, p.HashtagFreq)
	assert.NotNil(t, p.KeywordFreq)
	assert.NotNil(t, p.CreatorFreq)
	assert.NotNil(t, p.CategoryScores)
	assert.NotNil(t, p.AnalyzedIDs)
	assert.True(t, p.IsEmpty())
}

func TestPreferenceProfile_Merge(t *testing.T) {
	a := NewPreferenceProfile()
	a.HashtagFreq["fyp"] = 3
	a.KeywordFreq["mixing"] = 2
	a.CreatorFreq["chef_anna"] = 1
	a.CategoryScores["food"] = 2
	a.Engagement = EngagementStats{AvgLikes: 100, AvgViews: 1000, AvgRate: 0.1}
	a.AnalyzedIDs["v1"] = struct{}{}
	a.SampleCount = 2
	a.LastUpdated = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	b := NewPreferenceProfile()
	b.HashtagFreq["fyp"] = 1
	b.HashtagFreq["viral"] = 4
	b.CreatorFreq["chef_anna"] = 2
	b.CategoryScores["food"] = 1
	b.Engagement = EngagementStats{AvgLikes: 400, AvgViews: 4000, AvgRate: 0.1}
	b.AnalyzedIDs["v2"] = struct{}{}
	b.SampleCount = 2
	b.LastUpdated = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	a.Merge(b)

	assert.Equal(t, int64(4), a.HashtagFreq["fyp"])
	assert.Equal(t, int64(4), a.HashtagFreq["viral"])
	assert.Equal(t, int64(3), a.CreatorFreq["chef_anna"])
	assert.InDelta(t, 3.0, a.CategoryScores["food"], 1e-9)
	assert.Equal(t, int64(4), a.SampleCount)
	assert.Len(t, a.AnalyzedIDs, 2)
	assert.Equal(t, b.LastUpdated, a.LastUpdated)

	// Combined means are weighted by sample counts.
	assert.InDelta(t, 250.0, a.Engagement.AvgLikes, 1e-9)
	assert.InDelta(t, 2500.0, a.Engagement.AvgViews, 1e-9)
	assert.InDelta(t, 0.1, a.Engagement.AvgRate, 1e-9)
}

func TestPreferenceProfile_MergeAssociativity(t *testing.T) {
	delta := func(tag string, likes float64, id string) *PreferenceProfile {
		d := NewPreferenceProfile()
		d.HashtagFreq[tag] = 1
		d.Engagement = EngagementStats{AvgLikes: likes}
		d.AnalyzedIDs[id] = struct{}{}
		d.SampleCount = 1
		return d
	}

	// (a+b)+c
	left := NewPreferenceProfile()
	left.Merge(delta("fyp", 10, "v1"))
	left.Merge(delta("viral", 40, "v2"))
	left.Merge(delta("fyp", 70, "v3"))

	// a+(b+c)
	bc := delta("viral", 40, "v2")
	bc.Merge(delta("fyp", 70, "v3"))
	right := NewPreferenceProfile()
	right.Merge(delta("fyp", 10, "v1"))
	right.Merge(bc)

	assert.Equal(t, left.HashtagFreq, right.HashtagFreq)
	assert.Equal(t, left.SampleCount, right.SampleCount)
	assert.InDelta(t, left.Engagement.AvgLikes, right.Engagement.AvgLikes, 1e-9)
	assert.InDelta(t, 40.0, left.Engagement.AvgLikes, 1e-9)
}

func TestPreferenceProfile_MergeEmptyIsNoOp(t *testing.T) {
	p := NewPreferenceProfile()
	p.HashtagFreq["fyp"] = 5
	p.SampleCount = 3
	p.Engagement = EngagementStats{AvgLikes: 12}

	p.Merge(NewPreferenceProfile())
	p.Merge(nil)

	assert.Equal(t, int64(5), p.HashtagFreq["fyp"])
	assert.Equal(t, int64(3), p.SampleCount)
	assert.InDelta(t, 12.0, p.Engagement.AvgLikes, 1e-9)
}

func TestPreferenceProfile_Clone(t *testing.T) {
	p := NewPreferenceProfile()
	p.HashtagFreq["fyp"] = 5
	p.AnalyzedIDs["v1"] = struct{}{}
	p.SampleCount = 1

	c := p.Clone()
	c.HashtagFreq["fyp"] = 99
	c.AnalyzedIDs["v2"] = struct{}{}

	assert.Equal(t, int64(5), p.HashtagFreq["fyp"])
	assert.Len(t, p.AnalyzedIDs, 1)
	assert.True(t, p.Analyzed("v1"))
	assert.False(t, p.Analyzed("v2"))
}

func TestPreferenceProfile_Reset(t *testing.T) {
	p := NewPreferenceProfile()
	p.HashtagFreq["fyp"] = 5
	p.KeywordFreq["mixing"] = 2
	p.SampleCount = 4
	p.LastUpdated = time.Now()

	p.Reset()

	assert.True(t, p.IsEmpty())
	assert.Empty(t, p.HashtagFreq)
	assert.Empty(t, p.KeywordFreq)
	assert.True(t, p.LastUpdated.IsZero())
}

func TestEngagementStats_Combine(t *testing.T) {
	tests := []struct {
		name     string
		a        EngagementStats
		an       int64
		b        EngagementStats
		bn       int64
		expected EngagementStats
	}{
		{
			name:     "equal weights",
			a:        EngagementStats{AvgLikes: 10},
			an:       1,
			b:        EngagementStats{AvgLikes: 30},
			bn:       1,
			expected: EngagementStats{AvgLikes: 20},
		},
		{
			name:     "unequal weights",
			a:        EngagementStats{AvgViews: 100},
			an:       3,
			b:        EngagementStats{AvgViews: 500},
			bn:       1,
			expected: EngagementStats{AvgViews: 200},
		},
		{
			name:     "both empty",
			a:        EngagementStats{},
			an:       0,
			b:        EngagementStats{},
			bn:       0,
			expected: EngagementStats{},
		},
		{
			name:     "one side empty",
			a:        EngagementStats{},
			an:       0,
			b:        EngagementStats{AvgLikes: 42, AvgRate: 0.05},
			bn:       2,
			expected: EngagementStats{AvgLikes: 42, AvgRate: 0.05},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Combine(tt.an, tt.b, tt.bn)
			assert.InDelta(t, tt.expected.AvgLikes, got.AvgLikes, 1e-9)
			assert.InDelta(t, tt.expected.AvgViews, got.AvgViews, 1e-9)
			assert.InDelta(t, tt.expected.AvgComments, got.AvgComments, 1e-9)
			assert.InDelta(t, tt.expected.AvgRate, got.AvgRate, 1e-9)
		})
	}
}

func TestValidateProfile(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PreferenceProfile)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid profile",
			mutate: func(p *PreferenceProfile) { p.HashtagFreq["fyp"] = 1 },
		},
		{
			name:    "negative sample count",
			mutate:  func(p *PreferenceProfile) { p.SampleCount = -1 },
			wantErr: true,
			errMsg:  "SampleCount",
		},
		{
			name:    "negative hashtag frequency",
			mutate:  func(p *PreferenceProfile) { p.HashtagFreq["fyp"] = -2 },
			wantErr: true,
			errMsg:  "hashtag",
		},
		{
			name:    "negative category score",
			mutate:  func(p *PreferenceProfile) { p.CategoryScores["food"] = -0.5 },
			wantErr: true,
			errMsg:  "category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPreferenceProfile()
			tt.mutate(p)
			err := ValidateProfile(p)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}

	t.Run("nil profile", func(t *testing.T) {
		require.Error(t, ValidateProfile(nil))
	})
}
