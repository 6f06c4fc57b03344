package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotProfile() *PreferenceProfile {
	p := NewPreferenceProfile()
	p.HashtagFreq["cooking"] = 12
	p.HashtagFreq["fyp"] = 40
	p.KeywordFreq["pasta"] = 7
	p.CreatorFreq["chef_anna"] = 5
	p.CategoryScores["food"] = 12.0
	p.Engagement = EngagementStats{AvgLikes: 1500, AvgViews: 30000, AvgComments: 45, AvgShares: 80, AvgRate: 0.05}
	p.AnalyzedIDs["v1"] = struct{}{}
	p.AnalyzedIDs["v2"] = struct{}{}
	p.SampleCount = 40
	p.LastUpdated = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return p
}

func TestEncodeDecodeProfile_RoundTrip(t *testing.T) {
	original := snapshotProfile()

	data, err := EncodeProfile(original)
	require.NoError(t, err)

	decoded, err := DecodeProfile(data)
	require.NoError(t, err)

	assert.Equal(t, original.HashtagFreq, decoded.HashtagFreq)
	assert.Equal(t, original.KeywordFreq, decoded.KeywordFreq)
	assert.Equal(t, original.CreatorFreq, decoded.CreatorFreq)
	assert.Equal(t, original.CategoryScores, decoded.CategoryScores)
	assert.Equal(t, original.Engagement, decoded.Engagement)
	assert.Equal(t, original.AnalyzedIDs, decoded.AnalyzedIDs)
	assert.Equal(t, original.SampleCount, decoded.SampleCount)
	assert.True(t, original.LastUpdated.Equal(decoded.LastUpdated))
}

func TestEncodeProfile_Deterministic(t *testing.T) {
	p := snapshotProfile()

	first, err := EncodeProfile(p)
	require.NoError(t, err)
	second, err := EncodeProfile(p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEncodeProfile_NilProfile(t *testing.T) {
	_, err := EncodeProfile(nil)
	assert.Error(t, err)
}

func TestDecodeProfile_EmptySnapshot(t *testing.T) {
	data, err := EncodeProfile(NewPreferenceProfile())
	require.NoError(t, err)

	decoded, err := DecodeProfile(data)
	require.NoError(t, err)

	assert.True(t, decoded.IsEmpty())
	assert.NotNil(t, decoded.HashtagFreq)
	assert.NotNil(t, decoded.AnalyzedIDs)
}

func TestDecodeProfile_Malformed(t *testing.T) {
	_, err := DecodeProfile([]byte("{not json"))
	assert.Error(t, err)
}

func TestDecodeProfile_RejectsNegativeCounts(t *testing.T) {
	_, err := DecodeProfile([]byte(`{"hashtags":{"fyp":-1},"sample_count":1}`))
	assert.Error(t, err)
}
