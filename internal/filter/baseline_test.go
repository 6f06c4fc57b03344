package filter

import (
	"strings"
	"testing"

	"github.com/scout-labs/tokscout/internal/domain"
	"github.com/stretchr/testify/assert"
)

func passingVideo() *domain.CandidateVideo {
	return &domain.CandidateVideo{
		ID:       "v1",
		Caption:  strings.Repeat("a great caption ", 10),
		Likes:    5000,
		Views:    100000,
		Shares:   200,
		Comments: 100,
	}
}

func TestBaseline_PassesTrend(t *testing.T) {
	b := DefaultBaseline()

	tests := []struct {
		name     string
		mutate   func(*domain.CandidateVideo)
		expected bool
	}{
		{"all thresholds met", func(v *domain.CandidateVideo) {}, true},
		{"too few likes", func(v *domain.CandidateVideo) { v.Likes = 999 }, false},
		{"too few views", func(v *domain.CandidateVideo) { v.Views = 9999; v.Likes = 1000 }, false},
		{"too few shares", func(v *domain.CandidateVideo) { v.Shares = 49 }, false},
		{"too few comments", func(v *domain.CandidateVideo) { v.Comments = 19 }, false},
		{"engagement rate too low", func(v *domain.CandidateVideo) { v.Likes = 1000; v.Views = 200000 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := passingVideo()
			tt.mutate(v)
			assert.Equal(t, tt.expected, b.PassesTrend(v))
		})
	}

	t.Run("nil video", func(t *testing.T) {
		assert.False(t, b.PassesTrend(nil))
	})
}

func TestBaseline_PassesContent(t *testing.T) {
	b := DefaultBaseline()

	tests := []struct {
		name     string
		caption  string
		expected bool
	}{
		{"long clean caption", strings.Repeat("cooking tips ", 10), true},
		{"too short", "short", false},
		{"excluded keyword", strings.Repeat("x", 90) + " sponsored post", false},
		{"excluded keyword case-insensitive", strings.Repeat("x", 90) + " SPONSORED post", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := passingVideo()
			v.Caption = tt.caption
			assert.Equal(t, tt.expected, b.PassesContent(v))
		})
	}
}

func TestBaseline_Passes(t *testing.T) {
	b := DefaultBaseline()

	assert.True(t, b.Passes(passingVideo()))

	failing := passingVideo()
	failing.Likes = 0
	assert.False(t, b.Passes(failing))

	short := passingVideo()
	short.Caption = "tiny"
	assert.False(t, b.Passes(short))
}

func TestNewBaseline_CustomThresholds(t *testing.T) {
	b := NewBaseline(
		TrendThresholds{MinLikes: 1},
		ContentRules{MinCaptionLength: 1},
	)

	v := &domain.CandidateVideo{ID: "v1", Caption: "ok", Likes: 1, Views: 10}
	assert.True(t, b.Passes(v))
}
