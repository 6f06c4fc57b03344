// Package filter implements the non-personalized minimum-quality gate
// applied to scraped candidates before personalization scoring.
package filter

import (
	"strings"

	"github.com/scout-labs/tokscout/internal/domain"
)

// TrendThresholds are minimum engagement requirements for a candidate.
type TrendThresholds struct {
	MinLikes          int64
	MinViews          int64
	MinShares         int64
	MinComments       int64
	MinEngagementRate float64
}

// ContentRules constrain the candidate's caption.
type ContentRules struct {
	MinCaptionLength int
	ExcludeKeywords  []string
}

// Baseline combines trend and content rules into one gate.
type Baseline struct {
	Trend   TrendThresholds
	Content ContentRules

	excluded []string
}

// DefaultBaseline returns the standard thresholds.
func DefaultBaseline() *Baseline {
	return NewBaseline(
		TrendThresholds{
			MinLikes:          1000,
			MinViews:          10000,
			MinShares:         50,
			MinComments:       20,
			MinEngagementRate: 0.01,
		},
		ContentRules{
			MinCaptionLength: 100,
			ExcludeKeywords:  []string{"ads", "sponsored", "promotion"},
		},
	)
}

// NewBaseline creates a Baseline with the given rules.
func NewBaseline(trend TrendThresholds, content ContentRules) *Baseline {
	excluded := make([]string, 0, len(content.ExcludeKeywords))
	for _, kw := range content.ExcludeKeywords {
		if kw != "" {
			excluded = append(excluded, strings.ToLower(kw))
		}
	}
	return &Baseline{Trend: trend, Content: content, excluded: excluded}
}

// PassesTrend checks the candidate against the engagement thresholds.
func (b *Baseline) PassesTrend(video *domain.CandidateVideo) bool {
	if video == nil {
		return false
	}
	if video.Likes < b.Trend.MinLikes {
		return false
	}
	if video.Views < b.Trend.MinViews {
		return false
	}
	if video.Shares < b.Trend.MinShares {
		return false
	}
	if video.Comments < b.Trend.MinComments {
		return false
	}
	if video.Views > 0 && video.EngagementRate() < b.Trend.MinEngagementRate {
		return false
	}
	return true
}

// PassesContent checks the candidate's caption against the content rules.
func (b *Baseline) PassesContent(video *domain.CandidateVideo) bool {
	if video == nil {
		return false
	}
	if len(video.Caption) < b.Content.MinCaptionLength {
		return false
	}
	caption := strings.ToLower(video.Caption)
	for _, kw := range b.excluded {
		if strings.Contains(caption, kw) {
			return false
		}
	}
	return true
}

// Passes reports whether the candidate clears both gates.
func (b *Baseline) Passes(video *domain.CandidateVideo) bool {
	return b.PassesTrend(video) && b.PassesContent(video)
}
