package domain

import (
	"fmt"
	"time"
)

// CandidateVideo represents a scraped video being evaluated for relevance.
// Instances are produced by an external scraper and consumed read-only.
type CandidateVideo struct {
	ID        string
	AuthorID  string
	Caption   string
	URL       string
	Likes     int64
	Views     int64
	Comments  int64
	Shares    int64
	CreatedAt time.Time
}

// EngagementRate returns likes/views, or 0 when views is zero.
func (v *CandidateVideo) EngagementRate() float64 {
	if v.Views <= 0 {
		return 0
	}
	return float64(v.Likes) / float64(v.Views)
}

// ScoredCandidate pairs a candidate video with its preference score.
// Created per scoring call and discarded once the caller consumes the ranking.
type ScoredCandidate struct {
	Video           CandidateVideo
	PreferenceScore float64
	PassesFilter    bool
}

// ValidateCandidateVideo validates a CandidateVideo instance.
// A missing caption is tolerated (feature extraction degrades gracefully);
// an ID is the only hard requirement.
func ValidateCandidateVideo(v *CandidateVideo) error {
	if v == nil {
		return fmt.Errorf("candidate video cannot be nil")
	}
	if v.ID == "" {
		return fmt.Errorf("candidate video ID is required")
	}
	if v.Likes < 0 || v.Views < 0 || v.Comments < 0 || v.Shares < 0 {
		return fmt.Errorf("candidate video engagement counts must be non-negative")
	}
	return nil
}
