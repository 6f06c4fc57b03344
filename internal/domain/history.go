package domain

import "time"

// SentVideo records that a candidate was delivered to a user, so the same
// video is never recommended to them twice.
type SentVideo struct {
	VideoID  string
	UserID   string
	AuthorID string
	Hashtag  string
	Score    float64
	SentAt   time.Time
}

// HistoryStats summarizes a user's delivery history.
type HistoryStats struct {
	TotalSent    int64
	UniqueAuthor int64
	AvgScore     float64
	FirstSentAt  *time.Time
	LastSentAt   *time.Time
}
