// Package pagination implements the opaque keyset cursors used to page
// through a user's delivery history, which is read in (sent_at, video_id)
// order, newest first.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// Cursor is a decoded page boundary: the last video on the previous page
// and when it was sent.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// PageResult is one page of items plus the cursor that fetches the next one.
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

// ErrInvalidCursor is returned for tokens that did not come from EncodeCursor.
var ErrInvalidCursor = errors.New("invalid cursor format")

const cursorSep = "|"

// EncodeCursor packs a page boundary into an opaque base64 token handed to
// API clients.
func EncodeCursor(lastID string, sentAt time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + cursorSep + sentAt.UTC().Format(time.RFC3339Nano)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor unpacks a token produced by EncodeCursor. An empty token
// means the first page and decodes to nil.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	parts := strings.SplitN(string(decoded), cursorSep, 2)
	if len(parts) != 2 {
		return nil, ErrInvalidCursor
	}

	sentAt, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{
		LastID:    parts[0],
		Timestamp: sentAt,
	}, nil
}
