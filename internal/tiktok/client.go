// Package tiktok is the HTTP client for the upstream scraper API that
// exposes liked, hashtag, trending and creator video feeds.
package tiktok

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/scout-labs/tokscout/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Client talks to the scraper API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client for the given scraper endpoint. apiKey may be
// empty for unauthenticated deployments.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// APIError represents an error from the scraper API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scraper API error (%d): %s", e.StatusCode, e.Message)
}

// videoPayload is the scraper's wire format for a video.
type videoPayload struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Caption   string `json:"caption"`
	URL       string `json:"url"`
	Likes     int64  `json:"likes"`
	Views     int64  `json:"views"`
	Comments  int64  `json:"comments"`
	Shares    int64  `json:"shares"`
	CreatedAt int64  `json:"created_at"` // unix seconds
}

type videoListResponse struct {
	Videos []videoPayload `json:"videos"`
	Error  string         `json:"error,omitempty"`
}

// FetchLiked returns the user's most recent liked videos.
func (c *Client) FetchLiked(ctx context.Context, userID string, count int) ([]domain.CandidateVideo, error) {
	path := fmt.Sprintf("/v1/users/%s/liked", url.PathEscape(userID))
	return c.fetchVideos(ctx, path, count)
}

// FetchByHashtag returns recent videos tagged with the given hashtag.
func (c *Client) FetchByHashtag(ctx context.Context, hashtag string, limit int) ([]domain.CandidateVideo, error) {
	path := fmt.Sprintf("/v1/hashtags/%s/videos", url.PathEscape(hashtag))
	return c.fetchVideos(ctx, path, limit)
}

// FetchTrending returns the current trending feed.
func (c *Client) FetchTrending(ctx context.Context, limit int) ([]domain.CandidateVideo, error) {
	return c.fetchVideos(ctx, "/v1/trending", limit)
}

// FetchByCreator returns a creator's recent uploads.
func (c *Client) FetchByCreator(ctx context.Context, creatorID string, limit int) ([]domain.CandidateVideo, error) {
	path := fmt.Sprintf("/v1/creators/%s/videos", url.PathEscape(creatorID))
	return c.fetchVideos(ctx, path, limit)
}

func (c *Client) fetchVideos(ctx context.Context, path string, count int) ([]domain.CandidateVideo, error) {
	endpoint := c.baseURL + path
	if count > 0 {
		endpoint += "?count=" + strconv.Itoa(count)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build scraper request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scraper request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read scraper response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var payload videoListResponse
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	var payload videoListResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode scraper response: %w", err)
	}

	videos := make([]domain.CandidateVideo, 0, len(payload.Videos))
	for _, v := range payload.Videos {
		video := domain.CandidateVideo{
			ID:       v.ID,
			AuthorID: v.AuthorID,
			Caption:  v.Caption,
			URL:      v.URL,
			Likes:    v.Likes,
			Views:    v.Views,
			Comments: v.Comments,
			Shares:   v.Shares,
		}
		if v.CreatedAt > 0 {
			video.CreatedAt = time.Unix(v.CreatedAt, 0).UTC()
		}
		if err := domain.ValidateCandidateVideo(&video); err != nil {
			// Skip malformed entries instead of failing the whole page.
			continue
		}
		videos = append(videos, video)
	}
	return videos, nil
}
