package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/scout-labs/tokscout/internal/api"
	"github.com/scout-labs/tokscout/internal/domain"
	"github.com/scout-labs/tokscout/internal/pagination"
	"github.com/scout-labs/tokscout/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, userID string, limit int) (*service.SearchOutput, error)
	Hashtags(ctx context.Context, userID string, limit int) ([]string, error)
	History(ctx context.Context, userID, cursor string, limit int) (*pagination.PageResult[*domain.SentVideo], error)
	HistoryStats(ctx context.Context, userID string) (*domain.HistoryStats, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Limit int `json:"limit"`
}

type SearchItemResponse struct {
	VideoID   string  `json:"video_id"`
	AuthorID  string  `json:"author_id"`
	Caption   string  `json:"caption,omitempty"`
	URL       string  `json:"url,omitempty"`
	Likes     int64   `json:"likes"`
	Views     int64   `json:"views"`
	Score     float64 `json:"score"`
	Hashtag   string  `json:"hashtag,omitempty"`
	Source    string  `json:"source"`
	CreatedAt string  `json:"created_at,omitempty"`
}

type SearchResponse struct {
	Items         []SearchItemResponse `json:"items"`
	Attempts      int                  `json:"attempts"`
	HashtagsTried []string             `json:"hashtags_tried"`
}

func searchItemToResponse(item service.SearchItem) SearchItemResponse {
	resp := SearchItemResponse{
		VideoID:  item.Video.ID,
		AuthorID: item.Video.AuthorID,
		Caption:  item.Video.Caption,
		URL:      item.Video.URL,
		Likes:    item.Video.Likes,
		Views:    item.Video.Views,
		Score:    item.Score,
		Hashtag:  item.Hashtag,
		Source:   item.Source,
	}
	if !item.Video.CreatedAt.IsZero() {
		resp.CreatedAt = item.Video.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// Search runs a personalized search session for the user.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	limit := 0
	if r.Body != nil && r.ContentLength != 0 {
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Limit < 0 {
			api.Error(w, http.StatusBadRequest, "limit must be non-negative")
			return
		}
		limit = req.Limit
	}

	out, err := h.svc.Search(r.Context(), userID, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := SearchResponse{
		Items:         make([]SearchItemResponse, 0, len(out.Items)),
		Attempts:      out.Attempts,
		HashtagsTried: out.HashtagsTried,
	}
	if resp.HashtagsTried == nil {
		resp.HashtagsTried = []string{}
	}
	for _, item := range out.Items {
		resp.Items = append(resp.Items, searchItemToResponse(item))
	}

	api.Success(w, http.StatusOK, resp)
}

type HashtagsResponse struct {
	Hashtags []string `json:"hashtags"`
}

// Hashtags returns the ranked hashtags the engine would search for the user.
func (h *SearchHandler) Hashtags(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	limit := 15
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	hashtags, err := h.svc.Hashtags(r.Context(), userID, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if hashtags == nil {
		hashtags = []string{}
	}

	api.Success(w, http.StatusOK, HashtagsResponse{Hashtags: hashtags})
}

type HistoryItemResponse struct {
	VideoID  string  `json:"video_id"`
	AuthorID string  `json:"author_id,omitempty"`
	Hashtag  string  `json:"hashtag,omitempty"`
	Score    float64 `json:"score"`
	SentAt   string  `json:"sent_at"`
}

type HistoryResponse struct {
	Items   []HistoryItemResponse `json:"items"`
	Cursor  string                `json:"cursor,omitempty"`
	HasMore bool                  `json:"has_more"`
}

// History returns a page of videos already delivered to the user.
func (h *SearchHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	page, err := h.svc.History(r.Context(), userID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := HistoryResponse{
		Items:   make([]HistoryItemResponse, 0, len(page.Items)),
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	}
	for _, sv := range page.Items {
		resp.Items = append(resp.Items, HistoryItemResponse{
			VideoID:  sv.VideoID,
			AuthorID: sv.AuthorID,
			Hashtag:  sv.Hashtag,
			Score:    sv.Score,
			SentAt:   sv.SentAt.UTC().Format(time.RFC3339),
		})
	}

	api.Success(w, http.StatusOK, resp)
}

type HistoryStatsResponse struct {
	TotalSent    int64   `json:"total_sent"`
	UniqueAuthor int64   `json:"unique_authors"`
	AvgScore     float64 `json:"avg_score"`
	FirstSentAt  string  `json:"first_sent_at,omitempty"`
	LastSentAt   string  `json:"last_sent_at,omitempty"`
}

// HistoryStats summarizes the user's delivery history.
func (h *SearchHandler) HistoryStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	stats, err := h.svc.HistoryStats(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := HistoryStatsResponse{
		TotalSent:    stats.TotalSent,
		UniqueAuthor: stats.UniqueAuthor,
		AvgScore:     stats.AvgScore,
	}
	if stats.FirstSentAt != nil {
		resp.FirstSentAt = stats.FirstSentAt.UTC().Format(time.RFC3339)
	}
	if stats.LastSentAt != nil {
		resp.LastSentAt = stats.LastSentAt.UTC().Format(time.RFC3339)
	}

	api.Success(w, http.StatusOK, resp)
}
