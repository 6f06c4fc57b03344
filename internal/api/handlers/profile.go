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
	"github.com/scout-labs/tokscout/internal/service"
)

type ProfileService interface {
	Summary(ctx context.Context, userID string, topN int) (*service.ProfileSummary, error)
	Refresh(ctx context.Context, userID string, count int) (*service.RefreshResult, error)
	Reset(ctx context.Context, userID string) error
	Export(ctx context.Context, userID string) (string, error)
	Import(ctx context.Context, userID, key string) (*domain.PreferenceProfile, error)
}

type ProfileHandler struct {
	svc          ProfileService
	defaultCount int
}

func NewProfileHandler(svc ProfileService, defaultCount int) *ProfileHandler {
	if defaultCount <= 0 {
		defaultCount = 100
	}
	return &ProfileHandler{svc: svc, defaultCount: defaultCount}
}

type RankedEntryResponse struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type CategoryAffinityResponse struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type EngagementResponse struct {
	AvgLikes    float64 `json:"avg_likes"`
	AvgViews    float64 `json:"avg_views"`
	AvgComments float64 `json:"avg_comments"`
	AvgShares   float64 `json:"avg_shares"`
	AvgRate     float64 `json:"avg_rate"`
}

type ProfileSummaryResponse struct {
	UserID       string                     `json:"user_id"`
	SampleCount  int64                      `json:"sample_count"`
	LastUpdated  string                     `json:"last_updated,omitempty"`
	TopHashtags  []RankedEntryResponse      `json:"top_hashtags"`
	TopKeywords  []RankedEntryResponse      `json:"top_keywords"`
	TopCreators  []RankedEntryResponse      `json:"top_creators"`
	Categories   []CategoryAffinityResponse `json:"categories"`
	Engagement   EngagementResponse         `json:"engagement"`
	AnalyzedSize int                        `json:"analyzed_videos"`
}

func summaryToResponse(s *service.ProfileSummary) *ProfileSummaryResponse {
	resp := &ProfileSummaryResponse{
		UserID:       s.UserID,
		SampleCount:  s.SampleCount,
		TopHashtags:  make([]RankedEntryResponse, 0, len(s.TopHashtags)),
		TopKeywords:  make([]RankedEntryResponse, 0, len(s.TopKeywords)),
		TopCreators:  make([]RankedEntryResponse, 0, len(s.TopCreators)),
		Categories:   make([]CategoryAffinityResponse, 0, len(s.Categories)),
		AnalyzedSize: s.AnalyzedSize,
		Engagement: EngagementResponse{
			AvgLikes:    s.Engagement.AvgLikes,
			AvgViews:    s.Engagement.AvgViews,
			AvgComments: s.Engagement.AvgComments,
			AvgShares:   s.Engagement.AvgShares,
			AvgRate:     s.Engagement.AvgRate,
		},
	}
	if !s.LastUpdated.IsZero() {
		resp.LastUpdated = s.LastUpdated.UTC().Format(time.RFC3339)
	}
	for _, e := range s.TopHashtags {
		resp.TopHashtags = append(resp.TopHashtags, RankedEntryResponse{Name: e.Name, Count: e.Count})
	}
	for _, e := range s.TopKeywords {
		resp.TopKeywords = append(resp.TopKeywords, RankedEntryResponse{Name: e.Name, Count: e.Count})
	}
	for _, e := range s.TopCreators {
		resp.TopCreators = append(resp.TopCreators, RankedEntryResponse{Name: e.Name, Count: e.Count})
	}
	for _, c := range s.Categories {
		resp.Categories = append(resp.Categories, CategoryAffinityResponse{Name: c.Name, Score: c.Score})
	}
	return resp
}

// Get returns the profile summary for a user.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	topN := 10
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			api.Error(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		topN = n
	}

	summary, err := h.svc.Summary(r.Context(), userID, topN)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, summaryToResponse(summary))
}

type RefreshRequest struct {
	Count int `json:"count"`
}

type RefreshResponse struct {
	Fetched     int   `json:"fetched"`
	NewVideos   int   `json:"new_videos"`
	SampleCount int64 `json:"sample_count"`
}

// Refresh folds the user's latest liked videos into their profile.
func (h *ProfileHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	count := h.defaultCount
	if r.Body != nil && r.ContentLength != 0 {
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Count < 0 {
			api.Error(w, http.StatusBadRequest, "count must be non-negative")
			return
		}
		if req.Count > 0 {
			count = req.Count
		}
	}

	result, err := h.svc.Refresh(r.Context(), userID, count)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, RefreshResponse{
		Fetched:     result.Fetched,
		NewVideos:   result.NewVideos,
		SampleCount: result.SampleCount,
	})
}

// Reset deletes the user's profile.
func (h *ProfileHandler) Reset(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	if err := h.svc.Reset(r.Context(), userID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "reset"})
}

type ExportResponse struct {
	Key string `json:"key"`
}

// Export writes the profile to the snapshot store and returns the key.
func (h *ProfileHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	key, err := h.svc.Export(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ExportResponse{Key: key})
}

type ImportRequest struct {
	Key string `json:"key"`
}

// Import replaces the profile with a stored snapshot.
func (h *ProfileHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Key == "" {
		api.Error(w, http.StatusBadRequest, "key is required")
		return
	}

	profile, err := h.svc.Import(r.Context(), userID, req.Key)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"sample_count": profile.SampleCount,
	})
}
