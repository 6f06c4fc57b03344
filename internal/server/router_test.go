package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scout-labs/tokscout/internal/api/handlers"
	"github.com/scout-labs/tokscout/internal/domain"
	"github.com/scout-labs/tokscout/internal/pagination"
	"github.com/scout-labs/tokscout/internal/service"
	"github.com/stretchr/testify/assert"
)

type stubProfileService struct {
	summaryCalls int
	resetCalls   int
}

func (s *stubProfileService) Summary(ctx context.Context, userID string, topN int) (*service.ProfileSummary, error) {
	s.summaryCalls++
	return &service.ProfileSummary{UserID: userID}, nil
}

func (s *stubProfileService) Refresh(ctx context.Context, userID string, count int) (*service.RefreshResult, error) {
	return &service.RefreshResult{Fetched: count}, nil
}

func (s *stubProfileService) Reset(ctx context.Context, userID string) error {
	s.resetCalls++
	return nil
}

func (s *stubProfileService) Export(ctx context.Context, userID string) (string, error) {
	return "profiles/" + userID + "/snap.json", nil
}

func (s *stubProfileService) Import(ctx context.Context, userID, key string) (*domain.PreferenceProfile, error) {
	return domain.NewPreferenceProfile(), nil
}

type stubSearchService struct {
	searchCalls int
}

func (s *stubSearchService) Search(ctx context.Context, userID string, limit int) (*service.SearchOutput, error) {
	s.searchCalls++
	return &service.SearchOutput{
		Items:    []service.SearchItem{{Video: domain.CandidateVideo{ID: "vid-1"}, Score: 0.7, Source: "hashtag"}},
		Attempts: 1,
	}, nil
}

func (s *stubSearchService) Hashtags(ctx context.Context, userID string, limit int) ([]string, error) {
	return []string{"cocktails"}, nil
}

func (s *stubSearchService) History(ctx context.Context, userID, cursor string, limit int) (*pagination.PageResult[*domain.SentVideo], error) {
	return &pagination.PageResult[*domain.SentVideo]{Items: []*domain.SentVideo{}}, nil
}

func (s *stubSearchService) HistoryStats(ctx context.Context, userID string) (*domain.HistoryStats, error) {
	return &domain.HistoryStats{}, nil
}

func newTestRouter(token string) (http.Handler, *stubProfileService, *stubSearchService) {
	profiles := &stubProfileService{}
	searches := &stubSearchService{}
	router := NewRouter(RouterConfig{
		APIToken:       token,
		ProfileHandler: handlers.NewProfileHandler(profiles, 100),
		SearchHandler:  handlers.NewSearchHandler(searches),
	})
	return router, profiles, searches
}

func TestRouter_HealthIsOpen(t *testing.T) {
	router, _, _ := newTestRouter("secret")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	router, profiles, searches := newTestRouter("secret")

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/users/user-1/profile"},
		{http.MethodDelete, "/v1/users/user-1/profile"},
		{http.MethodPost, "/v1/users/user-1/profile/refresh"},
		{http.MethodPost, "/v1/users/user-1/search"},
		{http.MethodGet, "/v1/users/user-1/hashtags"},
		{http.MethodGet, "/v1/users/user-1/history"},
		{http.MethodGet, "/v1/users/user-1/history/stats"},
	}

	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)
	}
	assert.Zero(t, profiles.summaryCalls)
	assert.Zero(t, searches.searchCalls)
}

func TestRouter_ProfileRoutes(t *testing.T) {
	router, profiles, _ := newTestRouter("secret")

	req := httptest.NewRequest(http.MethodGet, "/v1/users/user-1/profile", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, profiles.summaryCalls)

	req = httptest.NewRequest(http.MethodDelete, "/v1/users/user-1/profile", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, profiles.resetCalls)
}

func TestRouter_SearchRoute(t *testing.T) {
	router, _, searches := newTestRouter("secret")

	req := httptest.NewRequest(http.MethodPost, "/v1/users/user-1/search", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, searches.searchCalls)
	assert.Contains(t, w.Body.String(), "vid-1")
}

func TestRouter_AuthDisabledWhenNoToken(t *testing.T) {
	router, profiles, _ := newTestRouter("")

	req := httptest.NewRequest(http.MethodGet, "/v1/users/user-1/profile", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, profiles.summaryCalls)
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router, _, _ := newTestRouter("")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
