package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/scout-labs/tokscout/internal/domain"
	"github.com/scout-labs/tokscout/internal/pagination"
	"github.com/scout-labs/tokscout/internal/personalize"
	"github.com/scout-labs/tokscout/internal/telemetry"
)

// ProfileRepositoryInterface defines the repository interface for profile persistence
type ProfileRepositoryInterface interface {
	GetByUser(ctx context.Context, userID string) (*domain.PreferenceProfile, error)
	Upsert(ctx context.Context, userID string, p *domain.PreferenceProfile) error
	Delete(ctx context.Context, userID string) error
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

// SentVideoRepositoryInterface defines the repository interface for delivery history
type SentVideoRepositoryInterface interface {
	Add(ctx context.Context, sv *domain.SentVideo) error
	FilterNew(ctx context.Context, userID string, videos []domain.CandidateVideo) ([]domain.CandidateVideo, error)
	Stats(ctx context.Context, userID string) (*domain.HistoryStats, error)
	ListRecent(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.SentVideo], error)
}

// LikedVideoSource fetches a user's recent liked videos from the upstream
// scraper.
type LikedVideoSource interface {
	FetchLiked(ctx context.Context, userID string, count int) ([]domain.CandidateVideo, error)
}

// SnapshotStore persists profile snapshots outside the database, for export
// and import.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, key string, data []byte) error
	GetSnapshot(ctx context.Context, key string) ([]byte, error)
}

// ProfileSummary is the read-model view of a profile returned by the API.
type ProfileSummary struct {
	UserID       string
	SampleCount  int64
	LastUpdated  time.Time
	TopHashtags  []RankedEntry
	TopKeywords  []RankedEntry
	TopCreators  []RankedEntry
	Categories   []CategoryAffinity
	Engagement   domain.EngagementStats
	AnalyzedSize int
}

type RankedEntry struct {
	Name  string
	Count int64
}

type CategoryAffinity struct {
	Name  string
	Score float64
}

// ProfileService owns the load-analyze-merge-store cycle for preference
// profiles. Writes for the same user are serialized through a per-user lock
// so concurrent refreshes never lose increments.
type ProfileService struct {
	profileRepo ProfileRepositoryInterface
	likedSource LikedVideoSource
	analyzer    *personalize.Analyzer
	snapshots   SnapshotStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewProfileService creates a new ProfileService instance. snapshots may be
// nil when no snapshot store is configured; Export and Import then fail.
func NewProfileService(
	profileRepo ProfileRepositoryInterface,
	likedSource LikedVideoSource,
	analyzer *personalize.Analyzer,
	snapshots SnapshotStore,
) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		likedSource: likedSource,
		analyzer:    analyzer,
		snapshots:   snapshots,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *ProfileService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// Get returns the stored profile for a user.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.PreferenceProfile, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProfileService.Get", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "get",
	})
	defer span.End()

	return s.profileRepo.GetByUser(ctx, userID)
}

// RefreshResult reports what a refresh changed.
type RefreshResult struct {
	Fetched     int
	NewVideos   int
	SampleCount int64
}

// Refresh fetches the user's recent liked videos, folds the not yet analyzed
// ones into the stored profile and persists the result. An empty liked batch
// is not an error: the stored profile is left untouched and the result
// reports zero fetched. If the upstream fetch fails the stored profile is
// left untouched.
func (s *ProfileService) Refresh(ctx context.Context, userID string, count int) (*RefreshResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProfileService.Refresh", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "refresh",
	})
	defer span.End()

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	liked, err := s.likedSource.FetchLiked(ctx, userID, count)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable,
			fmt.Sprintf("failed to fetch liked videos for user %s", userID), err)
	}
	profile, err := s.profileRepo.GetByUser(ctx, userID)
	if err != nil {
		if err != domain.ErrProfileNotFound {
			return nil, err
		}
		profile = domain.NewPreferenceProfile()
	}

	delta := s.analyzer.Analyze(liked, profile)
	newVideos := len(delta.AnalyzedIDs)
	profile.Merge(delta)

	if newVideos > 0 {
		if err := s.profileRepo.Upsert(ctx, userID, profile); err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	return &RefreshResult{
		Fetched:     len(liked),
		NewVideos:   newVideos,
		SampleCount: profile.SampleCount,
	}, nil
}

// Reset deletes the user's stored profile.
func (s *ProfileService) Reset(ctx context.Context, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "ProfileService.Reset", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "reset",
	})
	defer span.End()

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return s.profileRepo.Delete(ctx, userID)
}

// Summary builds the read-model view of the user's profile.
func (s *ProfileService) Summary(ctx context.Context, userID string, topN int) (*ProfileSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProfileService.Summary", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "summary",
	})
	defer span.End()

	profile, err := s.profileRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if topN <= 0 {
		topN = 10
	}

	return &ProfileSummary{
		UserID:       userID,
		SampleCount:  profile.SampleCount,
		LastUpdated:  profile.LastUpdated,
		TopHashtags:  topEntries(profile.HashtagFreq, topN),
		TopKeywords:  topEntries(profile.KeywordFreq, topN),
		TopCreators:  topEntries(profile.CreatorFreq, topN),
		Categories:   topAffinities(profile.CategoryScores, topN),
		Engagement:   profile.Engagement,
		AnalyzedSize: len(profile.AnalyzedIDs),
	}, nil
}

// Export serializes the user's profile to the snapshot store and returns the
// object key.
func (s *ProfileService) Export(ctx context.Context, userID string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProfileService.Export", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "export",
	})
	defer span.End()

	if s.snapshots == nil {
		return "", domain.NewDomainError(domain.ErrCodeConfiguration, "snapshot store not configured")
	}

	profile, err := s.profileRepo.GetByUser(ctx, userID)
	if err != nil {
		return "", err
	}

	data, err := domain.EncodeProfile(profile)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("profiles/%s/%s.json", userID, time.Now().UTC().Format("20060102T150405Z"))
	if err := s.snapshots.PutSnapshot(ctx, key, data); err != nil {
		span.SetError(err)
		return "", err
	}
	return key, nil
}

// Import replaces the user's stored profile with a previously exported
// snapshot.
func (s *ProfileService) Import(ctx context.Context, userID, key string) (*domain.PreferenceProfile, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProfileService.Import", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "import",
	})
	defer span.End()

	if s.snapshots == nil {
		return nil, domain.NewDomainError(domain.ErrCodeConfiguration, "snapshot store not configured")
	}

	data, err := s.snapshots.GetSnapshot(ctx, key)
	if err != nil {
		return nil, err
	}

	profile, err := domain.DecodeProfile(data)
	if err != nil {
		return nil, err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.profileRepo.Upsert(ctx, userID, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// RefreshStale refreshes every profile not updated since the cutoff. Used by
// the background worker. Individual refresh failures are collected, not
// fatal.
func (s *ProfileService) RefreshStale(ctx context.Context, olderThan time.Time, batch, countPerUser int) (int, error) {
	userIDs, err := s.profileRepo.ListStale(ctx, olderThan, batch)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, userID := range userIDs {
		if _, err := s.Refresh(ctx, userID, countPerUser); err != nil {
			telemetry.CaptureError(ctx, err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

func topEntries(freq map[string]int64, n int) []RankedEntry {
	entries := make([]RankedEntry, 0, len(freq))
	for name, count := range freq {
		entries = append(entries, RankedEntry{Name: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func topAffinities(scores map[string]float64, n int) []CategoryAffinity {
	entries := make([]CategoryAffinity, 0, len(scores))
	for name, score := range scores {
		entries = append(entries, CategoryAffinity{Name: name, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
