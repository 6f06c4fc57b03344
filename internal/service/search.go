package service

import (
	"context"
	"sort"
	"time"

	"github.com/scout-labs/tokscout/internal/domain"
	"github.com/scout-labs/tokscout/internal/pagination"
	"github.com/scout-labs/tokscout/internal/personalize"
	"github.com/scout-labs/tokscout/internal/telemetry"
)

// CandidateSource fetches candidate videos from the upstream scraper.
type CandidateSource interface {
	FetchByHashtag(ctx context.Context, hashtag string, limit int) ([]domain.CandidateVideo, error)
	FetchTrending(ctx context.Context, limit int) ([]domain.CandidateVideo, error)
	FetchByCreator(ctx context.Context, creatorID string, limit int) ([]domain.CandidateVideo, error)
}

// SearchConfig bounds a personalized search session.
type SearchConfig struct {
	MinPreferenceScore float64
	MaxAttempts        int
	MaxResults         int
	VideosPerHashtag   int
	HashtagsPerAttempt int
	CreatorsPerSearch  int
}

// DefaultSearchConfig returns the standard session bounds.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		MinPreferenceScore: 0.3,
		MaxAttempts:        3,
		MaxResults:         30,
		VideosPerHashtag:   15,
		HashtagsPerAttempt: 15,
		CreatorsPerSearch:  3,
	}
}

// SearchItem is one recommended video with its provenance.
type SearchItem struct {
	Video   domain.CandidateVideo
	Score   float64
	Hashtag string
	Source  string // "hashtag", "creator" or "trending"
}

// SearchOutput is the result of one search session.
type SearchOutput struct {
	Items         []SearchItem
	Attempts      int
	HashtagsTried []string
}

// SearchService runs personalized search sessions: generate hashtags from
// the profile, fetch candidates, score, and retry with fresh hashtags until
// enough results pass the preference threshold. The set of consumed hashtags
// grows monotonically inside a session so no attempt repeats a hashtag.
type SearchService struct {
	profileRepo ProfileRepositoryInterface
	sentRepo    SentVideoRepositoryInterface
	candidates  CandidateSource
	scorer      *personalize.Scorer
	diversifier *personalize.Diversifier
	engine      *personalize.SearchEngine
	cfg         SearchConfig
	now         func() time.Time
}

// NewSearchService creates a new SearchService instance.
func NewSearchService(
	profileRepo ProfileRepositoryInterface,
	sentRepo SentVideoRepositoryInterface,
	candidates CandidateSource,
	scorer *personalize.Scorer,
	diversifier *personalize.Diversifier,
	engine *personalize.SearchEngine,
	cfg SearchConfig,
) *SearchService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 30
	}
	if cfg.VideosPerHashtag <= 0 {
		cfg.VideosPerHashtag = 15
	}
	if cfg.HashtagsPerAttempt <= 0 {
		cfg.HashtagsPerAttempt = 15
	}
	if cfg.CreatorsPerSearch <= 0 {
		cfg.CreatorsPerSearch = 3
	}
	return &SearchService{
		profileRepo: profileRepo,
		sentRepo:    sentRepo,
		candidates:  candidates,
		scorer:      scorer,
		diversifier: diversifier,
		engine:      engine,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Search runs one personalized search session for the user. A user without a
// stored profile gets trending results gated by the baseline filter only.
func (s *SearchService) Search(ctx context.Context, userID string, limit int) (*SearchOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "search",
	})
	defer span.End()

	if limit <= 0 || limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}

	profile, err := s.profileRepo.GetByUser(ctx, userID)
	if err != nil {
		if err != domain.ErrProfileNotFound {
			return nil, err
		}
		profile = domain.NewPreferenceProfile()
	}

	out := &SearchOutput{}
	used := make(map[string]struct{})
	seen := make(map[string]struct{})

	for attempt := 0; attempt < s.cfg.MaxAttempts && len(out.Items) < limit; attempt++ {
		hashtags := s.diversifier.Diversify(profile, used, attempt, s.cfg.HashtagsPerAttempt)
		if len(hashtags) == 0 {
			break
		}
		out.Attempts++

		for _, tag := range hashtags {
			// Consumed hashtags accumulate across attempts, so retries
			// never re-query the same tag.
			used[tag] = struct{}{}
			out.HashtagsTried = append(out.HashtagsTried, tag)
		}

		for _, tag := range hashtags {
			if len(out.Items) >= limit {
				break
			}
			items, err := s.collectForHashtag(ctx, userID, profile, tag, seen)
			if err != nil {
				telemetry.CaptureError(ctx, err)
				continue
			}
			out.Items = append(out.Items, items...)
		}
	}

	if len(out.Items) < limit {
		fromCreators, err := s.collectFromCreators(ctx, userID, profile, seen)
		if err != nil {
			telemetry.CaptureError(ctx, err)
		} else {
			out.Items = append(out.Items, fromCreators...)
		}
	}

	if len(out.Items) < limit {
		fill, err := s.collectTrending(ctx, userID, profile, limit-len(out.Items), seen)
		if err != nil {
			telemetry.CaptureError(ctx, err)
		} else {
			out.Items = append(out.Items, fill...)
		}
	}

	sort.SliceStable(out.Items, func(i, j int) bool {
		return out.Items[i].Score > out.Items[j].Score
	})
	if len(out.Items) > limit {
		out.Items = out.Items[:limit]
	}

	// An empty session is a valid outcome: nothing passed, nothing to record.
	if len(out.Items) == 0 {
		return out, nil
	}

	if err := s.recordSent(ctx, userID, out.Items); err != nil {
		span.SetError(err)
		return nil, err
	}
	return out, nil
}

func (s *SearchService) collectForHashtag(ctx context.Context, userID string, profile *domain.PreferenceProfile, tag string, seen map[string]struct{}) ([]SearchItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.collectForHashtag", telemetry.SpanAttributes{
		UserID:    userID,
		Hashtag:   tag,
		Operation: "fetch",
	})
	defer span.End()

	fetched, err := s.candidates.FetchByHashtag(ctx, tag, s.cfg.VideosPerHashtag)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	fresh, err := s.dedupe(ctx, userID, fetched, seen)
	if err != nil {
		return nil, err
	}

	var items []SearchItem
	for i := range fresh {
		if ok, score := s.scorer.PassesFilters(profile, &fresh[i], s.cfg.MinPreferenceScore); ok {
			items = append(items, SearchItem{
				Video:   fresh[i],
				Score:   score,
				Hashtag: tag,
				Source:  "hashtag",
			})
		}
	}
	return items, nil
}

// collectFromCreators pulls recent uploads from the profile's most liked
// creators when hashtag attempts leave the page short.
func (s *SearchService) collectFromCreators(ctx context.Context, userID string, profile *domain.PreferenceProfile, seen map[string]struct{}) ([]SearchItem, error) {
	creators := s.engine.PreferredCreators(profile, s.cfg.CreatorsPerSearch)
	if len(creators) == 0 {
		return nil, nil
	}

	var items []SearchItem
	for _, creatorID := range creators {
		fetched, err := s.candidates.FetchByCreator(ctx, creatorID, s.cfg.VideosPerHashtag)
		if err != nil {
			telemetry.CaptureError(ctx, err)
			continue
		}

		fresh, err := s.dedupe(ctx, userID, fetched, seen)
		if err != nil {
			return nil, err
		}

		for i := range fresh {
			if ok, score := s.scorer.PassesFilters(profile, &fresh[i], s.cfg.MinPreferenceScore); ok {
				items = append(items, SearchItem{
					Video:  fresh[i],
					Score:  score,
					Source: "creator",
				})
			}
		}
	}
	return items, nil
}

func (s *SearchService) collectTrending(ctx context.Context, userID string, profile *domain.PreferenceProfile, want int, seen map[string]struct{}) ([]SearchItem, error) {
	fetched, err := s.candidates.FetchTrending(ctx, want*2)
	if err != nil {
		return nil, err
	}

	fresh, err := s.dedupe(ctx, userID, fetched, seen)
	if err != nil {
		return nil, err
	}

	var items []SearchItem
	for i := range fresh {
		if len(items) >= want {
			break
		}
		// Trending fill is gated by the baseline filter only, so thin
		// profiles still get a full page.
		if ok, score := s.scorer.PassesFilters(profile, &fresh[i], 0); ok {
			items = append(items, SearchItem{
				Video:  fresh[i],
				Score:  score,
				Source: "trending",
			})
		}
	}
	return items, nil
}

// dedupe drops videos already seen in this session or already delivered to
// the user, and marks the remainder as seen.
func (s *SearchService) dedupe(ctx context.Context, userID string, videos []domain.CandidateVideo, seen map[string]struct{}) ([]domain.CandidateVideo, error) {
	unseen := make([]domain.CandidateVideo, 0, len(videos))
	for _, v := range videos {
		if v.ID == "" {
			continue
		}
		if _, ok := seen[v.ID]; ok {
			continue
		}
		seen[v.ID] = struct{}{}
		unseen = append(unseen, v)
	}
	if len(unseen) == 0 {
		return nil, nil
	}
	return s.sentRepo.FilterNew(ctx, userID, unseen)
}

func (s *SearchService) recordSent(ctx context.Context, userID string, items []SearchItem) error {
	now := s.now().UTC()
	for _, item := range items {
		sv := &domain.SentVideo{
			VideoID:  item.Video.ID,
			UserID:   userID,
			AuthorID: item.Video.AuthorID,
			Hashtag:  item.Hashtag,
			Score:    item.Score,
			SentAt:   now,
		}
		if err := s.sentRepo.Add(ctx, sv); err != nil {
			return err
		}
	}
	return nil
}

// Hashtags returns the ranked hashtags the engine would search for the user.
func (s *SearchService) Hashtags(ctx context.Context, userID string, limit int) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Hashtags", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "hashtags",
	})
	defer span.End()

	profile, err := s.profileRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.engine.GenerateHashtags(profile, limit), nil
}

// History returns a page of the user's delivery history.
func (s *SearchService) History(ctx context.Context, userID, cursor string, limit int) (*pagination.PageResult[*domain.SentVideo], error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.History", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "history",
	})
	defer span.End()

	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.sentRepo.ListRecent(ctx, userID, decoded, limit)
}

// HistoryStats summarizes the user's delivery history.
func (s *SearchService) HistoryStats(ctx context.Context, userID string) (*domain.HistoryStats, error) {
	return s.sentRepo.Stats(ctx, userID)
}
