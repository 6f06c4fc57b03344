package service

import (
	"context"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/scout-labs/tokscout/internal/domain"
	"github.com/scout-labs/tokscout/internal/filter"
	"github.com/scout-labs/tokscout/internal/pagination"
	"github.com/scout-labs/tokscout/internal/personalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSentRepo struct {
	sent map[string]map[string]*domain.SentVideo
}

func newFakeSentRepo() *fakeSentRepo {
	return &fakeSentRepo{sent: make(map[string]map[string]*domain.SentVideo)}
}

func (r *fakeSentRepo) Add(ctx context.Context, sv *domain.SentVideo) error {
	if r.sent[sv.UserID] == nil {
		r.sent[sv.UserID] = make(map[string]*domain.SentVideo)
	}
	if _, ok := r.sent[sv.UserID][sv.VideoID]; !ok {
		r.sent[sv.UserID][sv.VideoID] = sv
	}
	return nil
}

func (r *fakeSentRepo) FilterNew(ctx context.Context, userID string, videos []domain.CandidateVideo) ([]domain.CandidateVideo, error) {
	var fresh []domain.CandidateVideo
	for _, v := range videos {
		if _, ok := r.sent[userID][v.ID]; !ok {
			fresh = append(fresh, v)
		}
	}
	return fresh, nil
}

func (r *fakeSentRepo) Stats(ctx context.Context, userID string) (*domain.HistoryStats, error) {
	stats := &domain.HistoryStats{}
	authors := make(map[string]struct{})
	var total float64
	for _, sv := range r.sent[userID] {
		stats.TotalSent++
		authors[sv.AuthorID] = struct{}{}
		total += sv.Score
	}
	stats.UniqueAuthor = int64(len(authors))
	if stats.TotalSent > 0 {
		stats.AvgScore = total / float64(stats.TotalSent)
	}
	return stats, nil
}

func (r *fakeSentRepo) ListRecent(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.SentVideo], error) {
	var items []*domain.SentVideo
	for _, sv := range r.sent[userID] {
		items = append(items, sv)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].SentAt.Equal(items[j].SentAt) {
			return items[i].SentAt.After(items[j].SentAt)
		}
		return items[i].VideoID > items[j].VideoID
	})
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	return &pagination.PageResult[*domain.SentVideo]{Items: items, HasMore: hasMore}, nil
}

var _ SentVideoRepositoryInterface = (*fakeSentRepo)(nil)

type fakeCandidateSource struct {
	byHashtag    map[string][]domain.CandidateVideo
	byCreator    map[string][]domain.CandidateVideo
	trending     []domain.CandidateVideo
	hashtagCalls []string
	creatorCalls []string
}

func (s *fakeCandidateSource) FetchByHashtag(ctx context.Context, hashtag string, limit int) ([]domain.CandidateVideo, error) {
	s.hashtagCalls = append(s.hashtagCalls, hashtag)
	return s.byHashtag[hashtag], nil
}

func (s *fakeCandidateSource) FetchTrending(ctx context.Context, limit int) ([]domain.CandidateVideo, error) {
	return s.trending, nil
}

func (s *fakeCandidateSource) FetchByCreator(ctx context.Context, creatorID string, limit int) ([]domain.CandidateVideo, error) {
	s.creatorCalls = append(s.creatorCalls, creatorID)
	return s.byCreator[creatorID], nil
}

var _ CandidateSource = (*fakeCandidateSource)(nil)

func candidate(id, author, caption string) domain.CandidateVideo {
	return domain.CandidateVideo{
		ID:       id,
		AuthorID: author,
		Caption:  caption,
		Likes:    1500,
		Views:    30000,
		Comments: 50,
		Shares:   60,
	}
}

func searchProfile() *domain.PreferenceProfile {
	p := domain.NewPreferenceProfile()
	p.HashtagFreq["fyp"] = 50
	p.HashtagFreq["mixing"] = 3
	p.HashtagFreq["cookingtips"] = 2
	p.CreatorFreq["chef_anna"] = 5
	p.SampleCount = 10
	return p
}

func searchConfig() SearchConfig {
	return SearchConfig{
		MinPreferenceScore: 0.3,
		MaxAttempts:        3,
		MaxResults:         30,
		VideosPerHashtag:   5,
		HashtagsPerAttempt: 3,
	}
}

func newTestSearchService(repo *fakeProfileRepo, sent *fakeSentRepo, src *fakeCandidateSource, cfg SearchConfig) *SearchService {
	table := personalize.DefaultCategoryTable()
	extractor := personalize.NewExtractor(table)
	baseline := filter.NewBaseline(
		filter.TrendThresholds{MinLikes: 1, MinViews: 1},
		filter.ContentRules{MinCaptionLength: 1},
	)
	scorer := personalize.NewScorer(extractor, personalize.DefaultWeights(), 10, baseline)
	engine := personalize.NewSearchEngine(table)
	diversifier := personalize.NewDiversifier(engine, 1, rand.New(rand.NewSource(42)))
	return NewSearchService(repo, sent, src, scorer, diversifier, engine, cfg)
}

func TestSearchService_Search_HappyPath(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["user-1"] = searchProfile()

	sent := newFakeSentRepo()
	src := &fakeCandidateSource{byHashtag: map[string][]domain.CandidateVideo{
		"fyp": {
			candidate("v1", "chef_anna", "watch this #fyp"),
			candidate("v2", "chef_anna", "another #fyp clip"),
		},
	}}

	svc := newTestSearchService(repo, sent, src, searchConfig())

	out, err := svc.Search(context.Background(), "user-1", 2)
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, 1, out.Attempts)

	for _, item := range out.Items {
		assert.Equal(t, "hashtag", item.Source)
		assert.Equal(t, "fyp", item.Hashtag)
		assert.GreaterOrEqual(t, item.Score, 0.3)
	}

	// Results are sorted best first.
	assert.GreaterOrEqual(t, out.Items[0].Score, out.Items[1].Score)

	// Every delivered video is recorded.
	stats, err := sent.Stats(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalSent)
}

func TestSearchService_Search_ExcludesAlreadySent(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["user-1"] = searchProfile()

	sent := newFakeSentRepo()
	require.NoError(t, sent.Add(context.Background(), &domain.SentVideo{
		UserID: "user-1", VideoID: "v1", SentAt: time.Now().UTC(),
	}))

	src := &fakeCandidateSource{
		byHashtag: map[string][]domain.CandidateVideo{
			"fyp": {
				candidate("v1", "chef_anna", "seen before #fyp"),
				candidate("v2", "chef_anna", "fresh upload #fyp"),
			},
		},
		trending: []domain.CandidateVideo{
			candidate("v3", "someone_new", "trending clip"),
		},
	}

	svc := newTestSearchService(repo, sent, src, searchConfig())

	out, err := svc.Search(context.Background(), "user-1", 2)
	require.NoError(t, err)
	require.Len(t, out.Items, 2)

	ids := []string{out.Items[0].Video.ID, out.Items[1].Video.ID}
	assert.NotContains(t, ids, "v1")
	assert.Contains(t, ids, "v2")
	assert.Contains(t, ids, "v3")
}

func TestSearchService_Search_NeverRepeatsHashtagAcrossAttempts(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["user-1"] = searchProfile()

	sent := newFakeSentRepo()
	// No hashtag yields any candidate, forcing retries until hashtags run out.
	src := &fakeCandidateSource{byHashtag: map[string][]domain.CandidateVideo{}}

	cfg := searchConfig()
	cfg.HashtagsPerAttempt = 2

	svc := newTestSearchService(repo, sent, src, cfg)

	out, err := svc.Search(context.Background(), "user-1", 5)
	require.NoError(t, err)
	assert.Empty(t, out.Items)

	counts := make(map[string]int)
	for _, tag := range src.hashtagCalls {
		counts[tag]++
	}
	for tag, n := range counts {
		assert.Equal(t, 1, n, "hashtag %s queried more than once", tag)
	}
	assert.Len(t, counts, 3)
}

func TestSearchService_Search_NoProfileFallsBackToTrending(t *testing.T) {
	repo := newFakeProfileRepo()
	sent := newFakeSentRepo()
	src := &fakeCandidateSource{
		trending: []domain.CandidateVideo{
			candidate("t1", "viral_person", "everyone is watching this"),
			candidate("t2", "viral_person", "and this too"),
		},
	}

	svc := newTestSearchService(repo, sent, src, searchConfig())

	out, err := svc.Search(context.Background(), "new-user", 2)
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, 0, out.Attempts)
	assert.Empty(t, src.hashtagCalls)

	for _, item := range out.Items {
		assert.Equal(t, "trending", item.Source)
		// Neutral score for a user with no profile.
		assert.InDelta(t, 0.5, item.Score, 1e-9)
	}
}

func TestSearchService_Search_FillsFromPreferredCreators(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["user-1"] = searchProfile()

	sent := newFakeSentRepo()
	src := &fakeCandidateSource{
		byHashtag: map[string][]domain.CandidateVideo{
			"fyp": {candidate("v1", "chef_anna", "watch this #fyp")},
		},
		byCreator: map[string][]domain.CandidateVideo{
			"chef_anna": {candidate("c1", "chef_anna", "new upload #fyp #mixing")},
		},
	}

	svc := newTestSearchService(repo, sent, src, searchConfig())

	out, err := svc.Search(context.Background(), "user-1", 2)
	require.NoError(t, err)
	require.Len(t, out.Items, 2)

	assert.Equal(t, []string{"chef_anna"}, src.creatorCalls)

	sources := map[string]string{}
	for _, item := range out.Items {
		sources[item.Video.ID] = item.Source
	}
	assert.Equal(t, "hashtag", sources["v1"])
	assert.Equal(t, "creator", sources["c1"])
}

func TestSearchService_Search_NoCandidatesAnywhere(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["user-1"] = searchProfile()

	sent := newFakeSentRepo()
	svc := newTestSearchService(repo, sent, &fakeCandidateSource{}, searchConfig())

	// A dry session returns an empty page and records nothing.
	out, err := svc.Search(context.Background(), "user-1", 5)
	require.NoError(t, err)
	assert.Empty(t, out.Items)

	stats, err := sent.Stats(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalSent)
}

func TestSearchService_Search_ThresholdFiltersLowScores(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["user-1"] = searchProfile()

	// Candidate shares nothing with the profile, so its score stays below
	// the threshold.
	src := &fakeCandidateSource{byHashtag: map[string][]domain.CandidateVideo{
		"fyp": {candidate("v1", "stranger", "unrelated #garden walk")},
	}}

	svc := newTestSearchService(repo, newFakeSentRepo(), src, searchConfig())

	out, err := svc.Search(context.Background(), "user-1", 5)
	require.NoError(t, err)
	assert.Empty(t, out.Items)
}

func TestSearchService_Hashtags(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["user-1"] = searchProfile()

	svc := newTestSearchService(repo, newFakeSentRepo(), &fakeCandidateSource{}, searchConfig())

	tags, err := svc.Hashtags(context.Background(), "user-1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"fyp", "mixing"}, tags)
}

func TestSearchService_Hashtags_NoProfile(t *testing.T) {
	svc := newTestSearchService(newFakeProfileRepo(), newFakeSentRepo(), &fakeCandidateSource{}, searchConfig())

	_, err := svc.Hashtags(context.Background(), "missing", 5)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestSearchService_History_InvalidCursor(t *testing.T) {
	svc := newTestSearchService(newFakeProfileRepo(), newFakeSentRepo(), &fakeCandidateSource{}, searchConfig())

	_, err := svc.History(context.Background(), "user-1", "not-base64!!", 10)
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
}

func TestSearchService_History(t *testing.T) {
	sent := newFakeSentRepo()
	now := time.Now().UTC()
	require.NoError(t, sent.Add(context.Background(), &domain.SentVideo{UserID: "user-1", VideoID: "v1", SentAt: now.Add(-time.Hour)}))
	require.NoError(t, sent.Add(context.Background(), &domain.SentVideo{UserID: "user-1", VideoID: "v2", SentAt: now}))

	svc := newTestSearchService(newFakeProfileRepo(), sent, &fakeCandidateSource{}, searchConfig())

	page, err := svc.History(context.Background(), "user-1", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "v2", page.Items[0].VideoID)
}
