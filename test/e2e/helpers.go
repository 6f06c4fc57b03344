//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scout-labs/tokscout/internal/api/handlers"
	"github.com/scout-labs/tokscout/internal/filter"
	"github.com/scout-labs/tokscout/internal/personalize"
	"github.com/scout-labs/tokscout/internal/repository"
	"github.com/scout-labs/tokscout/internal/server"
	"github.com/scout-labs/tokscout/internal/service"
	"github.com/scout-labs/tokscout/internal/storage"
	"github.com/scout-labs/tokscout/internal/testutil"
	"github.com/scout-labs/tokscout/internal/tiktok"
)

const e2eAPIToken = "e2e-token"

// VideoFixture mirrors the scraper wire format for one video.
type VideoFixture struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Caption   string `json:"caption"`
	URL       string `json:"url"`
	Likes     int64  `json:"likes"`
	Views     int64  `json:"views"`
	Comments  int64  `json:"comments"`
	Shares    int64  `json:"shares"`
	CreatedAt int64  `json:"created_at"`
}

// FakeScraper serves scraper API responses from in-memory fixtures.
type FakeScraper struct {
	mu       sync.Mutex
	liked    map[string][]VideoFixture
	hashtags map[string][]VideoFixture
	trending []VideoFixture
	server   *httptest.Server
}

func NewFakeScraper() *FakeScraper {
	fs := &FakeScraper{
		liked:    make(map[string][]VideoFixture),
		hashtags: make(map[string][]VideoFixture),
	}
	fs.server = httptest.NewServer(http.HandlerFunc(fs.handle))
	return fs
}

func (fs *FakeScraper) URL() string { return fs.server.URL }

func (fs *FakeScraper) Close() { fs.server.Close() }

func (fs *FakeScraper) SetLiked(userID string, videos []VideoFixture) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.liked[userID] = videos
}

func (fs *FakeScraper) SetHashtag(tag string, videos []VideoFixture) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.hashtags[tag] = videos
}

func (fs *FakeScraper) SetTrending(videos []VideoFixture) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.trending = videos
}

func (fs *FakeScraper) handle(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var videos []VideoFixture
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/v1/users/") && strings.HasSuffix(path, "/liked"):
		userID := strings.TrimSuffix(strings.TrimPrefix(path, "/v1/users/"), "/liked")
		videos = fs.liked[userID]
	case strings.HasPrefix(path, "/v1/hashtags/") && strings.HasSuffix(path, "/videos"):
		tag := strings.TrimSuffix(strings.TrimPrefix(path, "/v1/hashtags/"), "/videos")
		videos = fs.hashtags[tag]
	case path == "/v1/trending":
		videos = fs.trending
	case strings.HasPrefix(path, "/v1/creators/") && strings.HasSuffix(path, "/videos"):
		// No creator fixtures; served empty so searches fall through to trending.
	default:
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown path"})
		return
	}

	if videos == nil {
		videos = []VideoFixture{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"videos": videos})
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	Scraper    *FakeScraper
	S3Client   *storage.S3Client
	Server     *httptest.Server
	HTTPClient *http.Client
}

// SetupE2EEnv creates a full E2E environment: containers, a fake scraper and
// an in-process API server backed by real repositories.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-snapshots",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	scraper := NewFakeScraper()
	client := tiktok.NewClient(scraper.URL(), "")

	table := personalize.DefaultCategoryTable()
	extractor := personalize.NewExtractor(table)
	analyzer := personalize.NewAnalyzer(extractor, 1.0)
	scorer := personalize.NewScorer(extractor, personalize.DefaultWeights(), 10, testBaseline())
	engine := personalize.NewSearchEngine(table)
	diversifier := personalize.NewDiversifier(engine, 7, nil)

	profileRepo := repository.NewProfileRepository(pool)
	sentRepo := repository.NewSentVideoRepository(pool)

	profileSvc := service.NewProfileService(profileRepo, client, analyzer, s3Client)
	searchSvc := service.NewSearchService(profileRepo, sentRepo, client, scorer, diversifier, engine, service.SearchConfig{
		MinPreferenceScore: 0.1,
		MaxAttempts:        3,
		MaxResults:         30,
		VideosPerHashtag:   15,
		HashtagsPerAttempt: 15,
	})

	router := server.NewRouter(server.RouterConfig{
		APIToken:       e2eAPIToken,
		ProfileHandler: handlers.NewProfileHandler(profileSvc, 100),
		SearchHandler:  handlers.NewSearchHandler(searchSvc),
	})
	srv := httptest.NewServer(router)

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		Scraper:    scraper,
		S3Client:   s3Client,
		Server:     srv,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	t.Cleanup(func() {
		srv.Close()
		scraper.Close()
		pool.Close()
		_ = pgC.Terminate(ctx)
		_ = s3C.Terminate(ctx)
	})

	return env
}

// DoRequest sends an authenticated request to the API server and returns the
// response.
func (env *E2ETestEnv) DoRequest(method, path string, body interface{}) *http.Response {
	env.T.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			env.T.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, reader)
	if err != nil {
		env.T.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+e2eAPIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := env.HTTPClient.Do(req)
	if err != nil {
		env.T.Fatalf("request failed: %v", err)
	}
	return resp
}

// DecodeData decodes the "data" field of a success envelope into out.
func (env *E2ETestEnv) DecodeData(resp *http.Response, out interface{}) {
	env.T.Helper()
	defer resp.Body.Close()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		env.T.Fatalf("failed to decode response envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		env.T.Fatalf("failed to decode response data: %v", err)
	}
}

func testBaseline() *filter.Baseline {
	return filter.NewBaseline(
		filter.TrendThresholds{
			MinLikes:          1000,
			MinViews:          10000,
			MinShares:         50,
			MinComments:       20,
			MinEngagementRate: 0.01,
		},
		filter.ContentRules{
			MinCaptionLength: 40,
			ExcludeKeywords:  []string{"ads", "sponsored", "promotion"},
		},
	)
}

// likedFixture builds a liked video that clears the baseline filter and
// carries recognizable hashtags for profile building.
func likedFixture(id, author string, tags ...string) VideoFixture {
	return candidateFixture(id, author, tags...)
}

func candidateFixture(id, author string, tags ...string) VideoFixture {
	var sb strings.Builder
	sb.WriteString("Step by step walkthrough of the full recipe with timing, ratios and plating notes for home cooks ")
	for _, tag := range tags {
		sb.WriteString("#" + tag + " ")
	}
	return VideoFixture{
		ID:        id,
		AuthorID:  author,
		Caption:   sb.String(),
		URL:       fmt.Sprintf("https://example.com/%s", id),
		Likes:     50000,
		Views:     600000,
		Comments:  800,
		Shares:    1200,
		CreatedAt: time.Now().Add(-24 * time.Hour).Unix(),
	}
}
