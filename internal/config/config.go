package config

import (
	"fmt"
	"log"
	"os"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/scout-labs/tokscout/internal/filter"
	"github.com/scout-labs/tokscout/internal/personalize"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL      string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMinConns int32  `envconfig:"DATABASE_MIN_CONNS" default:"2"`

	// Static bearer token for the HTTP API; empty disables auth (dev only).
	APIToken string `envconfig:"API_TOKEN"`

	// Upstream scraper API serving liked/hashtag/trending feeds.
	ScraperBaseURL string `envconfig:"SCRAPER_BASE_URL" default:"http://localhost:9100"`
	ScraperAPIKey  string `envconfig:"SCRAPER_API_KEY"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"tokscout-snapshots"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Personalization scoring weights. Must sum to 1.0.
	WeightHashtag    float64 `envconfig:"WEIGHT_HASHTAG" default:"0.30"`
	WeightKeyword    float64 `envconfig:"WEIGHT_KEYWORD" default:"0.25"`
	WeightCreator    float64 `envconfig:"WEIGHT_CREATOR" default:"0.20"`
	WeightCategory   float64 `envconfig:"WEIGHT_CATEGORY" default:"0.15"`
	WeightEngagement float64 `envconfig:"WEIGHT_ENGAGEMENT" default:"0.10"`

	MinPreferenceScore float64 `envconfig:"MIN_PREFERENCE_SCORE" default:"0.3"`
	CategoryWeight     float64 `envconfig:"CATEGORY_WEIGHT" default:"1.0"`
	TopCreators        int     `envconfig:"TOP_CREATORS" default:"10"`
	PopularHashtagK    int     `envconfig:"POPULAR_HASHTAG_K" default:"7"`
	LikedAnalyzeCount  int     `envconfig:"LIKED_ANALYZE_COUNT" default:"100"`
	MaxSearchAttempts  int     `envconfig:"MAX_SEARCH_ATTEMPTS" default:"3"`
	MaxResults         int     `envconfig:"MAX_RESULTS" default:"30"`
	VideosPerHashtag   int     `envconfig:"VIDEOS_PER_HASHTAG" default:"15"`
	HashtagsPerAttempt int     `envconfig:"HASHTAGS_PER_ATTEMPT" default:"15"`

	// Baseline trend filters.
	MinLikes          int64   `envconfig:"MIN_LIKES" default:"1000"`
	MinViews          int64   `envconfig:"MIN_VIEWS" default:"10000"`
	MinShares         int64   `envconfig:"MIN_SHARES" default:"50"`
	MinComments       int64   `envconfig:"MIN_COMMENTS" default:"20"`
	MinEngagementRate float64 `envconfig:"MIN_ENGAGEMENT_RATE" default:"0.01"`

	// Baseline content filters.
	MinCaptionLength int      `envconfig:"MIN_CAPTION_LENGTH" default:"100"`
	ExcludeKeywords  []string `envconfig:"EXCLUDE_KEYWORDS" default:"ads,sponsored,promotion"`

	// Optional JSON file overriding the built-in category table.
	CategoryTablePath string `envconfig:"CATEGORY_TABLE_PATH"`

	// Background refresh of stale profiles.
	RefreshIntervalMinutes int `envconfig:"REFRESH_INTERVAL_MINUTES" default:"60"`
	ProfileStaleHours      int `envconfig:"PROFILE_STALE_HOURS" default:"24"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("TOKSCOUT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate performs the startup checks that must never surface as per-video
// scoring failures: weight sum, threshold sanity, category table shape.
func (c *Config) Validate() error {
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("invalid scoring weights: %w", err)
	}
	if c.MinPreferenceScore < 0 || c.MinPreferenceScore > 1 {
		return fmt.Errorf("MIN_PREFERENCE_SCORE must be in [0,1], got %v", c.MinPreferenceScore)
	}
	table, err := c.CategoryTable()
	if err != nil {
		return err
	}
	if err := table.Validate(); err != nil {
		return fmt.Errorf("invalid category table: %w", err)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// Weights returns the configured scoring weights.
func (c *Config) Weights() personalize.Weights {
	return personalize.Weights{
		Hashtag:    c.WeightHashtag,
		Keyword:    c.WeightKeyword,
		Creator:    c.WeightCreator,
		Category:   c.WeightCategory,
		Engagement: c.WeightEngagement,
	}
}

// Baseline returns the configured baseline filter.
func (c *Config) Baseline() *filter.Baseline {
	return filter.NewBaseline(
		filter.TrendThresholds{
			MinLikes:          c.MinLikes,
			MinViews:          c.MinViews,
			MinShares:         c.MinShares,
			MinComments:       c.MinComments,
			MinEngagementRate: c.MinEngagementRate,
		},
		filter.ContentRules{
			MinCaptionLength: c.MinCaptionLength,
			ExcludeKeywords:  c.ExcludeKeywords,
		},
	)
}

// CategoryTable returns the configured category table: the built-in default,
// or the contents of CATEGORY_TABLE_PATH when set.
func (c *Config) CategoryTable() (personalize.CategoryTable, error) {
	if c.CategoryTablePath == "" {
		return personalize.DefaultCategoryTable(), nil
	}

	data, err := os.ReadFile(c.CategoryTablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read category table %s: %w", c.CategoryTablePath, err)
	}

	var raw []struct {
		Name     string   `json:"name"`
		Hashtags []string `json:"hashtags"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse category table %s: %w", c.CategoryTablePath, err)
	}

	table := make(personalize.CategoryTable, 0, len(raw))
	for _, entry := range raw {
		table = append(table, personalize.Category{Name: entry.Name, Hashtags: entry.Hashtags})
	}
	return table, nil
}
