package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scout-labs/tokscout/internal/config"
	"github.com/scout-labs/tokscout/internal/database"
	"github.com/scout-labs/tokscout/internal/personalize"
	"github.com/scout-labs/tokscout/internal/repository"
	"github.com/scout-labs/tokscout/internal/service"
	"github.com/scout-labs/tokscout/internal/storage"
	"github.com/scout-labs/tokscout/internal/tiktok"
	"github.com/spf13/cobra"
)

func ProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage preference profiles",
		Long:  "Inspect, reset, export and import stored preference profiles",
	}

	cmd.AddCommand(ProfileShowCmd())
	cmd.AddCommand(ProfileResetCmd())
	cmd.AddCommand(ProfileExportCmd())
	cmd.AddCommand(ProfileImportCmd())

	return cmd
}

func ProfileShowCmd() *cobra.Command {
	var topN int

	cmd := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user's preference profile",
		Long:  "Show the top hashtags, keywords, creators and category affinities of a stored profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runProfileShow(args[0], topN, outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().IntVarP(&topN, "top", "n", 10, "Number of entries per ranking")

	return cmd
}

func runProfileShow(userID string, topN int, outputFormat string) error {
	ctx := context.Background()

	pool, svc, err := getProfileService(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	summary, err := svc.Summary(ctx, userID, topN)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	fmt.Printf("Profile for %s (%d liked videos analyzed, updated %s)\n",
		summary.UserID, summary.SampleCount, summary.LastUpdated.Format("2006-01-02 15:04:05"))
	fmt.Println("Top hashtags:")
	for _, e := range summary.TopHashtags {
		fmt.Printf("  #%s (%d)\n", e.Name, e.Count)
	}
	fmt.Println("Top keywords:")
	for _, e := range summary.TopKeywords {
		fmt.Printf("  %s (%d)\n", e.Name, e.Count)
	}
	fmt.Println("Top creators:")
	for _, e := range summary.TopCreators {
		fmt.Printf("  @%s (%d)\n", e.Name, e.Count)
	}
	fmt.Println("Category affinities:")
	for _, c := range summary.Categories {
		fmt.Printf("  %s: %.2f\n", c.Name, c.Score)
	}
	fmt.Printf("Engagement: avg %.0f likes, %.0f views, rate %.3f\n",
		summary.Engagement.AvgLikes, summary.Engagement.AvgViews, summary.Engagement.AvgRate)

	return nil
}

func ProfileResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <user-id>",
		Short: "Delete a user's preference profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileReset(args[0])
		},
	}

	return cmd
}

func runProfileReset(userID string) error {
	ctx := context.Background()

	pool, svc, err := getProfileService(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := svc.Reset(ctx, userID); err != nil {
		return fmt.Errorf("failed to reset profile: %w", err)
	}

	fmt.Printf("Profile reset for %s\n", userID)
	return nil
}

func ProfileExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <user-id>",
		Short: "Export a user's profile to the snapshot store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileExport(args[0])
		},
	}

	return cmd
}

func runProfileExport(userID string) error {
	ctx := context.Background()

	pool, svc, err := getProfileService(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	key, err := svc.Export(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to export profile: %w", err)
	}

	fmt.Printf("Profile exported: %s\n", key)
	return nil
}

func ProfileImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <user-id> <key>",
		Short: "Replace a user's profile with a stored snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileImport(args[0], args[1])
		},
	}

	return cmd
}

func runProfileImport(userID, key string) error {
	ctx := context.Background()

	pool, svc, err := getProfileService(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	profile, err := svc.Import(ctx, userID, key)
	if err != nil {
		return fmt.Errorf("failed to import profile: %w", err)
	}

	fmt.Printf("Profile imported for %s (%d liked videos analyzed)\n", userID, profile.SampleCount)
	return nil
}

func getProfileService(ctx context.Context) (*pgxpool.Pool, *service.ProfileService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var snapshots service.SnapshotStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		snapshots = s3Client
	}

	table, err := cfg.CategoryTable()
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	extractor := personalize.NewExtractor(table)
	analyzer := personalize.NewAnalyzer(extractor, cfg.CategoryWeight)
	scraper := tiktok.NewClient(cfg.ScraperBaseURL, cfg.ScraperAPIKey)

	profileRepo := repository.NewProfileRepository(pool)
	svc := service.NewProfileService(profileRepo, scraper, analyzer, snapshots)

	return pool, svc, nil
}
