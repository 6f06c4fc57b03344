package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ProfileRefresher refreshes profiles whose data has gone stale.
type ProfileRefresher interface {
	RefreshStale(ctx context.Context, olderThan time.Time, batch, countPerUser int) (int, error)
}

// HistoryCleaner prunes old delivery-history rows.
type HistoryCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Time) (int64, error)
}

// RefreshWorkerConfig bounds one refresh pass.
type RefreshWorkerConfig struct {
	StaleAfter       time.Duration
	Batch            int
	CountPerUser     int
	HistoryRetention time.Duration
}

// DefaultRefreshWorkerConfig returns the standard refresh pass bounds.
func DefaultRefreshWorkerConfig() RefreshWorkerConfig {
	return RefreshWorkerConfig{
		StaleAfter:       24 * time.Hour,
		Batch:            50,
		CountPerUser:     100,
		HistoryRetention: 90 * 24 * time.Hour,
	}
}

// RefreshWorker keeps stored profiles warm and trims old delivery history.
type RefreshWorker struct {
	profiles ProfileRefresher
	history  HistoryCleaner
	cfg      RefreshWorkerConfig
	now      func() time.Time
}

// NewRefreshWorker creates a new RefreshWorker instance. history may be nil
// to disable history cleanup.
func NewRefreshWorker(profiles ProfileRefresher, history HistoryCleaner, cfg RefreshWorkerConfig) *RefreshWorker {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 24 * time.Hour
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}
	if cfg.CountPerUser <= 0 {
		cfg.CountPerUser = 100
	}
	return &RefreshWorker{
		profiles: profiles,
		history:  history,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run executes one pass: refresh stale profiles, then prune expired
// delivery history.
func (w *RefreshWorker) Run(ctx context.Context) error {
	now := w.now().UTC()

	refreshed, err := w.profiles.RefreshStale(ctx, now.Add(-w.cfg.StaleAfter), w.cfg.Batch, w.cfg.CountPerUser)
	if err != nil {
		return fmt.Errorf("failed to refresh stale profiles: %w", err)
	}
	if refreshed > 0 {
		log.Printf("Refreshed %d stale profiles", refreshed)
	}

	if w.history != nil && w.cfg.HistoryRetention > 0 {
		deleted, err := w.history.Cleanup(ctx, now.Add(-w.cfg.HistoryRetention))
		if err != nil {
			return fmt.Errorf("failed to clean up delivery history: %w", err)
		}
		if deleted > 0 {
			log.Printf("Removed %d expired delivery-history rows", deleted)
		}
	}

	return nil
}
