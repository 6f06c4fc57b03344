package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scout-labs/tokscout/internal/domain"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories can
// run against the pool or inside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type ProfileRepository struct {
	db dbtx
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: pool}
}

func NewProfileRepositoryWithTx(tx pgx.Tx) *ProfileRepository {
	return &ProfileRepository{db: tx}
}

// GetByUser loads the stored profile for a user. Returns
// domain.ErrProfileNotFound when the user has no stored profile yet.
func (r *ProfileRepository) GetByUser(ctx context.Context, userID string) (*domain.PreferenceProfile, error) {
	var snapshot []byte
	err := r.db.QueryRow(ctx,
		`SELECT snapshot FROM preference_profiles WHERE user_id = $1`,
		userID,
	).Scan(&snapshot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return domain.DecodeProfile(snapshot)
}

// Upsert stores the profile for a user, replacing any previous snapshot.
func (r *ProfileRepository) Upsert(ctx context.Context, userID string, p *domain.PreferenceProfile) error {
	snapshot, err := domain.EncodeProfile(p)
	if err != nil {
		return err
	}

	updatedAt := p.LastUpdated
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO preference_profiles (user_id, snapshot, sample_count, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET snapshot = EXCLUDED.snapshot, sample_count = EXCLUDED.sample_count, updated_at = EXCLUDED.updated_at`,
		userID, snapshot, p.SampleCount, updatedAt,
	)
	return err
}

// Delete removes a user's stored profile. Deleting an absent profile is not
// an error.
func (r *ProfileRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM preference_profiles WHERE user_id = $1`,
		userID,
	)
	return err
}

// ListStale returns user IDs whose profiles have not been updated since the
// given cutoff, oldest first.
func (r *ProfileRepository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM preference_profiles
		 WHERE updated_at < $1
		 ORDER BY updated_at ASC
		 LIMIT $2`,
		olderThan, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, rows.Err()
}
