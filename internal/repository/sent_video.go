package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scout-labs/tokscout/internal/domain"
	"github.com/scout-labs/tokscout/internal/pagination"
)

type SentVideoRepository struct {
	db dbtx
}

func NewSentVideoRepository(pool *pgxpool.Pool) *SentVideoRepository {
	return &SentVideoRepository{db: pool}
}

func NewSentVideoRepositoryWithTx(tx pgx.Tx) *SentVideoRepository {
	return &SentVideoRepository{db: tx}
}

// Add records a delivered video. Re-adding the same (user, video) pair keeps
// the original row.
func (r *SentVideoRepository) Add(ctx context.Context, sv *domain.SentVideo) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sent_videos (video_id, user_id, author_id, hashtag, score, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, video_id) DO NOTHING`,
		sv.VideoID, sv.UserID, nullableString(sv.AuthorID), nullableString(sv.Hashtag), sv.Score, sv.SentAt,
	)
	return err
}

// IsSent reports whether the video was already delivered to the user.
func (r *SentVideoRepository) IsSent(ctx context.Context, userID, videoID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM sent_videos WHERE user_id = $1 AND video_id = $2)`,
		userID, videoID,
	).Scan(&exists)
	return exists, err
}

// FilterNew returns the subset of candidates not yet delivered to the user,
// preserving input order.
func (r *SentVideoRepository) FilterNew(ctx context.Context, userID string, videos []domain.CandidateVideo) ([]domain.CandidateVideo, error) {
	if len(videos) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}

	rows, err := r.db.Query(ctx,
		`SELECT video_id FROM sent_videos WHERE user_id = $1 AND video_id = ANY($2)`,
		userID, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sent := make(map[string]struct{})
	for rows.Next() {
		var videoID string
		if err := rows.Scan(&videoID); err != nil {
			return nil, err
		}
		sent[videoID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fresh := make([]domain.CandidateVideo, 0, len(videos))
	for _, v := range videos {
		if _, ok := sent[v.ID]; !ok {
			fresh = append(fresh, v)
		}
	}
	return fresh, nil
}

// Stats summarizes a user's delivery history.
func (r *SentVideoRepository) Stats(ctx context.Context, userID string) (*domain.HistoryStats, error) {
	var stats domain.HistoryStats
	var avgScore *float64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT author_id), AVG(score), MIN(sent_at), MAX(sent_at)
		 FROM sent_videos WHERE user_id = $1`,
		userID,
	).Scan(&stats.TotalSent, &stats.UniqueAuthor, &avgScore, &stats.FirstSentAt, &stats.LastSentAt)
	if err != nil {
		return nil, err
	}
	if avgScore != nil {
		stats.AvgScore = *avgScore
	}
	return &stats, nil
}

// ListRecent returns the user's delivery history newest first, as a cursor
// page.
func (r *SentVideoRepository) ListRecent(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.SentVideo], error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT video_id, user_id, author_id, hashtag, score, sent_at
			 FROM sent_videos
			 WHERE user_id = $1 AND (sent_at, video_id) < ($2, $3)
			 ORDER BY sent_at DESC, video_id DESC
			 LIMIT $4`,
			userID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT video_id, user_id, author_id, hashtag, score, sent_at
			 FROM sent_videos
			 WHERE user_id = $1
			 ORDER BY sent_at DESC, video_id DESC
			 LIMIT $2`,
			userID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanSentVideoRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	result := &pagination.PageResult[*domain.SentVideo]{
		Items:   items,
		HasMore: hasMore,
	}
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		result.Cursor = pagination.EncodeCursor(last.VideoID, last.SentAt)
	}
	return result, nil
}

// Cleanup removes history rows older than the cutoff and returns how many
// were deleted.
func (r *SentVideoRepository) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM sent_videos WHERE sent_at < $1`,
		olderThan,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSentVideoRows(rows pgx.Rows) ([]*domain.SentVideo, error) {
	var results []*domain.SentVideo
	for rows.Next() {
		var sv domain.SentVideo
		var authorID, hashtag *string
		if err := rows.Scan(&sv.VideoID, &sv.UserID, &authorID, &hashtag, &sv.Score, &sv.SentAt); err != nil {
			return nil, err
		}
		if authorID != nil {
			sv.AuthorID = *authorID
		}
		if hashtag != nil {
			sv.Hashtag = *hashtag
		}
		results = append(results, &sv)
	}
	return results, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
