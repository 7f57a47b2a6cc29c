package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Kizhoo/message-api/internal/model"
)

type PostgresStatsRepo struct {
	db *sql.DB
}

func NewPostgresStatsRepo(db *sql.DB) *PostgresStatsRepo {
	return &PostgresStatsRepo{db: db}
}

func (r *PostgresStatsRepo) DailyTotals(ctx context.Context, windowDays int) ([]model.DailyStat, error) {
	if windowDays <= 0 {
		return nil, errors.New("windowDays must be > 0")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT stat_date, message_count, photo_count
		FROM daily_stats
		ORDER BY stat_date DESC
		LIMIT $1
	`, windowDays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DailyStat
	for rows.Next() {
		var d model.DailyStat
		if err := rows.Scan(&d.StatDate, &d.MessageCount, &d.PhotoCount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RefreshDailyStats recomputes the aggregate row for one calendar day from
// the messages table. Ran periodically; the upsert makes reruns harmless.
func (r *PostgresStatsRepo) RefreshDailyStats(ctx context.Context, day time.Time) error {
	date := day.UTC().Format("2006-01-02")

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_stats (stat_date, message_count, photo_count)
		SELECT $1::date,
		       COUNT(*),
		       COALESCE(SUM(photo_count), 0)
		FROM messages
		WHERE created_at >= $1::date
		  AND created_at < $1::date + INTERVAL '1 day'
		ON CONFLICT (stat_date) DO UPDATE
		SET message_count = EXCLUDED.message_count,
		    photo_count   = EXCLUDED.photo_count
	`, date)
	return err
}

var _ SubmissionRepository = (*PostgresSubmissionRepo)(nil)
var _ StatsRepository = (*PostgresStatsRepo)(nil)
