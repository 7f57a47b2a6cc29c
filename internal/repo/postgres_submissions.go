package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Kizhoo/message-api/internal/model"
)

type PostgresSubmissionRepo struct {
	db *sql.DB
}

func NewPostgresSubmissionRepo(db *sql.DB) *PostgresSubmissionRepo {
	return &PostgresSubmissionRepo{db: db}
}

func (r *PostgresSubmissionRepo) Create(ctx context.Context, n NewSubmission) (model.Submission, error) {
	sub := model.Submission{
		ID:          uuid.NewString(),
		SenderName:  n.SenderName,
		MessageText: n.MessageText,
		PhotoCount:  n.PhotoCount,
		RelayStatus: model.Pending,
		ClientIP:    n.ClientIP,
		UserAgent:   n.UserAgent,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_name, message_text, photo_count,
		                      telegram_status, user_ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7)
	`, sub.ID, sub.SenderName, sub.MessageText, sub.PhotoCount,
		sub.ClientIP, sub.UserAgent, sub.CreatedAt)
	if err != nil {
		return model.Submission{}, err
	}
	return sub, nil
}

// MarkSent records the relay outcome. The status guard keeps a terminal
// record from flipping to the other terminal state; repeating the same call
// rewrites identical values, so the operation is idempotent by id.
func (r *PostgresSubmissionRepo) MarkSent(ctx context.Context, id, telegramMessageID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET telegram_status = 'sent',
		    telegram_message_id = $2
		WHERE id = $1 AND telegram_status IN ('pending', 'sent')
	`, id, telegramMessageID)
	return err
}

func (r *PostgresSubmissionRepo) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET telegram_status = 'failed',
		    telegram_error = $2
		WHERE id = $1 AND telegram_status IN ('pending', 'failed')
	`, id, reason)
	return err
}

func (r *PostgresSubmissionRepo) ListRecent(ctx context.Context, limit int) ([]model.Submission, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_name, message_text, photo_count, telegram_status,
		       telegram_message_id, telegram_error, user_ip, user_agent, created_at
		FROM messages
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Submission
	for rows.Next() {
		var s model.Submission
		var status string
		var msgID sql.NullString
		var relayErr sql.NullString

		if err := rows.Scan(
			&s.ID,
			&s.SenderName,
			&s.MessageText,
			&s.PhotoCount,
			&status,
			&msgID,
			&relayErr,
			&s.ClientIP,
			&s.UserAgent,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}

		s.RelayStatus = model.RelayStatus(status)
		if msgID.Valid {
			v := msgID.String
			s.TelegramMessageID = &v
		}
		if relayErr.Valid {
			v := relayErr.String
			s.TelegramError = &v
		}

		out = append(out, s)
	}
	return out, rows.Err()
}
