package repo

import (
	"context"
	"time"

	"github.com/Kizhoo/message-api/internal/model"
)

// NewSubmission carries the caller-supplied fields of a submission;
// id, status and creation time are assigned by the repository.
type NewSubmission struct {
	SenderName  string
	MessageText string
	PhotoCount  int
	ClientIP    string
	UserAgent   string
}

type SubmissionRepository interface {
	Create(ctx context.Context, n NewSubmission) (model.Submission, error)
	MarkSent(ctx context.Context, id, telegramMessageID string) error
	MarkFailed(ctx context.Context, id, reason string) error
	ListRecent(ctx context.Context, limit int) ([]model.Submission, error)
}

type StatsRepository interface {
	DailyTotals(ctx context.Context, windowDays int) ([]model.DailyStat, error)
	RefreshDailyStats(ctx context.Context, day time.Time) error
}
