package model

import "time"

type RelayStatus string

const (
	Pending RelayStatus = "pending"
	Sent    RelayStatus = "sent"
	Failed  RelayStatus = "failed"
)

// Submission is one visitor message, optionally accompanied by photos.
// Photos themselves are not stored, only their count.
type Submission struct {
	ID                string
	SenderName        string
	MessageText       string
	PhotoCount        int
	RelayStatus       RelayStatus
	TelegramMessageID *string
	TelegramError     *string
	ClientIP          string
	UserAgent         string
	CreatedAt         time.Time
}

// DailyStat is one precomputed per-day aggregate row.
type DailyStat struct {
	StatDate     time.Time
	MessageCount int
	PhotoCount   int
}
