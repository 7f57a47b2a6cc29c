package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Kizhoo/message-api/internal/repo"
)

const (
	statsWindowDays = 30
	recentLimit     = 5
)

type StatTotals struct {
	Messages int `json:"messages"`
	Photos   int `json:"photos"`
}

type RecentMessage struct {
	SenderName  string    `json:"senderName"`
	MessageText string    `json:"messageText"`
	PhotoCount  int       `json:"photoCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Stats struct {
	Total  StatTotals      `json:"total"`
	Today  StatTotals      `json:"today"`
	Recent []RecentMessage `json:"recent"`
}

// StatsCache is an optional short-TTL cache in front of the aggregation
// queries; it absorbs the client-side 30-second polling. Get returns nil on
// a miss.
type StatsCache interface {
	Get(ctx context.Context) (*Stats, error)
	Set(ctx context.Context, stats *Stats) error
}

type StatsService struct {
	subs  repo.SubmissionRepository
	stats repo.StatsRepository
	cache StatsCache
	now   func() time.Time
}

func NewStatsService(subs repo.SubmissionRepository, stats repo.StatsRepository) *StatsService {
	return &StatsService{
		subs:  subs,
		stats: stats,
		now:   time.Now,
	}
}

// WithCache attaches a cache. Without one every call hits the store.
func (s *StatsService) WithCache(c StatsCache) *StatsService {
	s.cache = c
	return s
}

// WithClock overrides the time source. Tests only.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// GetStats sums the last 30 daily rows, picks today's counters out of that
// window (zero when absent) and attaches the most recent submissions. Empty
// data produces zeros and an empty list, never an error.
func (s *StatsService) GetStats(ctx context.Context) (*Stats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			slog.Warn("stats cache read failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	days, err := s.stats.DailyTotals(ctx, statsWindowDays)
	if err != nil {
		return nil, err
	}

	out := &Stats{Recent: []RecentMessage{}}

	today := s.now().UTC().Format("2006-01-02")
	for _, d := range days {
		out.Total.Messages += d.MessageCount
		out.Total.Photos += d.PhotoCount
		if d.StatDate.UTC().Format("2006-01-02") == today {
			out.Today.Messages = d.MessageCount
			out.Today.Photos = d.PhotoCount
		}
	}

	recent, err := s.subs.ListRecent(ctx, recentLimit)
	if err != nil {
		return nil, err
	}
	for _, m := range recent {
		out.Recent = append(out.Recent, RecentMessage{
			SenderName:  m.SenderName,
			MessageText: m.MessageText,
			PhotoCount:  m.PhotoCount,
			CreatedAt:   m.CreatedAt,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, out); err != nil {
			slog.Warn("stats cache write failed", "error", err)
		}
	}

	return out, nil
}
