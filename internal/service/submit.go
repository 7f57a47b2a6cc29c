package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Kizhoo/message-api/internal/repo"
	"github.com/Kizhoo/message-api/internal/validate"
)

// maxErrorLen caps the relay error text stored against a failed submission.
const maxErrorLen = 500

// RelaySender is the outbound surface the pipeline needs from the Telegram
// client.
type RelaySender interface {
	SendMessage(ctx context.Context, chatID, text string) (string, error)
	SendPhoto(ctx context.Context, chatID, encodedImage, caption string) (string, error)
}

type SubmitRequest struct {
	SenderName  string
	MessageText string
	Photos      []string
}

// ClientMeta is diagnostic request context captured alongside a submission.
type ClientMeta struct {
	IP        string
	UserAgent string
}

type SubmitResult struct {
	SubmissionID string
}

// SubmitError carries the user-facing failure triple plus the HTTP status the
// handler should answer with. The wrapped cause stays server-side.
type SubmitError struct {
	HTTPStatus int
	Code       string
	Detail     string
	Suggestion string
	Err        error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *SubmitError) Unwrap() error { return e.Err }

type SubmitService struct {
	repo       repo.SubmissionRepository
	relay      RelaySender
	chatID     string
	photoDelay time.Duration
	loc        *time.Location
	now        func() time.Time
}

func NewSubmitService(r repo.SubmissionRepository, relay RelaySender, chatID string, photoDelay time.Duration) *SubmitService {
	// Timestamps in the relayed text are rendered for the destination locale.
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		loc = time.UTC
	}
	return &SubmitService{
		repo:       r,
		relay:      relay,
		chatID:     chatID,
		photoDelay: photoDelay,
		loc:        loc,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Tests only.
func (s *SubmitService) WithClock(now func() time.Time) *SubmitService {
	s.now = now
	return s
}

// Submit runs the full pipeline: validate, persist as pending, relay to
// Telegram, then record the relay outcome. Validation failures touch neither
// the store nor the relay; a store failure aborts before any relay attempt;
// a relay failure after creation is recorded against the durable record.
// Nothing is retried.
func (s *SubmitService) Submit(ctx context.Context, req SubmitRequest, meta ClientMeta) (SubmitResult, error) {
	if rej := validate.Check(req.SenderName, req.MessageText, req.Photos); rej != nil {
		return SubmitResult{}, &SubmitError{
			HTTPStatus: http.StatusBadRequest,
			Code:       rej.Code,
			Detail:     rej.Detail,
			Suggestion: rej.Suggestion,
		}
	}

	name := strings.TrimSpace(req.SenderName)
	text := strings.TrimSpace(req.MessageText)

	sub, err := s.repo.Create(ctx, repo.NewSubmission{
		SenderName:  name,
		MessageText: text,
		PhotoCount:  len(req.Photos),
		ClientIP:    meta.IP,
		UserAgent:   meta.UserAgent,
	})
	if err != nil {
		slog.Error("failed to save submission", "error", err)
		return SubmitResult{}, &SubmitError{
			HTTPStatus: http.StatusInternalServerError,
			Code:       "DATABASE_ERROR",
			Detail:     "Failed to save message to database",
			Suggestion: "Please try again in a few minutes",
			Err:        err,
		}
	}

	slog.Info("submission saved", "id", sub.ID, "photos", sub.PhotoCount)

	remoteID, err := s.relayAll(ctx, req.Photos, s.composeText(name, text))
	if err != nil {
		if uerr := s.repo.MarkFailed(ctx, sub.ID, truncateRunes(err.Error(), maxErrorLen)); uerr != nil {
			slog.Error("failed to record relay failure", "id", sub.ID, "error", uerr)
		}
		slog.Error("relay failed", "id", sub.ID, "error", err)

		detail, suggestion := classifyRelayError(err.Error())
		return SubmitResult{}, &SubmitError{
			HTTPStatus: http.StatusInternalServerError,
			Code:       "TELEGRAM_API_ERROR",
			Detail:     detail,
			Suggestion: suggestion,
			Err:        err,
		}
	}

	if uerr := s.repo.MarkSent(ctx, sub.ID, remoteID); uerr != nil {
		// The message reached Telegram; a lost status update is logged, not
		// surfaced as a submission failure.
		slog.Error("failed to record relay success", "id", sub.ID, "error", uerr)
	}

	slog.Info("submission relayed", "id", sub.ID, "telegram_message_id", remoteID)
	return SubmitResult{SubmissionID: sub.ID}, nil
}

// relayAll sends the composed text, or the photo fan-out: the first photo
// carries the caption, the rest go bare with a pause between sends to stay
// under the Bot API rate limit.
func (s *SubmitService) relayAll(ctx context.Context, photos []string, caption string) (string, error) {
	if len(photos) == 0 {
		return s.relay.SendMessage(ctx, s.chatID, caption)
	}

	remoteID, err := s.relay.SendPhoto(ctx, s.chatID, photos[0], caption)
	if err != nil {
		return "", err
	}

	for _, p := range photos[1:] {
		if err := sleep(ctx, s.photoDelay); err != nil {
			return "", err
		}
		if _, err := s.relay.SendPhoto(ctx, s.chatID, p, ""); err != nil {
			return "", err
		}
	}

	return remoteID, nil
}

func (s *SubmitService) composeText(name, text string) string {
	stamp := s.now().In(s.loc).Format("02/01/2006, 15.04.05")
	return fmt.Sprintf(
		"📨 *PESAN BARU DARI TO-KIZHOO*\n\n👤 **Pengirim:** %s\n💬 **Pesan:**\n%s\n\n🕒 **Waktu:** %s",
		name, text, stamp,
	)
}

// relayErrorClasses maps known substrings of upstream error text to friendly
// messages, checked in order. Matching on text is fragile but the Bot API
// offers nothing more structured in its error body.
var relayErrorClasses = []struct {
	substr     string
	detail     string
	suggestion string
}{
	{"Bot token", "Token bot Telegram tidak valid", "Hubungi administrator untuk memperbaiki konfigurasi"},
	{"chat not found", "Chat ID tidak valid", "Hubungi administrator untuk memperbaiki konfigurasi"},
	{"network", "Gagal terhubung ke Telegram API", "Cek koneksi internet Anda"},
}

func classifyRelayError(msg string) (detail, suggestion string) {
	for _, c := range relayErrorClasses {
		if strings.Contains(msg, c.substr) {
			return c.detail, c.suggestion
		}
	}
	return "Gagal mengirim ke Telegram", "Coba lagi dalam beberapa menit"
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
