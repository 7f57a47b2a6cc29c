package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Kizhoo/message-api/internal/service"
)

const (
	serviceName    = "to-kizhoo-message-api"
	serviceVersion = "2.0.0"
)

// Handler serves the submission and stats endpoints. Either service may be
// nil when its configuration is missing; the affected endpoints then fail
// closed with a configuration error instead of crashing the process.
type Handler struct {
	submit *service.SubmitService
	stats  *service.StatsService
}

func NewHandler(submit *service.SubmitService, stats *service.StatsService) *Handler {
	return &Handler{submit: submit, stats: stats}
}

type submitPayload struct {
	SenderName  string   `json:"senderName"`
	MessageText string   `json:"messageText"`
	Photos      []string `json:"photos"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.submit == nil {
		writeFailure(w, http.StatusInternalServerError, "SERVER_CONFIG_ERROR",
			"Service configuration missing", "Contact administrator")
		return
	}

	var body submitPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"Invalid JSON data", "Check the request body format")
		return
	}

	res, err := h.submit.Submit(r.Context(), service.SubmitRequest{
		SenderName:  body.SenderName,
		MessageText: body.MessageText,
		Photos:      body.Photos,
	}, service.ClientMeta{
		IP:        clientIP(r),
		UserAgent: userAgent(r),
	})
	if err != nil {
		var se *service.SubmitError
		if errors.As(err, &se) {
			writeFailure(w, se.HTTPStatus, se.Code, se.Detail, se.Suggestion)
			return
		}
		slog.Error("submit failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "SERVER_ERROR",
			"Internal server error occurred", "Please try again later")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Pesan berhasil dikirim ke Kizhoo!",
		"submissionId": res.SubmissionID,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "online",
		"service":   serviceName,
		"version":   serviceVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeFailure(w, http.StatusInternalServerError, "SERVER_CONFIG_ERROR",
			"Service configuration missing", "Contact administrator")
		return
	}

	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		slog.Error("failed to fetch stats", "error", err)
		writeFailure(w, http.StatusInternalServerError, "STATS_ERROR",
			"Failed to fetch statistics", "Please try again in a few minutes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"stats":     stats,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// clientIP prefers the forwarding headers set by the edge proxy and falls
// back to the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func userAgent(r *http.Request) string {
	if ua := r.UserAgent(); ua != "" {
		return ua
	}
	return "unknown"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, code, detail, suggestion string) {
	writeJSON(w, status, map[string]any{
		"success":    false,
		"errorCode":  code,
		"detail":     detail,
		"suggestion": suggestion,
	})
}
