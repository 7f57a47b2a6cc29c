package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testToken = "123:abc"

func okResponse(messageID int64) string {
	return `{"ok":true,"result":{"message_id":` + jsonInt(messageID) + `}}`
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func encodedPNG() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not-really-a-png"))
}

func TestSendMessage_Success(t *testing.T) {
	t.Parallel()

	var (
		gotPath string
		gotBody []byte
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okResponse(4242)))
	}))
	defer srv.Close()

	c := NewTelegramClient(srv.URL, testToken)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msgID, err := c.SendMessage(ctx, "-100555", "hello *world*")
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if msgID != "4242" {
		t.Fatalf("expected message id 4242, got %q", msgID)
	}

	if gotPath != "/bot"+testToken+"/sendMessage" {
		t.Fatalf("unexpected path: %q", gotPath)
	}

	var req sendMessageRequest
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("failed to decode request json: %v body=%q", err, string(gotBody))
	}
	if req.ChatID != "-100555" {
		t.Fatalf("expected chat_id -100555, got %q", req.ChatID)
	}
	if req.Text != "hello *world*" {
		t.Fatalf("unexpected text: %q", req.Text)
	}
	if req.ParseMode != "Markdown" {
		t.Fatalf("expected parse_mode Markdown, got %q", req.ParseMode)
	}
	if !req.DisableWebPagePreview {
		t.Fatalf("expected disable_web_page_preview=true")
	}
}

func TestSendMessage_Non200_ReturnsRelayErrorWithBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	c := NewTelegramClient(srv.URL, testToken)

	_, err := c.SendMessage(context.Background(), "-1", "hi")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	var re *RelayError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RelayError, got %T: %v", err, err)
	}
	if re.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", re.StatusCode)
	}
	if !strings.Contains(re.Body, "chat not found") {
		t.Fatalf("expected upstream body preserved, got %q", re.Body)
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected error text to carry body, got %q", err.Error())
	}
}

func TestSendMessage_OKFalse_ReturnsRelayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 transport status but a logical failure.
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	c := NewTelegramClient(srv.URL, testToken)

	_, err := c.SendMessage(context.Background(), "-1", "hi")
	var re *RelayError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RelayError, got %T: %v", err, err)
	}
	if !strings.Contains(re.Body, "Unauthorized") {
		t.Fatalf("expected body preserved, got %q", re.Body)
	}
}

func TestSendMessage_InvalidJSON_ReturnsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("THIS IS NOT JSON"))
	}))
	defer srv.Close()

	c := NewTelegramClient(srv.URL, testToken)

	_, err := c.SendMessage(context.Background(), "-1", "hi")
	if err == nil || !strings.Contains(err.Error(), "failed to decode json") {
		t.Fatalf("expected decode error, got: %v", err)
	}
}

func TestSendPhoto_Success_WithCaption(t *testing.T) {
	t.Parallel()

	type captured struct {
		chatID    string
		caption   string
		parseMode string
		photo     []byte
		filename  string
	}
	var got captured

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot"+testToken+"/sendPhoto" {
			t.Errorf("unexpected path: %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart: %v", err)
		}
		got.chatID = r.FormValue("chat_id")
		got.caption = r.FormValue("caption")
		got.parseMode = r.FormValue("parse_mode")

		f, hdr, err := r.FormFile("photo")
		if err != nil {
			t.Errorf("missing photo part: %v", err)
		} else {
			defer f.Close()
			got.photo, _ = io.ReadAll(f)
			got.filename = hdr.Filename
		}

		_, _ = w.Write([]byte(okResponse(77)))
	}))
	defer srv.Close()

	c := NewTelegramClient(srv.URL, testToken)

	msgID, err := c.SendPhoto(context.Background(), "-100555", encodedPNG(), "from Ana")
	if err != nil {
		t.Fatalf("SendPhoto() error: %v", err)
	}
	if msgID != "77" {
		t.Fatalf("expected message id 77, got %q", msgID)
	}

	if got.chatID != "-100555" {
		t.Fatalf("expected chat_id -100555, got %q", got.chatID)
	}
	if got.caption != "from Ana" {
		t.Fatalf("expected caption, got %q", got.caption)
	}
	if got.parseMode != "Markdown" {
		t.Fatalf("expected parse_mode Markdown, got %q", got.parseMode)
	}
	if string(got.photo) != "not-really-a-png" {
		t.Fatalf("expected decoded photo bytes, got %q", string(got.photo))
	}
	if !strings.HasPrefix(got.filename, "photo_") || !strings.HasSuffix(got.filename, ".jpg") {
		t.Fatalf("unexpected filename: %q", got.filename)
	}
}

func TestSendPhoto_EmptyCaptionOmitsCaptionFields(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart: %v", err)
		}
		if _, ok := r.MultipartForm.Value["caption"]; ok {
			t.Errorf("caption field should be absent")
		}
		if _, ok := r.MultipartForm.Value["parse_mode"]; ok {
			t.Errorf("parse_mode field should be absent")
		}
		_, _ = w.Write([]byte(okResponse(78)))
	}))
	defer srv.Close()

	c := NewTelegramClient(srv.URL, testToken)

	if _, err := c.SendPhoto(context.Background(), "-1", encodedPNG(), ""); err != nil {
		t.Fatalf("SendPhoto() error: %v", err)
	}
}

func TestSendPhoto_TruncatesCaption(t *testing.T) {
	t.Parallel()

	var gotCaption string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart: %v", err)
		}
		gotCaption = r.FormValue("caption")
		_, _ = w.Write([]byte(okResponse(79)))
	}))
	defer srv.Close()

	c := NewTelegramClient(srv.URL, testToken)

	long := strings.Repeat("á", captionLimit+100)
	if _, err := c.SendPhoto(context.Background(), "-1", encodedPNG(), long); err != nil {
		t.Fatalf("SendPhoto() error: %v", err)
	}

	if want := strings.Repeat("á", captionLimit); gotCaption != want {
		t.Fatalf("expected caption truncated to %d runes, got %d", captionLimit, len([]rune(gotCaption)))
	}
}

func TestSendPhoto_RejectsNonDataURI(t *testing.T) {
	t.Parallel()

	c := NewTelegramClient("http://localhost:0", testToken)

	_, err := c.SendPhoto(context.Background(), "-1", "hello world", "")
	if err == nil || !strings.Contains(err.Error(), "invalid base64 image data") {
		t.Fatalf("expected invalid image error, got: %v", err)
	}
}

func TestSendPhoto_RejectsCorruptBase64(t *testing.T) {
	t.Parallel()

	c := NewTelegramClient("http://localhost:0", testToken)

	_, err := c.SendPhoto(context.Background(), "-1", "data:image/png;base64,@@@@", "")
	if err == nil || !strings.Contains(err.Error(), "invalid base64 image data") {
		t.Fatalf("expected invalid image error, got: %v", err)
	}
}

func TestSendMessage_ContextCanceled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(okResponse(1)))
	}))
	defer srv.Close()

	c := NewTelegramClient(srv.URL, testToken)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.SendMessage(ctx, "-1", "hi")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	low := strings.ToLower(err.Error())
	if !strings.Contains(low, "context") && !strings.Contains(low, "deadline") {
		t.Fatalf("expected context/deadline error, got: %v", err)
	}
}
