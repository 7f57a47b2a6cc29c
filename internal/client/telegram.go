package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// captionLimit is the Telegram Bot API maximum caption length.
const captionLimit = 1024

var dataURIRe = regexp.MustCompile(`data:image/(\w+);base64,`)

// RelayError is returned when the Telegram API answers with a non-success
// status or an ok=false payload. Body carries the upstream response verbatim
// so callers can classify the failure.
type RelayError struct {
	StatusCode int
	Body       string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("telegram api error: status=%d body=%q", e.StatusCode, e.Body)
}

type TelegramClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewTelegramClient builds a client against baseURL, normally
// https://api.telegram.org; tests point it at a local server.
func NewTelegramClient(baseURL, token string) *TelegramClient {
	return &TelegramClient{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
	Description string `json:"description"`
}

// SendMessage delivers a Markdown-formatted text message to chatID and
// returns the remote message id.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	reqBody, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// SendPhoto uploads one base64-encoded image (a data URI) to chatID. An empty
// caption sends the photo bare; a non-empty caption is truncated to the
// Telegram limit and rendered as Markdown.
func (c *TelegramClient) SendPhoto(ctx context.Context, chatID, encodedImage, caption string) (string, error) {
	loc := dataURIRe.FindStringIndex(encodedImage)
	if loc == nil {
		return "", fmt.Errorf("invalid base64 image data")
	}

	raw, err := base64.StdEncoding.DecodeString(encodedImage[loc[1]:])
	if err != nil {
		return "", fmt.Errorf("invalid base64 image data: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("chat_id", chatID); err != nil {
		return "", err
	}
	if caption != "" {
		if err := w.WriteField("caption", truncateRunes(caption, captionLimit)); err != nil {
			return "", err
		}
		if err := w.WriteField("parse_mode", "Markdown"); err != nil {
			return "", err
		}
	}

	part, err := w.CreateFormFile("photo", fmt.Sprintf("photo_%d.jpg", time.Now().UnixNano()))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(raw); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", c.baseURL, c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.do(req)
}

func (c *TelegramClient) do(req *http.Request) (string, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", &RelayError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var ar apiResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return "", fmt.Errorf("failed to decode json: %w body=%q", err, string(body))
	}
	if !ar.OK {
		return "", &RelayError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if ar.Result.MessageID == 0 {
		return "", fmt.Errorf("missing message_id in response body=%q", string(body))
	}

	return strconv.FormatInt(ar.Result.MessageID, 10), nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
