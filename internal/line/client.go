package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/darekasanga/linerelay/internal/config"
)

const (
	// maxContentBytes caps a single content download.
	maxContentBytes int64 = 32 * 1024 * 1024

	requestTimeout = 30 * time.Second
)

// Asset is the binary payload of a message fetched from the content API.
type Asset struct {
	Data []byte
	Mime string
}

// Client talks to the messaging platform's REST APIs: content retrieval on
// the data host and message delivery on the API host.
type Client struct {
	httpClient     *http.Client
	accessToken    string
	apiBase        string
	contentAPIBase string
	logger         *slog.Logger
}

// NewClient creates a platform client from the configured credentials.
func NewClient(log *slog.Logger, cfg config.LineConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		httpClient:     &http.Client{Timeout: requestTimeout},
		accessToken:    cfg.AccessToken,
		apiBase:        strings.TrimRight(cfg.APIBase, "/"),
		contentAPIBase: strings.TrimRight(cfg.ContentAPIBase, "/"),
		logger:         log.With(slog.String("component", "line_client")),
	}
}

// GetContent downloads the binary payload of a message. A non-success status
// is reported as ErrFetchStatus; there is no retry, the caller decides what a
// failed event means for the rest of its batch.
func (c *Client) GetContent(ctx context.Context, messageID string) (Asset, error) {
	if strings.TrimSpace(messageID) == "" {
		return Asset{}, fmt.Errorf("message id is required")
	}
	url := fmt.Sprintf("%s/v2/bot/message/%s/content", c.contentAPIBase, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Asset{}, fmt.Errorf("build content request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %v", ErrFetchStatus, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Asset{}, fmt.Errorf("%w: status %d", ErrFetchStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes))
	if err != nil {
		return Asset{}, fmt.Errorf("read content: %w", err)
	}
	return Asset{
		Data: data,
		Mime: mimeFromHeader(resp.Header.Get("Content-Type")),
	}, nil
}

// Reply sends messages back to the conversation identified by replyToken.
func (c *Client) Reply(ctx context.Context, replyToken string, messages ...Message) error {
	if strings.TrimSpace(replyToken) == "" {
		return fmt.Errorf("reply token is required")
	}
	body, err := json.Marshal(map[string]any{
		"replyToken": replyToken,
		"messages":   messages,
	})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	url := c.apiBase + "/v2/bot/message/reply"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build reply request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReplyStatus, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: status %d: %s", ErrReplyStatus, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ReplyText sends a plain text reply.
func (c *Client) ReplyText(ctx context.Context, replyToken, text string) error {
	return c.Reply(ctx, replyToken, NewTextMessage(text))
}

// ReplyUpload sends the rich upload confirmation: both stored URLs as
// clickable actions plus the upload timestamp.
func (c *Client) ReplyUpload(ctx context.Context, replyToken, originalURL, resizedURL string, uploadedAt time.Time) error {
	return c.Reply(ctx, replyToken, NewUploadFlexMessage(originalURL, resizedURL, uploadedAt))
}

func mimeFromHeader(contentType string) string {
	mime := strings.TrimSpace(contentType)
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}
