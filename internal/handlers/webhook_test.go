package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darekasanga/linerelay/internal/config"
	"github.com/darekasanga/linerelay/internal/line"
	"github.com/darekasanga/linerelay/internal/relay"
)

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newWebhookTest(t *testing.T, secret string, buffer int) (*WebhookHandler, *relay.Queue) {
	t.Helper()
	queue := relay.NewQueue(slog.Default(), buffer)
	t.Cleanup(queue.Close)
	cfg := config.Config{}
	cfg.Line.ChannelSecret = secret
	return NewWebhookHandler(slog.Default(), cfg, queue), queue
}

func postWebhook(handler *WebhookHandler, body []byte, signature string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(line.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	return rec, handler.Handle(e.NewContext(req, rec))
}

func webhookBatch(messages ...map[string]any) []byte {
	events := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		events = append(events, map[string]any{
			"type":       "message",
			"replyToken": "reply-token",
			"timestamp":  1700000000000,
			"source":     map[string]any{"type": "user", "userId": "U1"},
			"message":    msg,
		})
	}
	body, _ := json.Marshal(map[string]any{"events": events})
	return body
}

func TestWebhookAcceptsSignedBatch(t *testing.T) {
	t.Parallel()

	handler, _ := newWebhookTest(t, "secret", 8)
	body := webhookBatch(
		map[string]any{"id": "m1", "type": "image"},
		map[string]any{"id": "m2", "type": "text", "text": "hello"},
	)

	rec, err := postWebhook(handler, body, signBody(body, "secret"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var ack ackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.True(t, ack.OK)
	assert.Equal(t, 2, ack.Queued)
}

func TestWebhookIgnoresBadSignature(t *testing.T) {
	t.Parallel()

	handler, _ := newWebhookTest(t, "secret", 8)
	body := webhookBatch(map[string]any{"id": "m1", "type": "image"})

	rec, err := postWebhook(handler, body, signBody(body, "wrong-secret"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var ack ackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.False(t, ack.OK)
	assert.Equal(t, "bad-signature", ack.Reason)
	assert.Zero(t, ack.Queued)
}

func TestWebhookSkipsVerificationWithoutSecret(t *testing.T) {
	t.Parallel()

	handler, _ := newWebhookTest(t, "", 8)
	body := webhookBatch(map[string]any{"id": "m1", "type": "image"})

	rec, err := postWebhook(handler, body, "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var ack ackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.True(t, ack.OK)
	assert.Equal(t, 1, ack.Queued)
}

func TestWebhookAcknowledgesMalformedBody(t *testing.T) {
	t.Parallel()

	handler, _ := newWebhookTest(t, "secret", 8)
	body := []byte("{not json")

	rec, err := postWebhook(handler, body, signBody(body, "secret"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var ack ackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.True(t, ack.OK)
	assert.Zero(t, ack.Queued)
}

func TestWebhookRejectsOversizeBody(t *testing.T) {
	t.Parallel()

	handler, _ := newWebhookTest(t, "", 8)
	body := []byte(strings.Repeat("x", int(webhookMaxBodyBytes)+1))

	_, err := postWebhook(handler, body, "")
	require.Error(t, err)

	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusRequestEntityTooLarge, httpErr.Code)
}

func TestWebhookCountsDroppedJobs(t *testing.T) {
	t.Parallel()

	handler, _ := newWebhookTest(t, "", 1)
	body := webhookBatch(
		map[string]any{"id": "m1", "type": "image"},
		map[string]any{"id": "m2", "type": "image"},
	)

	rec, err := postWebhook(handler, body, "")
	require.NoError(t, err)

	var ack ackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.True(t, ack.OK)
	assert.Equal(t, 1, ack.Queued)
}

func TestWebhookProbe(t *testing.T) {
	t.Parallel()

	handler, _ := newWebhookTest(t, "", 1)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler.HandleProbe(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
}
