package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/darekasanga/linerelay/internal/config"
	"github.com/darekasanga/linerelay/internal/line"
	"github.com/darekasanga/linerelay/internal/relay"
)

const webhookMaxBodyBytes int64 = 1 << 20 // 1 MiB

// ackResponse is the acknowledgment body the platform receives. The webhook
// contract is "always acknowledge": once the body is read, the response is
// HTTP 200 regardless of what happens downstream.
type ackResponse struct {
	OK     bool   `json:"ok"`
	Queued int    `json:"queued,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// WebhookHandler receives the chat platform's event-batch callbacks and hands
// relayable events to the queue.
type WebhookHandler struct {
	logger *slog.Logger
	secret string
	queue  *relay.Queue
}

func NewWebhookHandler(log *slog.Logger, cfg config.Config, queue *relay.Queue) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		logger: log.With(slog.String("handler", "webhook")),
		secret: cfg.Line.ChannelSecret,
		queue:  queue,
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.GET("/webhook", h.HandleProbe)
	e.POST("/webhook", h.Handle)
}

// HandleProbe responds to health/probe requests on the webhook URL.
func (h *WebhookHandler) HandleProbe(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Handle verifies, parses, and enqueues one event batch. A failed signature
// check is acknowledged with 200 and an ignored batch: rejecting with an
// error status would only trigger platform-side redelivery storms.
func (h *WebhookHandler) Handle(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, webhookMaxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
	}
	if int64(len(payload)) > webhookMaxBodyBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("payload too large: max %d bytes", webhookMaxBodyBytes))
	}

	signature := c.Request().Header.Get(line.SignatureHeader)
	if !line.VerifySignature(payload, signature, h.secret) {
		h.logger.Warn("signature mismatch, batch ignored")
		return c.JSON(http.StatusOK, ackResponse{OK: false, Reason: "bad-signature"})
	}

	events := line.ParseEvents(payload)
	queued := 0
	for _, ev := range events {
		if h.queue.Enqueue(relay.Job{Event: ev}) {
			queued++
		}
	}
	if len(events) > 0 {
		h.logger.Info("batch accepted",
			slog.Int("events", len(events)),
			slog.Int("queued", queued))
	}
	return c.JSON(http.StatusOK, ackResponse{OK: true, Queued: queued})
}
