package line

import (
	"encoding/json"
	"strings"
	"time"
)

// SignatureHeader is the request header carrying the webhook signature.
const SignatureHeader = "X-Line-Signature"

// MessageKind classifies an inbound message event.
type MessageKind string

const (
	KindText    MessageKind = "text"
	KindImage   MessageKind = "image"
	KindFile    MessageKind = "file"
	KindUnknown MessageKind = "unknown"
)

// InboundEvent is one relayable message event extracted from a webhook batch.
type InboundEvent struct {
	Kind       MessageKind
	SourceID   string
	ReplyToken string
	MessageID  string
	Text       string
	FileName   string
	ReceivedAt time.Time
}

type webhookPayload struct {
	Destination string         `json:"destination"`
	Events      []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Timestamp  int64  `json:"timestamp"`
	Source     struct {
		Type    string `json:"type"`
		UserID  string `json:"userId"`
		GroupID string `json:"groupId"`
		RoomID  string `json:"roomId"`
	} `json:"source"`
	Message struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Text     string `json:"text"`
		FileName string `json:"fileName"`
	} `json:"message"`
}

// ParseEvents extracts message events from a raw webhook body, preserving
// array order. The webhook boundary always acknowledges, so a malformed or
// empty body yields zero events rather than an error. Event kinds that are
// not handled yet are dropped; redelivered events are not deduplicated.
func ParseEvents(raw []byte) []InboundEvent {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}

	events := make([]InboundEvent, 0, len(payload.Events))
	for _, ev := range payload.Events {
		if ev.Type != "message" {
			continue
		}
		kind := classify(ev.Message.Type)
		if kind == KindUnknown {
			continue
		}
		events = append(events, InboundEvent{
			Kind:       kind,
			SourceID:   sourceID(ev),
			ReplyToken: ev.ReplyToken,
			MessageID:  ev.Message.ID,
			Text:       ev.Message.Text,
			FileName:   strings.TrimSpace(ev.Message.FileName),
			ReceivedAt: time.UnixMilli(ev.Timestamp).UTC(),
		})
	}
	return events
}

func classify(messageType string) MessageKind {
	switch messageType {
	case "text":
		return KindText
	case "image":
		return KindImage
	case "file":
		return KindFile
	default:
		return KindUnknown
	}
}

// sourceID prefers the group or room over the individual sender so replies
// land in the conversation the message came from.
func sourceID(ev webhookEvent) string {
	if ev.Source.GroupID != "" {
		return ev.Source.GroupID
	}
	if ev.Source.RoomID != "" {
		return ev.Source.RoomID
	}
	return ev.Source.UserID
}
