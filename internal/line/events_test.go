package line

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEvents(t *testing.T) {
	t.Parallel()

	t.Run("mixed batch preserves order", func(t *testing.T) {
		t.Parallel()
		raw := []byte(`{
			"destination": "Ubot",
			"events": [
				{
					"type": "message",
					"replyToken": "token-1",
					"timestamp": 1700000000000,
					"source": {"type": "user", "userId": "U1"},
					"message": {"id": "m1", "type": "text", "text": "hello"}
				},
				{
					"type": "message",
					"replyToken": "token-2",
					"timestamp": 1700000001000,
					"source": {"type": "group", "groupId": "G1", "userId": "U2"},
					"message": {"id": "m2", "type": "image"}
				}
			]
		}`)

		events := ParseEvents(raw)
		assert.Len(t, events, 2)

		assert.Equal(t, KindText, events[0].Kind)
		assert.Equal(t, "U1", events[0].SourceID)
		assert.Equal(t, "token-1", events[0].ReplyToken)
		assert.Equal(t, "m1", events[0].MessageID)
		assert.Equal(t, "hello", events[0].Text)
		assert.Equal(t, time.UnixMilli(1700000000000).UTC(), events[0].ReceivedAt)

		assert.Equal(t, KindImage, events[1].Kind)
		assert.Equal(t, "G1", events[1].SourceID)
		assert.Equal(t, "m2", events[1].MessageID)
	})

	t.Run("file message carries filename", func(t *testing.T) {
		t.Parallel()
		raw := []byte(`{"events":[{
			"type": "message",
			"replyToken": "token-3",
			"source": {"type": "user", "userId": "U3"},
			"message": {"id": "m3", "type": "file", "fileName": "report.pdf"}
		}]}`)

		events := ParseEvents(raw)
		assert.Len(t, events, 1)
		assert.Equal(t, KindFile, events[0].Kind)
		assert.Equal(t, "report.pdf", events[0].FileName)
	})

	t.Run("unknown kinds are dropped", func(t *testing.T) {
		t.Parallel()
		raw := []byte(`{"events":[
			{"type": "message", "source": {"userId": "U1"}, "message": {"id": "m1", "type": "sticker"}},
			{"type": "follow", "source": {"userId": "U1"}},
			{"type": "message", "source": {"userId": "U1"}, "message": {"id": "m2", "type": "text", "text": "kept"}}
		]}`)

		events := ParseEvents(raw)
		assert.Len(t, events, 1)
		assert.Equal(t, "m2", events[0].MessageID)
	})

	t.Run("malformed body yields no events", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, ParseEvents([]byte("not json")))
		assert.Empty(t, ParseEvents(nil))
	})

	t.Run("missing or empty events array yields no events", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, ParseEvents([]byte(`{}`)))
		assert.Empty(t, ParseEvents([]byte(`{"events":[]}`)))
	})

	t.Run("redelivered events are not deduplicated", func(t *testing.T) {
		t.Parallel()
		raw := []byte(`{"events":[
			{"type": "message", "source": {"userId": "U1"}, "message": {"id": "same", "type": "image"}},
			{"type": "message", "source": {"userId": "U1"}, "message": {"id": "same", "type": "image"}}
		]}`)
		assert.Len(t, ParseEvents(raw), 2)
	})
}
