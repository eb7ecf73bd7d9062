package line

import "time"

// Message is any payload accepted by the reply API; concrete message structs
// marshal to the platform's wire format.
type Message any

// TextMessage is a plain text reply.
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextMessage builds a text message.
func NewTextMessage(text string) TextMessage {
	return TextMessage{Type: "text", Text: text}
}

// FlexMessage is a rich bubble message.
type FlexMessage struct {
	Type     string     `json:"type"`
	AltText  string     `json:"altText"`
	Contents FlexBubble `json:"contents"`
}

// FlexBubble is the bubble container of a flex message.
type FlexBubble struct {
	Type string  `json:"type"`
	Body FlexBox `json:"body"`
}

// FlexBox is a layout container inside a bubble.
type FlexBox struct {
	Type     string     `json:"type"`
	Layout   string     `json:"layout"`
	Spacing  string     `json:"spacing,omitempty"`
	Contents []FlexNode `json:"contents"`
}

// FlexNode is a single flex component: text, button, or nested box.
type FlexNode struct {
	Type     string      `json:"type"`
	Text     string      `json:"text,omitempty"`
	Weight   string      `json:"weight,omitempty"`
	Size     string      `json:"size,omitempty"`
	Color    string      `json:"color,omitempty"`
	Wrap     bool        `json:"wrap,omitempty"`
	Style    string      `json:"style,omitempty"`
	Layout   string      `json:"layout,omitempty"`
	Spacing  string      `json:"spacing,omitempty"`
	Action   *FlexAction `json:"action,omitempty"`
	Contents []FlexNode  `json:"contents,omitempty"`
}

// FlexAction is a tap action attached to a flex component.
type FlexAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URI   string `json:"uri"`
}

// NewUploadFlexMessage builds the upload confirmation bubble: a title, the
// upload timestamp, and one URI button per stored variant.
func NewUploadFlexMessage(originalURL, resizedURL string, uploadedAt time.Time) FlexMessage {
	return FlexMessage{
		Type:    "flex",
		AltText: "Upload complete",
		Contents: FlexBubble{
			Type: "bubble",
			Body: FlexBox{
				Type:    "box",
				Layout:  "vertical",
				Spacing: "md",
				Contents: []FlexNode{
					{
						Type:   "text",
						Text:   "Upload complete",
						Weight: "bold",
						Size:   "lg",
					},
					{
						Type:  "text",
						Text:  "Uploaded at " + uploadedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
						Size:  "sm",
						Color: "#888888",
						Wrap:  true,
					},
					{
						Type:    "box",
						Layout:  "horizontal",
						Spacing: "sm",
						Contents: []FlexNode{
							{
								Type:  "button",
								Style: "primary",
								Action: &FlexAction{
									Type:  "uri",
									Label: "Original",
									URI:   originalURL,
								},
							},
							{
								Type:  "button",
								Style: "secondary",
								Action: &FlexAction{
									Type:  "uri",
									Label: "Resized",
									URI:   resizedURL,
								},
							},
						},
					},
				},
			},
		},
	}
}
