// Package core implements the agent loop: the state machine that drives the
// LLM/tool conversation together with the data model it operates on.
package core

import "strings"

// Role identifies who produced a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartKind distinguishes the two kinds of content a Message may carry.
type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
)

// Part is one piece of structured message content.
type Part struct {
	Kind PartKind

	// Text is populated when Kind == PartText.
	Text string

	// ImageData and MIME are populated when Kind == PartImage. ImageData
	// is the raw image bytes encoded as a data URL (data:<mime>;base64,...).
	ImageData string
	MIME      string
}

// TextPart builds a text Part.
func TextPart(text string) Part { return Part{Kind: PartText, Text: text} }

// ImagePart builds an image Part.
func ImagePart(dataURL, mime string) Part {
	return Part{Kind: PartImage, ImageData: dataURL, MIME: mime}
}

// Message is a single turn in the conversation. Assistant turns carry the
// model's raw text verbatim (including XML tool calls and <thinking>
// blocks). User turns carry either the original human question or a
// synthetic <tool_result tool="...">...</tool_result> envelope.
type Message struct {
	Role Role
	// Parts holds the structured content. A plain-text message has a
	// single PartText entry; image attachments add PartImage entries.
	Parts []Part
	// SegmentIndex is a per-segment index; segment 0 is the first human
	// question. Negative means "not assigned": NewTextMessage sets -1 and
	// the compactor does not assign it.
	SegmentIndex int
	// Synthetic marks a message the loop generated itself (tool results,
	// segment summaries, corrective notices) rather than one produced by
	// the human caller or the model.
	Synthetic bool
}

// NewTextMessage builds a plain-text Message.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{TextPart(text)}, SegmentIndex: -1}
}

// NewSyntheticMessage builds a synthetic (loop-generated) user message.
func NewSyntheticMessage(text string) Message {
	m := NewTextMessage(RoleUser, text)
	m.Synthetic = true
	return m
}

// Text concatenates every text Part. Image parts are ignored.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Kind == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Images returns every image Part attached to the message.
func (m Message) Images() []Part {
	var imgs []Part
	for _, p := range m.Parts {
		if p.Kind == PartImage {
			imgs = append(imgs, p)
		}
	}
	return imgs
}

// WithImages returns a copy of m with the given image parts appended.
func (m Message) WithImages(images []DiscoveredImage) Message {
	out := m
	out.Parts = append([]Part(nil), m.Parts...)
	for _, img := range images {
		out.Parts = append(out.Parts, ImagePart(img.DataURL, img.MIME))
	}
	return out
}
