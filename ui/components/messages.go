package components

import (
	"strings"

	"github.com/Rorical/RoriChat/internal/models"
	"github.com/Rorical/RoriChat/ui/styles"
)

// Transcript renders a conversation and keeps the output of every message
// whose content has not changed since the last call. Earlier messages are
// never rewritten, so during a stream only the trailing reply is re-rendered.
type Transcript struct {
	width    int
	cache    []renderedMessage
	rendered int
}

type renderedMessage struct {
	msg models.Message
	out string
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Render(messages []models.Message, width int, md *Markdown) string {
	if width != t.width {
		t.width = width
		t.cache = t.cache[:0]
	}
	if len(t.cache) > len(messages) {
		t.cache = t.cache[:0]
	}

	var b strings.Builder
	for i, msg := range messages {
		if i >= len(t.cache) || t.cache[i].msg != msg {
			entry := renderedMessage{msg: msg, out: RenderMessage(msg, width, md)}
			t.rendered++
			if i < len(t.cache) {
				t.cache[i] = entry
			} else {
				t.cache = append(t.cache, entry)
			}
		}
		b.WriteString(t.cache[i].out)
		b.WriteString("\n\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// RenderMessages renders messages without caching.
func RenderMessages(messages []models.Message, width int, md *Markdown) string {
	return NewTranscript().Render(messages, width, md)
}

func RenderMessage(msg models.Message, width int, md *Markdown) string {
	switch {
	case msg.Error:
		return styles.ErrorStyle().Render(msg.Content)
	case msg.Sender == models.System:
		return styles.SystemStyle().Render(msg.Content)
	case msg.Sender == models.User:
		label := styles.LabelStyle(msg.Sender.String()).Render(msg.Sender.String())
		return styles.UserStyle(width).Render(label + "\n" + msg.Content)
	}

	label := styles.LabelStyle(msg.Sender.String()).Render(msg.Sender.String())
	if product, ok := ParseProduct(msg.Content); ok {
		return label + "\n" + RenderProduct(product)
	}
	return styles.AgentStyle().Render(label + "\n" + md.Render(msg.Content))
}
