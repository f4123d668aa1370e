package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders agent replies, rebuilding the glamour renderer only when
// the wrap width changes.
type Markdown struct {
	width    int
	renderer *glamour.TermRenderer
}

func NewMarkdown(width int) *Markdown {
	m := &Markdown{}
	m.SetWidth(width)
	return m
}

func (m *Markdown) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if m.renderer != nil && width == m.width {
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.renderer = nil
		return
	}
	m.width = width
	m.renderer = r
}

// Render falls back to the raw text if glamour fails.
func (m *Markdown) Render(text string) string {
	if m == nil || m.renderer == nil || strings.TrimSpace(text) == "" {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
