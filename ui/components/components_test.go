package components

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Rorical/RoriChat/internal/models"
)

func TestParseProduct(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Product
		ok   bool
	}{
		{
			name: "product",
			text: `{"name":"Trail Shoe","path":"https://salesforce.rel/img/shoe.png","reason":"Light and grippy"}`,
			want: Product{Name: "Trail Shoe", Path: "img/shoe.png", Reason: "Light and grippy"},
			ok:   true,
		},
		{
			name: "path without prefix",
			text: ` {"name":"Tent","path":"static/tent.png"} `,
			want: Product{Name: "Tent", Path: "static/tent.png"},
			ok:   true,
		},
		{name: "prose", text: "Hello there", ok: false},
		{name: "json without name", text: `{"message":"hi"}`, ok: false},
		{name: "json array", text: `[{"name":"x"}]`, ok: false},
		{name: "broken json", text: `{"name":`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseProduct(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderMessages(t *testing.T) {
	md := NewMarkdown(60)
	out := RenderMessages([]models.Message{
		{Content: "hi", Sender: models.User, Direction: models.Outgoing},
		{Content: `{"name":"Trail Shoe","path":"https://salesforce.rel/shoe.png"}`, Sender: models.Agent, Direction: models.Incoming},
		{Content: "Error: API Error: 502 Bad Gateway", Sender: models.System, Direction: models.Incoming, Error: true},
	}, 60, md)

	assert.Contains(t, out, "You")
	assert.Contains(t, out, "How about Trail Shoe?")
	assert.Contains(t, out, "shoe.png")
	assert.NotContains(t, out, "salesforce.rel")
	assert.Contains(t, out, "API Error: 502 Bad Gateway")
}

func TestTranscript_RerendersOnlyChangedMessages(t *testing.T) {
	md := NewMarkdown(60)
	tr := NewTranscript()
	msgs := []models.Message{
		{Content: "hi", Sender: models.User, Direction: models.Outgoing},
		{Content: "**Hel**", Sender: models.Agent, Direction: models.Incoming},
	}

	first := tr.Render(msgs, 60, md)
	assert.Equal(t, 2, tr.rendered)
	assert.Equal(t, first, tr.Render(msgs, 60, md))
	assert.Equal(t, 2, tr.rendered, "unchanged transcript is served from cache")

	msgs[1].Content = "**Hello**"
	out := tr.Render(msgs, 60, md)
	assert.Equal(t, 3, tr.rendered, "only the growing reply is rendered again")
	assert.Contains(t, out, "Hello")

	tr.Render(msgs, 80, md)
	assert.Equal(t, 5, tr.rendered, "a new width invalidates the cache")

	tr.Render(msgs[:1], 80, md)
	assert.Equal(t, 6, tr.rendered, "a shorter transcript starts over")
}

func TestMarkdown_FallsBackOnEmpty(t *testing.T) {
	var md *Markdown
	assert.Equal(t, "raw", md.Render("raw"))
	assert.Equal(t, "", NewMarkdown(40).Render(""))
}
