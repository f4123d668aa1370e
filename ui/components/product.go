package components

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Rorical/RoriChat/ui/styles"
)

const productURIPrefix = "https://salesforce.rel/"

// Product is a recommendation the agent sends as a JSON object instead of prose.
type Product struct {
	Name   string
	Path   string
	Reason string
}

// ParseProduct reports whether text is a product object. Plain prose and JSON
// without a name are rendered as ordinary messages.
func ParseProduct(text string) (Product, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") || !gjson.Valid(text) {
		return Product{}, false
	}
	obj := gjson.Parse(text)
	name := obj.Get("name")
	if name.Type != gjson.String || name.Str == "" {
		return Product{}, false
	}
	return Product{
		Name:   name.Str,
		Path:   CleanURI(obj.Get("path").String()),
		Reason: obj.Get("reason").String(),
	}, true
}

// CleanURI strips the relative-resource scheme the agent prefixes image paths with.
func CleanURI(uri string) string {
	return strings.TrimPrefix(uri, productURIPrefix)
}

func RenderProduct(p Product) string {
	lines := []string{styles.CardTitleStyle().Render("How about " + p.Name + "?")}
	if p.Path != "" {
		lines = append(lines, styles.CardLinkStyle().Render(p.Path))
	}
	if p.Reason != "" {
		lines = append(lines, p.Reason)
	}
	return styles.CardStyle().Render(strings.Join(lines, "\n"))
}
