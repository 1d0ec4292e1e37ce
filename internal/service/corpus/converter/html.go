package converter

import (
	"context"
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
)

// htmlConverter converts HTML (court decisions, gazette pages) to markdown.
// The input is sanitized first so scripts and event handlers never reach the index.
type htmlConverter struct {
	policy    *bluemonday.Policy
	converter *md.Converter
}

// NewHTMLConverter creates a new HTML to markdown converter.
func NewHTMLConverter() Converter {
	return &htmlConverter{
		policy:    bluemonday.UGCPolicy(),
		converter: md.NewConverter("", true, nil),
	}
}

func (c *htmlConverter) Convert(ctx context.Context, input []byte) (string, error) {
	sanitized := c.policy.SanitizeBytes(input)

	markdown, err := c.converter.ConvertBytes(sanitized)
	if err != nil {
		return "", fmt.Errorf("convert HTML to markdown: %w", err)
	}
	return string(markdown), nil
}

func (c *htmlConverter) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml", ".html", ".htm"}
}

func (c *htmlConverter) Name() string {
	return "html"
}
