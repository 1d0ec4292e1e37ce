package converter

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// textConverter passes plain text through after checking it is valid UTF-8.
type textConverter struct{}

// NewTextConverter creates a new plain text converter.
func NewTextConverter() Converter {
	return &textConverter{}
}

func (c *textConverter) Convert(ctx context.Context, input []byte) (string, error) {
	if !utf8.Valid(input) {
		return "", fmt.Errorf("text is not valid UTF-8")
	}
	return string(input), nil
}

func (c *textConverter) SupportedTypes() []string {
	return []string{"text/plain", ".txt", ".text"}
}

func (c *textConverter) Name() string {
	return "plaintext"
}

// markdownConverter is a passthrough; markdown is the derived text format.
type markdownConverter struct{}

// NewMarkdownConverter creates a new markdown passthrough converter.
func NewMarkdownConverter() Converter {
	return &markdownConverter{}
}

func (c *markdownConverter) Convert(ctx context.Context, input []byte) (string, error) {
	if !utf8.Valid(input) {
		return "", fmt.Errorf("markdown is not valid UTF-8")
	}
	return string(input), nil
}

func (c *markdownConverter) SupportedTypes() []string {
	return []string{"text/markdown", ".md", ".markdown"}
}

func (c *markdownConverter) Name() string {
	return "markdown"
}
