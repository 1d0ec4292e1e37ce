package converter

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnsupported is returned when no converter handles a document's type.
var ErrUnsupported = errors.New("unsupported content type")

// Converter derives plain text (markdown) from raw document bytes.
type Converter interface {
	Convert(ctx context.Context, input []byte) (string, error)

	// SupportedTypes lists MIME types and file extensions (".html") handled
	SupportedTypes() []string

	// Name is used in logs
	Name() string
}

// Registry routes documents to converters by MIME type, then by extension.
//
// Thread-safe for concurrent access.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]Converter
}

// NewRegistry creates a registry with the standard converters registered.
func NewRegistry() *Registry {
	registry := &Registry{
		converters: make(map[string]Converter),
	}

	registry.Register(NewTextConverter())
	registry.Register(NewMarkdownConverter())
	registry.Register(NewHTMLConverter())

	return registry
}

// Register associates a converter with its supported types.
// Extensions are normalized to lowercase with a leading dot.
func (r *Registry) Register(c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range c.SupportedTypes() {
		r.converters[normalizeKey(key)] = c
	}
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if strings.Contains(key, "/") {
		if mediaType, _, err := mime.ParseMediaType(key); err == nil {
			return mediaType
		}
		return key
	}
	if !strings.HasPrefix(key, ".") {
		key = "." + key
	}
	return key
}

// Lookup finds a converter for the content type or, failing that, the filename extension.
func (r *Registry) Lookup(filename, contentType string) Converter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if contentType != "" {
		if c, ok := r.converters[normalizeKey(contentType)]; ok {
			return c
		}
	}
	if ext := filepath.Ext(filename); ext != "" {
		return r.converters[normalizeKey(ext)]
	}
	return nil
}

// Convert derives text from content. Returns ErrUnsupported if nothing handles it.
func (r *Registry) Convert(ctx context.Context, filename, contentType string, content []byte) (string, error) {
	c := r.Lookup(filename, contentType)
	if c == nil {
		return "", fmt.Errorf("%w: %s (%s)", ErrUnsupported, contentType, filepath.Ext(filename))
	}
	return c.Convert(ctx, content)
}
