package search

import (
	"strings"
)

// DefaultChunkSize is the target chunk length in characters.
const DefaultChunkSize = 1500

// SplitChunks splits text into chunks of at most size characters, breaking on
// paragraph boundaries where possible. Paragraphs longer than size are split on
// whitespace. Empty text yields no chunks.
func SplitChunks(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > size {
			flush()
			for _, piece := range splitLong(para, size) {
				chunks = append(chunks, piece)
			}
			continue
		}
		if current.Len() > 0 && current.Len()+2+len(para) > size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return chunks
}

func splitLong(para string, size int) []string {
	var pieces []string
	var current strings.Builder
	for _, word := range strings.Fields(para) {
		if current.Len() > 0 && current.Len()+1+len(word) > size {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}
