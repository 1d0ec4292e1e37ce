package search

import (
	"strings"
	"testing"
)

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		size      int
		wantCount int
	}{
		{name: "empty", text: "", size: 100, wantCount: 0},
		{name: "whitespace only", text: "  \n\n  ", size: 100, wantCount: 0},
		{name: "single paragraph", text: "Art. 1 - Esta lei entra em vigor.", size: 100, wantCount: 1},
		{name: "paragraphs merged", text: "first\n\nsecond\n\nthird", size: 100, wantCount: 1},
		{name: "paragraphs split at size", text: "aaaaaaaaaa\n\nbbbbbbbbbb\n\ncccccccccc", size: 15, wantCount: 3},
		{name: "long paragraph split on words", text: strings.Repeat("word ", 50), size: 40, wantCount: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitChunks(tt.text, tt.size)
			if len(chunks) != tt.wantCount {
				t.Fatalf("SplitChunks() returned %d chunks, want %d: %q", len(chunks), tt.wantCount, chunks)
			}
			for i, c := range chunks {
				if len(c) > tt.size {
					t.Errorf("chunk %d has length %d, exceeds %d", i, len(c), tt.size)
				}
			}
		})
	}
}
