package corpus

import (
	"path/filepath"
	"strings"
	"unicode"
)

// CleanText strips markdown syntax and punctuation, lowercases, and collapses
// whitespace so that formatting differences do not affect similarity.
func CleanText(markdown string) string {
	text := removeCodeFences(markdown)

	var b strings.Builder
	b.Grow(len(text))
	space := true
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			space = false
		case !space:
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// removeCodeFences drops ``` fence markers but keeps their content
func removeCodeFences(text string) string {
	return strings.ReplaceAll(text, "```", " ")
}

// Shingles returns the set of size-word shingles of cleaned text.
// Texts shorter than size yield one shingle with all their words.
func Shingles(cleaned string, size int) map[string]struct{} {
	words := strings.Fields(cleaned)
	set := make(map[string]struct{})
	if len(words) == 0 {
		return set
	}
	if len(words) < size {
		set[strings.Join(words, " ")] = struct{}{}
		return set
	}
	for i := 0; i+size <= len(words); i++ {
		set[strings.Join(words[i:i+size], " ")] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|; two empty sets score 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for k := range small {
		if _, ok := large[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// NameSizeSimilarity is the fallback when derived text is unavailable:
// the mean of name token overlap and size ratio.
func NameSizeSimilarity(nameA string, sizeA int64, nameB string, sizeB int64) float64 {
	tokens := func(name string) map[string]struct{} {
		name = strings.TrimSuffix(name, filepath.Ext(name))
		set := make(map[string]struct{})
		for _, w := range strings.Fields(CleanText(name)) {
			set[w] = struct{}{}
		}
		return set
	}

	nameScore := Jaccard(tokens(nameA), tokens(nameB))

	sizeScore := 0.0
	switch {
	case sizeA == sizeB:
		sizeScore = 1
	case sizeA > 0 && sizeB > 0:
		lo, hi := sizeA, sizeB
		if lo > hi {
			lo, hi = hi, lo
		}
		sizeScore = float64(lo) / float64(hi)
	}

	return (nameScore + sizeScore) / 2
}
