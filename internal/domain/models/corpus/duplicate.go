package corpus

// MatchType says how a duplicate pair was detected.
type MatchType string

const (
	MatchExactHash MatchType = "exact_hash"
	MatchSimilar   MatchType = "similar"
)

// DuplicateDocument identifies one side of a duplicate pair.
type DuplicateDocument struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
}

// DuplicatePair is a pair of project members that look like the same document.
type DuplicatePair struct {
	DocumentA  DuplicateDocument `json:"document_a"`
	DocumentB  DuplicateDocument `json:"document_b"`
	MatchType  MatchType         `json:"match_type"`
	Similarity float64           `json:"similarity"`
}
