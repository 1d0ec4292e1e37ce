package corpus

import (
	"fmt"
	"strings"
	"unicode"

	"lexcorpus/internal/config"
)

// NormalizeFolderPath validates a "/"-delimited folder path and returns it with
// each segment trimmed. Leading and trailing slashes are ignored.
//
// Examples:
//   - "Contratos/2026"     → "Contratos/2026"
//   - "/ Contratos / 2026/" → "Contratos/2026"
//   - "Contratos//2026"    → error (empty segment)
func NormalizeFolderPath(path string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return "", fmt.Errorf("folder path cannot be empty")
	}

	segments := strings.Split(trimmed, "/")
	for i, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			return "", fmt.Errorf("folder path contains empty segment at position %d", i)
		}
		if len(segment) > config.MaxFolderNameLength {
			return "", fmt.Errorf("folder name '%s' exceeds maximum length of %d", segment, config.MaxFolderNameLength)
		}
		for _, char := range segment {
			if unicode.IsControl(char) {
				return "", fmt.Errorf("folder name '%s' contains a control character", segment)
			}
		}
		segments[i] = segment
	}

	normalized := strings.Join(segments, "/")
	if len(normalized) > config.MaxFolderPathLength {
		return "", fmt.Errorf("folder path exceeds maximum length of %d", config.MaxFolderPathLength)
	}
	return normalized, nil
}

// AncestorPaths returns the path and every ancestor, shallowest first.
// "a/b/c" → ["a", "a/b", "a/b/c"]
func AncestorPaths(path string) []string {
	segments := strings.Split(path, "/")
	paths := make([]string, len(segments))
	for i := range segments {
		paths[i] = strings.Join(segments[:i+1], "/")
	}
	return paths
}

// parentPath returns the parent of a normalized path, or "" for a top-level folder.
func parentPath(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

// baseName returns the last segment of a normalized path.
func baseName(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}
