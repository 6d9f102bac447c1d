package filesystem

import (
	"strings"
	"unicode"
)

// NormalizePath converts p to the canonical adapter form: forward slashes,
// no empty or "." segments, ".." resolved, no leading or trailing slash.
// Traversal above the root and control characters are rejected.
func NormalizePath(p string) (string, error) {
	for _, r := range p {
		if unicode.IsControl(r) {
			return "", InvalidPath(p, "path contains control characters")
		}
	}

	parts := strings.Split(strings.ReplaceAll(p, `\`, "/"), "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return "", InvalidPath(p, "path traversal detected")
			}
			out = out[:len(out)-1]
		default:
			out = append(out, part)
		}
	}
	return strings.Join(out, "/"), nil
}
