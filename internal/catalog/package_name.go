package catalog

import (
	"strings"
	"unicode"
)

// skipDirs are path segments that never name an application.
var skipDirs = map[string]bool{
	"library":     true,
	"documents":   true,
	"preferences": true,
	"cache":       true,
	"tmp":         true,
	"system":      true,
	"var":         true,
	"usr":         true,
	"home":        true,
	"root":        true,
}

// strippedSuffixes are removed (once, case-insensitively) from a segment
// before it is tested.
var strippedSuffixes = []string{".app", ".plist", ".db", ".txt", ".xml", ".json", ".log"}

// PackageName attributes path to an application by finding the first path
// segment shaped like a reverse-domain identifier, e.g. "com.example.notes"
// in "/data/data/com.example.notes/databases/notes.db".
//
// Both "/" and "\" separate segments. Returns "" when no segment qualifies.
func PackageName(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")

	for seg := range strings.SplitSeq(path, "/") {
		if seg == "" || skipDirs[strings.ToLower(seg)] {
			continue
		}

		seg = stripSuffix(seg)

		if isPackageName(seg) {
			return seg
		}
	}

	return ""
}

func stripSuffix(seg string) string {
	for _, suf := range strippedSuffixes {
		if len(seg) >= len(suf) && strings.EqualFold(seg[len(seg)-len(suf):], suf) {
			return seg[:len(seg)-len(suf)]
		}
	}

	return seg
}

// isPackageName: at least two dot-separated labels, each non-empty, starting
// with a letter or digit, made of letters, digits and underscores only.
func isPackageName(s string) bool {
	if !strings.Contains(s, ".") {
		return false
	}

	for label := range strings.SplitSeq(s, ".") {
		if label == "" {
			return false
		}

		for i, r := range label {
			alnum := unicode.IsLetter(r) || unicode.IsDigit(r)
			if i == 0 && !alnum {
				return false
			}

			if !alnum && r != '_' {
				return false
			}
		}
	}

	return true
}
