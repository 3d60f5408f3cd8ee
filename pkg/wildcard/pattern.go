// Package wildcard resolves possibly-wildcarded storage URIs into tagged
// listing references, using delimiter listings for single-level patterns and
// flat listings for recursive (**) patterns.
package wildcard

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ContainsWildcard returns true if the string contains unescaped glob
// metacharacters.
//
// This is escape-aware: literal metacharacters escaped with backslash
// (\*, \?, \[, \{) are not considered glob characters. This allows matching
// object names that contain literal asterisks, question marks, or brackets.
//
// Examples:
//
//	"data/**/*.txt"    → true  (unescaped glob)
//	"data/file\*.txt"  → false (escaped asterisk is literal)
//	"path/to/file.txt" → false (no metacharacters)
func ContainsWildcard(s string) bool {
	return findFirstUnescapedMeta(s) != -1
}

// findFirstUnescapedMeta returns the index of the first unescaped glob
// metacharacter (* ? [ {) in the pattern, or -1 if none found.
//
// This scan is necessary because simple string search (IndexAny) cannot
// distinguish between literal metacharacters (escaped with \) and glob
// metacharacters.
func findFirstUnescapedMeta(pattern string) int {
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]

		// Check for escape sequence: backslash followed by another character
		if c == '\\' && i+1 < len(pattern) {
			next := pattern[i+1]
			// If next char is a glob metacharacter or backslash, it's escaped.
			// Skip both the backslash and the escaped char so we don't treat
			// the metacharacter as a glob terminator.
			if next == '*' || next == '?' || next == '[' || next == '{' || next == '\\' {
				i++
				continue
			}
			continue
		}

		if c == '*' || c == '?' || c == '[' || c == '{' {
			return i
		}
	}
	return -1
}

// staticPrefix returns the literal (unescaped) portion of a pattern before
// the first unescaped metacharacter. Unlike a path-segment prefix, this keeps
// partial segments: "images*" → "images", which is exactly the store-side
// prefix filter a delimiter listing wants.
func staticPrefix(pattern string) string {
	idx := findFirstUnescapedMeta(pattern)
	if idx == -1 {
		return unescape(pattern)
	}
	return unescape(pattern[:idx])
}

// unescape removes escape backslashes from glob metacharacters.
// Storage keys don't use escape sequences - they're opaque strings - so the
// prefix sent to the store must carry the literal characters.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			next := s[i+1]
			if next == '*' || next == '?' || next == '[' || next == ']' ||
				next == '{' || next == '}' || next == '\\' {
				result.WriteByte(next)
				i++
				continue
			}
		}
		result.WriteByte(c)
	}
	return result.String()
}

// hasRecursiveSegment returns true if any path segment of the pattern is the
// recursive glob "**".
func hasRecursiveSegment(pattern string) bool {
	for _, seg := range strings.Split(pattern, "/") {
		if seg == "**" {
			return true
		}
	}
	return false
}

// matchPattern matches a name against a doublestar pattern.
func matchPattern(pattern, name string) bool {
	matched, err := doublestar.Match(pattern, name)
	if err != nil {
		// Invalid patterns are rejected before expansion, so this shouldn't happen
		return false
	}
	return matched
}
