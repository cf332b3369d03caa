// Package placeholder implements the wire format for redaction tokens:
// "<" + uppercase category prefix + "_REDACTED_" + 4 lowercase hex chars + ">".
// The hash suffix is derived deterministically from the secret value, so the
// same secret always yields the same token within a session. It is a lookup
// key, not an encoding of the secret.
package placeholder

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

const (
	// HashLen is the number of hex characters in the token suffix.
	HashLen = 4

	marker = "_REDACTED_"

	// Overhead is the token length minus the category prefix:
	// "<" + "_REDACTED_" + hash + ">".
	Overhead = 1 + len(marker) + HashLen + 1
)

var (
	// exactRe matches well-formed tokens as produced by Generate.
	exactRe = regexp.MustCompile(`<[A-Z][A-Z0-9_]*_REDACTED_[a-f0-9]{4}>`)

	// looseRe matches the relaxed shape used for restoration scanning: an
	// uppercase run (digits allowed past the first character) followed by a
	// 4-hex suffix. Every well-formed token matches it, plus mutated ones
	// where a model rewrote the prefix but preserved the suffix.
	looseRe = regexp.MustCompile(`<[A-Z_][A-Z0-9_]*_[a-f0-9]{4}>`)

	suffixRe = regexp.MustCompile(`_([a-f0-9]{4})>$`)

	// prefixRe is the category prefix grammar. A prefix outside it would
	// generate tokens the restoration scan cannot see.
	prefixRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// ValidPrefix reports whether s is usable as a token category prefix.
func ValidPrefix(s string) bool {
	return prefixRe.MatchString(s)
}

// HashSuffix returns the deterministic hex suffix for a secret value.
func HashSuffix(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])[:HashLen]
}

// Generate creates the token for a secret under the given category prefix.
func Generate(prefix, secret string) string {
	return "<" + prefix + marker + HashSuffix(secret) + ">"
}

// TokenLen returns the length of a token generated with prefix.
func TokenLen(prefix string) int {
	return len(prefix) + Overhead
}

// MaxLen returns the longest token length across the given prefixes.
// With no prefixes it still returns Overhead so buffers stay non-zero.
func MaxLen(prefixes []string) int {
	maxLen := Overhead
	for _, p := range prefixes {
		if l := TokenLen(p); l > maxLen {
			maxLen = l
		}
	}
	return maxLen
}

// IsToken reports whether s is exactly one well-formed token.
func IsToken(s string) bool {
	loc := exactRe.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

// FindAllIndex returns the byte spans of all well-formed tokens in text.
func FindAllIndex(text string) [][]int {
	return exactRe.FindAllStringIndex(text, -1)
}

// FindLooseIndex returns the byte spans of all loose-shaped tokens in text,
// including well-formed ones.
func FindLooseIndex(text string) [][]int {
	return looseRe.FindAllStringIndex(text, -1)
}

// Suffix extracts the hash suffix from a token of either shape.
func Suffix(token string) (string, bool) {
	m := suffixRe.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CouldBePrefix reports whether s might be the beginning of a loose-shaped
// token that is not yet complete. The stream reassembler uses this to decide
// how much trailing text to hold back. maxLen bounds the candidate so a lone
// "<" followed by arbitrary uppercase text is not buffered forever.
func CouldBePrefix(s string, maxLen int) bool {
	if len(s) == 0 || len(s) >= maxLen || s[0] != '<' {
		return false
	}
	if len(s) > 1 && s[1] != '_' && (s[1] < 'A' || s[1] > 'Z') {
		return false
	}
	i := 1
	for i < len(s) && (s[i] == '_' || (s[i] >= 'A' && s[i] <= 'Z') || (s[i] >= '0' && s[i] <= '9')) {
		i++
	}
	// Up to HashLen hex characters may follow the uppercase run.
	hexSeen := 0
	for i < len(s) && hexSeen < HashLen && isHex(s[i]) {
		i++
		hexSeen++
	}
	// Anything left over (including '>') means the candidate is either
	// complete or malformed, not a prefix.
	return i == len(s)
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}
