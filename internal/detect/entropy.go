package detect

import (
	"math"
	"strings"
)

// shannonEntropy returns the Shannon entropy of s in bits per character.
func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[rune]int)
	total := 0
	for _, c := range s {
		freq[c]++
		total++
	}
	entropy := 0.0
	n := float64(total)
	for _, count := range freq {
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// denied reports whether a candidate value is a known placeholder or test
// value that should never be treated as a live secret: all-zero, all-one,
// sequential digits, or a literal test word.
func denied(value string) bool {
	if value == "" {
		return true
	}
	switch strings.ToLower(value) {
	case "test", "example", "placeholder":
		return true
	}
	if allSame(value, '0') || allSame(value, '1') {
		return true
	}
	return sequentialDigits(value)
}

func allSame(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			return false
		}
	}
	return true
}

// sequentialDigits matches runs like "123456" or "789012" where every digit
// is the previous one plus one, modulo ten.
func sequentialDigits(s string) bool {
	if len(s) < 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		if i > 0 && s[i] != '0'+(s[i-1]-'0'+1)%10 {
			return false
		}
	}
	return true
}
