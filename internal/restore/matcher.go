// Package restore substitutes placeholders back into their secrets on the
// response path, tolerating cosmetic drift a model may have introduced into
// the token text. Restoration never fails past this boundary: an unknown or
// expired placeholder is simply left in place.
package restore

import (
	"strings"

	"github.com/hfi/llm-secret-redactor/internal/session"
	"github.com/hfi/llm-secret-redactor/pkg/placeholder"
)

// Result is the visible outcome of one restoration pass.
type Result struct {
	// Text is the output with every resolvable placeholder substituted.
	Text string
	// Restored counts substituted tokens, fuzzy ones included.
	Restored int
	// Fuzzy counts tokens restored via the hash-suffix fallback.
	Fuzzy int
	// Missed counts tokens left unchanged because they could not be
	// resolved, unambiguously or at all.
	Missed int
}

// Matcher resolves placeholder tokens against the session store.
type Matcher struct {
	store session.Store
}

// New creates a matcher over store.
func New(store session.Store) *Matcher {
	return &Matcher{store: store}
}

// Restore rewrites all recognizable tokens in text. Exact lookups run first;
// a token whose exact string is unknown falls back to a lookup by hash
// suffix across the session's issued placeholders, and is restored only when
// exactly one candidate matches. Ambiguity resolves to leaving the token
// unchanged, by contract.
func (m *Matcher) Restore(sessionID, text string) Result {
	spans := placeholder.FindLooseIndex(text)
	if len(spans) == 0 {
		return Result{Text: text}
	}

	// Issued placeholders are fetched at most once per call, and only if a
	// fuzzy lookup is actually needed.
	var issued []string
	issuedLoaded := false

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	res := Result{}

	for _, span := range spans {
		token := text[span[0]:span[1]]

		secret, err := m.store.Resolve(sessionID, token)
		if err != nil {
			if !issuedLoaded {
				issued = m.store.Placeholders(sessionID)
				issuedLoaded = true
			}
			var fuzzyErr error
			secret, fuzzyErr = m.fuzzyResolve(sessionID, token, issued)
			if fuzzyErr != nil {
				res.Missed++
				continue
			}
			res.Fuzzy++
		}

		b.WriteString(text[last:span[0]])
		b.WriteString(secret)
		last = span[1]
		res.Restored++
	}
	b.WriteString(text[last:])
	res.Text = b.String()
	return res
}

// fuzzyResolve looks the token up by hash suffix alone. Zero or multiple
// matching candidates return ErrNotFound: the blast radius of fuzzy matching
// is bounded to unambiguous cases.
func (m *Matcher) fuzzyResolve(sessionID, token string, issued []string) (string, error) {
	suffix, ok := placeholder.Suffix(token)
	if !ok {
		return "", session.ErrNotFound
	}

	candidate := ""
	for _, issuedToken := range issued {
		s, ok := placeholder.Suffix(issuedToken)
		if !ok || s != suffix {
			continue
		}
		if candidate != "" {
			return "", session.ErrNotFound
		}
		candidate = issuedToken
	}
	if candidate == "" {
		return "", session.ErrNotFound
	}
	return m.store.Resolve(sessionID, candidate)
}
