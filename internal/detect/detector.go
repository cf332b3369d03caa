// Package detect scans text for secrets against a pattern registry snapshot.
// Detection is deterministic and stateless aside from reading the registry.
package detect

import (
	"sort"
	"strings"

	"github.com/hfi/llm-secret-redactor/internal/pattern"
)

// minSecretLen filters out short matches that are overwhelmingly false
// positives for every rule in the catalog.
const minSecretLen = 10

// Match is one detected secret. Matches are ephemeral: produced here,
// consumed immediately by the redactor, never retained.
type Match struct {
	// Pattern is the rule that produced the match.
	Pattern *pattern.Pattern
	// Start and End are the byte span in the source text.
	Start int
	End   int
	// Value is the matched substring.
	Value string
}

// Detector runs the two-stage scan: one keyword automaton pass to pick
// candidate rules, then the candidates' regexps.
type Detector struct {
	registry *pattern.Registry
}

// New creates a detector reading from registry.
func New(registry *pattern.Registry) *Detector {
	return &Detector{registry: registry}
}

// Detect returns all matches in text ordered by ascending start offset.
// The whole pass runs against a single registry snapshot, so a concurrent
// re-registration is either fully visible or not at all.
func (d *Detector) Detect(text string) []Match {
	sn := d.registry.Snapshot()

	var found []Match
	for _, p := range sn.Candidates(text) {
		for _, loc := range p.Regexp.FindAllStringIndex(text, -1) {
			m := Match{Pattern: p, Start: loc[0], End: loc[1], Value: text[loc[0]:loc[1]]}
			if d.accept(m) {
				found = append(found, m)
			}
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Start != found[j].Start {
			return found[i].Start < found[j].Start
		}
		return found[i].Pattern.Seq() < found[j].Pattern.Seq()
	})

	return resolveOverlaps(found)
}

// accept applies the per-match filters: minimum length, entropy threshold,
// and the deny-list of known test values.
func (d *Detector) accept(m Match) bool {
	if len(m.Value) < minSecretLen {
		return false
	}

	// Entropy is computed over the variable part only; a fixed literal
	// prefix like "sk-" would dilute it.
	body := strings.TrimPrefix(m.Value, m.Pattern.LiteralPrefix)
	if denied(body) {
		return false
	}

	if m.Pattern.MinEntropy > 0 {
		threshold := m.Pattern.MinEntropy
		if len(m.Pattern.Keywords) == 0 {
			// A rule with no keyword gate runs on every text, so it gets a
			// stricter bar.
			threshold += 0.5
		}
		if shannonEntropy(body) < threshold {
			return false
		}
	}
	return true
}

// resolveOverlaps drops the less specific of any two overlapping matches.
// Specificity is the length of the rule's fixed literal prefix; ties go to
// the earlier-registered rule. Input and output are ordered by start offset.
func resolveOverlaps(matches []Match) []Match {
	if len(matches) <= 1 {
		return matches
	}

	kept := matches[:1]
	for _, m := range matches[1:] {
		last := &kept[len(kept)-1]
		if m.Start >= last.End {
			kept = append(kept, m)
			continue
		}
		if moreSpecific(m, *last) {
			*last = m
		}
	}
	return kept
}

func moreSpecific(a, b Match) bool {
	al, bl := len(a.Pattern.LiteralPrefix), len(b.Pattern.LiteralPrefix)
	if al != bl {
		return al > bl
	}
	return a.Pattern.Seq() < b.Pattern.Seq()
}
