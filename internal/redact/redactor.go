// Package redact rewrites detected secrets into placeholders on the request
// path. Every failure mode degrades to passing text through unchanged; the
// Result says which way a call went instead of hiding it in a swallowed
// error.
package redact

import (
	"errors"
	"strings"

	"github.com/hfi/llm-secret-redactor/internal/detect"
	"github.com/hfi/llm-secret-redactor/internal/pattern"
	"github.com/hfi/llm-secret-redactor/internal/session"
)

// Outcome classifies what a Process call did.
type Outcome int

const (
	// OutcomeClean means no secrets were found; text is unchanged.
	OutcomeClean Outcome = iota
	// OutcomeRedacted means at least one secret was replaced.
	OutcomeRedacted
	// OutcomeLengthSkipped means the input exceeded the length guard and
	// detection was skipped entirely. Explicit policy, not an error.
	OutcomeLengthSkipped
	// OutcomeCapacityStopped means the session hit its secret cap mid-pass;
	// earlier matches were redacted, later ones left intact.
	OutcomeCapacityStopped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClean:
		return "clean"
	case OutcomeRedacted:
		return "redacted"
	case OutcomeLengthSkipped:
		return "length_skipped"
	case OutcomeCapacityStopped:
		return "capacity_stopped"
	default:
		return "unknown"
	}
}

// Result is the visible outcome of one redaction pass.
type Result struct {
	// Text is the (possibly rewritten) output.
	Text string
	// Outcome classifies the pass.
	Outcome Outcome
	// Redacted is the number of spans rewritten.
	Redacted int
	// LogOnly is the number of matches from log-only rules, detected and
	// counted but not rewritten.
	LogOnly int
	// StoreFailures counts matches left intact because the store errored.
	StoreFailures int
	// Matches holds everything the detector found, log-only included, for
	// metrics and audit.
	Matches []detect.Match
}

// Redactor transforms raw text into redacted text.
type Redactor struct {
	detector   *detect.Detector
	store      session.Store
	maxTextLen int
}

// New creates a redactor. maxTextLen <= 0 disables the length guard.
func New(detector *detect.Detector, store session.Store, maxTextLen int) *Redactor {
	return &Redactor{detector: detector, store: store, maxTextLen: maxTextLen}
}

// Process detects secrets in text and rewrites them left to right in a
// single pass. Matches are ordered by start offset, so each replacement only
// needs the running output; no offset fixups.
func (r *Redactor) Process(sessionID, text string) Result {
	if r.maxTextLen > 0 && len(text) > r.maxTextLen {
		// Oversized inputs skip detection entirely; the outcome says so.
		return Result{Text: text, Outcome: OutcomeLengthSkipped}
	}

	matches := r.detector.Detect(text)
	if len(matches) == 0 {
		return Result{Text: text, Outcome: OutcomeClean}
	}

	res := Result{Matches: matches}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	stopped := false

	for _, m := range matches {
		if stopped {
			break
		}
		if m.Pattern.State == pattern.StateLogOnly {
			res.LogOnly++
			continue
		}

		token, err := r.store.Put(sessionID, m.Pattern.Prefix, m.Value)
		switch {
		case err == nil:
			b.WriteString(text[last:m.Start])
			b.WriteString(token)
			last = m.End
			res.Redacted++
		case errors.Is(err, session.ErrSessionFull):
			// Stop redacting further secrets for this message; what was
			// already rewritten stands.
			stopped = true
		default:
			res.StoreFailures++
		}
	}
	b.WriteString(text[last:])
	res.Text = b.String()

	switch {
	case stopped:
		res.Outcome = OutcomeCapacityStopped
	case res.Redacted > 0:
		res.Outcome = OutcomeRedacted
	default:
		res.Outcome = OutcomeClean
	}
	return res
}
