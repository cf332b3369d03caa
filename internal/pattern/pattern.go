// Package pattern holds the detection rule catalog. Rules are immutable once
// registered; the registry hands out versioned snapshots so detection never
// observes a half-applied update.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hfi/llm-secret-redactor/pkg/placeholder"
)

// ErrInvalidPattern is returned when a rule fails validation at registration
// time. Registration failures are the one error in this system that is not
// fail-open: a broken custom rule must be rejected eagerly, never silently
// skipped.
var ErrInvalidPattern = errors.New("invalid pattern")

// State controls how a rule participates in detection.
type State int

const (
	// StateEnabled rules detect and redact.
	StateEnabled State = iota
	// StateDisabled rules are skipped entirely.
	StateDisabled
	// StateLogOnly rules detect and are counted, but the match is not
	// rewritten. Used to trial a rule against live traffic.
	StateLogOnly
)

func (s State) String() string {
	switch s {
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	case StateLogOnly:
		return "log_only"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState converts a config string into a State.
func ParseState(s string) (State, error) {
	switch s {
	case "enabled":
		return StateEnabled, nil
	case "disabled":
		return StateDisabled, nil
	case "log_only":
		return StateLogOnly, nil
	default:
		return StateDisabled, fmt.Errorf("%w: unknown state %q", ErrInvalidPattern, s)
	}
}

// Rule is the registration input for one detection pattern.
type Rule struct {
	// ID uniquely identifies the rule. Re-registering an ID replaces the
	// previous entry atomically.
	ID string
	// Name is the human-readable rule name.
	Name string
	// Expr is the match expression (RE2 syntax).
	Expr string
	// Keywords are cheap literal pre-filters. When non-empty, the regexp is
	// only evaluated if one of the keywords appears in the text
	// (case-insensitive). Empty means the regexp always runs.
	Keywords []string
	// Prefix is the placeholder category token, e.g. "API_KEY".
	Prefix string
	// MinEntropy, when > 0, requires the matched substring (minus the fixed
	// literal prefix) to have at least this Shannon entropy in bits per
	// character.
	MinEntropy float64
	// LiteralPrefix is the fixed leading literal of matches, e.g. "sk-".
	// Used for overlap tie-breaking and excluded from entropy computation.
	// Derived from Expr when empty.
	LiteralPrefix string
	// State is the initial participation state. Zero value is StateEnabled.
	State State
}

// Pattern is a compiled, immutable detection rule.
type Pattern struct {
	ID            string
	Name          string
	Regexp        *regexp.Regexp
	Keywords      []string
	Prefix        string
	MinEntropy    float64
	LiteralPrefix string
	State         State

	// seq is the registration sequence number. Earlier-registered patterns
	// win overlap ties of equal prefix specificity.
	seq int
}

// Seq returns the registration sequence number.
func (p *Pattern) Seq() int { return p.seq }

func compile(r Rule, seq int) (*Pattern, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidPattern)
	}
	if !placeholder.ValidPrefix(r.Prefix) {
		return nil, fmt.Errorf("%w: pattern %q placeholder prefix %q is not uppercase alphanumeric", ErrInvalidPattern, r.ID, r.Prefix)
	}
	re, err := regexp.Compile(r.Expr)
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %v", ErrInvalidPattern, r.ID, err)
	}
	lit := r.LiteralPrefix
	if lit == "" {
		lit, _ = re.LiteralPrefix()
	}
	return &Pattern{
		ID:            r.ID,
		Name:          r.Name,
		Regexp:        re,
		Keywords:      lowerAll(r.Keywords),
		Prefix:        r.Prefix,
		MinEntropy:    r.MinEntropy,
		LiteralPrefix: lit,
		State:         r.State,
		seq:           seq,
	}, nil
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
