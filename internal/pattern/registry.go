package pattern

import (
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cloudflare/ahocorasick"

	"github.com/hfi/llm-secret-redactor/pkg/placeholder"
)

// Registry owns the rule set. Writers are serialized by a mutex; readers get
// an immutable Snapshot through an atomic pointer, so registration never
// blocks or tears a concurrent detection pass.
type Registry struct {
	mu   sync.Mutex
	next int
	snap atomic.Pointer[Snapshot]
}

// Snapshot is an immutable view of the registry at one version. All detection
// for a single text runs against a single snapshot.
type Snapshot struct {
	patterns []*Pattern // registration order
	byID     map[string]*Pattern

	// Keyword automaton over all keywords of non-disabled patterns. keywords
	// and byKeyword are parallel: a hit at index i fires the patterns in
	// byKeyword[i].
	matcher   *ahocorasick.Matcher
	keywords  []string
	byKeyword [][]*Pattern

	// unkeyed are non-disabled patterns with no keyword requirement; they are
	// evaluated on every text.
	unkeyed []*Pattern

	maxTokenLen int
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	r.snap.Store(buildSnapshot(nil))
	return r
}

// NewDefault creates a registry loaded with the built-in catalog.
func NewDefault() (*Registry, error) {
	r := New()
	for _, rule := range defaultRules {
		if err := r.Register(rule); err != nil {
			return nil, fmt.Errorf("default catalog: %w", err)
		}
	}
	return r, nil
}

// Register validates and adds a rule. An existing ID is replaced atomically;
// the replacement keeps the original registration sequence so overlap
// tie-breaking stays stable across re-registration. On error the registry is
// unchanged.
func (r *Registry) Register(rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	seq := r.next
	if prev, ok := cur.byID[rule.ID]; ok {
		seq = prev.seq
	}

	p, err := compile(rule, seq)
	if err != nil {
		return err
	}

	patterns := make([]*Pattern, 0, len(cur.patterns)+1)
	replaced := false
	for _, existing := range cur.patterns {
		if existing.ID == p.ID {
			patterns = append(patterns, p)
			replaced = true
		} else {
			patterns = append(patterns, existing)
		}
	}
	if !replaced {
		patterns = append(patterns, p)
		r.next++
	}

	r.snap.Store(buildSnapshot(patterns))
	return nil
}

// SetState changes one rule's participation state atomically.
func (r *Registry) SetState(id string, s State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	prev, ok := cur.byID[id]
	if !ok {
		return fmt.Errorf("%w: unknown pattern %q", ErrInvalidPattern, id)
	}
	if prev.State == s {
		return nil
	}

	patterns := make([]*Pattern, len(cur.patterns))
	for i, existing := range cur.patterns {
		if existing.ID == id {
			clone := *existing
			clone.State = s
			patterns[i] = &clone
		} else {
			patterns[i] = existing
		}
	}

	r.snap.Store(buildSnapshot(patterns))
	return nil
}

// Snapshot returns the current immutable view.
func (r *Registry) Snapshot() *Snapshot {
	return r.snap.Load()
}

func buildSnapshot(patterns []*Pattern) *Snapshot {
	sn := &Snapshot{
		patterns: patterns,
		byID:     make(map[string]*Pattern, len(patterns)),
	}

	keywordIdx := make(map[string]int)
	prefixes := make([]string, 0, len(patterns))

	for _, p := range patterns {
		sn.byID[p.ID] = p
		if p.State == StateDisabled {
			continue
		}
		prefixes = append(prefixes, p.Prefix)
		if len(p.Keywords) == 0 {
			sn.unkeyed = append(sn.unkeyed, p)
			continue
		}
		for _, kw := range p.Keywords {
			i, ok := keywordIdx[kw]
			if !ok {
				i = len(sn.keywords)
				keywordIdx[kw] = i
				sn.keywords = append(sn.keywords, kw)
				sn.byKeyword = append(sn.byKeyword, nil)
			}
			sn.byKeyword[i] = append(sn.byKeyword[i], p)
		}
	}

	if len(sn.keywords) > 0 {
		sn.matcher = ahocorasick.NewStringMatcher(sn.keywords)
	}
	sn.maxTokenLen = placeholder.MaxLen(prefixes)
	return sn
}

// Get returns the pattern registered under id.
func (sn *Snapshot) Get(id string) (*Pattern, bool) {
	p, ok := sn.byID[id]
	return p, ok
}

// Len returns the number of registered patterns, disabled included.
func (sn *Snapshot) Len() int { return len(sn.patterns) }

// MaxTokenLen is the longest placeholder this snapshot can emit. The stream
// reassembler sizes its trailing buffer from it.
func (sn *Snapshot) MaxTokenLen() int { return sn.maxTokenLen }

// Enabled yields non-disabled patterns in registration order. The sequence is
// finite and restartable.
func (sn *Snapshot) Enabled() iter.Seq[*Pattern] {
	return func(yield func(*Pattern) bool) {
		for _, p := range sn.patterns {
			if p.State == StateDisabled {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Candidates returns the non-disabled patterns worth evaluating against text:
// every pattern whose keyword fires in the single automaton pass, plus every
// pattern with no keyword requirement. Returned in registration order.
func (sn *Snapshot) Candidates(text string) []*Pattern {
	fired := make(map[*Pattern]bool)
	if sn.matcher != nil {
		lower := strings.ToLower(text)
		for _, hit := range sn.matcher.MatchThreadSafe([]byte(lower)) {
			for _, p := range sn.byKeyword[hit] {
				fired[p] = true
			}
		}
	}

	out := make([]*Pattern, 0, len(fired)+len(sn.unkeyed))
	for _, p := range sn.patterns {
		if p.State == StateDisabled {
			continue
		}
		if fired[p] || len(p.Keywords) == 0 {
			out = append(out, p)
		}
	}
	return out
}
