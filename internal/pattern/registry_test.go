package pattern

import (
	"errors"
	"testing"

	"github.com/hfi/llm-secret-redactor/pkg/placeholder"
)

func TestRegistry_NewDefault(t *testing.T) {
	reg, err := NewDefault()
	if err != nil {
		t.Fatalf("NewDefault() error: %v", err)
	}

	sn := reg.Snapshot()
	if sn.Len() == 0 {
		t.Fatal("default catalog is empty")
	}

	for _, id := range []string{"openai", "anthropic", "aws_access_key", "github_pat", "jwt_token"} {
		if _, ok := sn.Get(id); !ok {
			t.Errorf("default catalog missing pattern %q", id)
		}
	}

	// Noisy generic rules ship disabled.
	for _, id := range []string{"generic_api_key", "hex_secret"} {
		p, ok := sn.Get(id)
		if !ok {
			t.Fatalf("default catalog missing pattern %q", id)
		}
		if p.State != StateDisabled {
			t.Errorf("pattern %q state = %v, want disabled", id, p.State)
		}
	}
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	testCases := []struct {
		name string
		rule Rule
	}{
		{"empty id", Rule{Expr: `abc`, Prefix: "X"}},
		{"missing prefix", Rule{ID: "x", Expr: `abc`}},
		{"bad regexp", Rule{ID: "x", Expr: `(`, Prefix: "X"}},
		{"lowercase prefix", Rule{ID: "x", Expr: `abc`, Prefix: "api_key"}},
		{"digit-led prefix", Rule{ID: "x", Expr: `abc`, Prefix: "3S_KEY"}},
		{"prefix with space", Rule{ID: "x", Expr: `abc`, Prefix: "API KEY"}},
		{"prefix with dash", Rule{ID: "x", Expr: `abc`, Prefix: "API-KEY"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reg := New()
			err := reg.Register(tc.rule)
			if err == nil {
				t.Fatal("Register() succeeded, want error")
			}
			if !errors.Is(err, ErrInvalidPattern) {
				t.Errorf("Register() error = %v, want ErrInvalidPattern", err)
			}
			if reg.Snapshot().Len() != 0 {
				t.Error("failed registration mutated the registry")
			}
		})
	}
}

func TestRegistry_RegisterReplaceKeepsSeq(t *testing.T) {
	reg := New()
	if err := reg.Register(Rule{ID: "a", Expr: `aaa`, Prefix: "A"}); err != nil {
		t.Fatalf("Register(a) error: %v", err)
	}
	if err := reg.Register(Rule{ID: "b", Expr: `bbb`, Prefix: "B"}); err != nil {
		t.Fatalf("Register(b) error: %v", err)
	}

	before, _ := reg.Snapshot().Get("a")

	if err := reg.Register(Rule{ID: "a", Expr: `a+`, Prefix: "A2"}); err != nil {
		t.Fatalf("re-Register(a) error: %v", err)
	}

	sn := reg.Snapshot()
	if sn.Len() != 2 {
		t.Fatalf("Len() = %d after replacement, want 2", sn.Len())
	}
	after, ok := sn.Get("a")
	if !ok {
		t.Fatal("replaced pattern missing")
	}
	if after.Prefix != "A2" {
		t.Errorf("replacement not applied, Prefix = %q", after.Prefix)
	}
	if after.Seq() != before.Seq() {
		t.Errorf("replacement changed seq: %d -> %d", before.Seq(), after.Seq())
	}
}

func TestRegistry_SetState(t *testing.T) {
	reg := New()
	if err := reg.Register(Rule{ID: "a", Expr: `aaa+`, Prefix: "A"}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if err := reg.SetState("a", StateDisabled); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}
	p, _ := reg.Snapshot().Get("a")
	if p.State != StateDisabled {
		t.Errorf("State = %v, want disabled", p.State)
	}

	if err := reg.SetState("missing", StateEnabled); err == nil {
		t.Error("SetState() on unknown id succeeded, want error")
	}
}

func TestSnapshot_Isolation(t *testing.T) {
	reg := New()
	if err := reg.Register(Rule{ID: "a", Expr: `aaa+`, Prefix: "A"}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	old := reg.Snapshot()
	if err := reg.SetState("a", StateDisabled); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}

	// The snapshot taken before the change must not observe it.
	p, _ := old.Get("a")
	if p.State != StateEnabled {
		t.Errorf("old snapshot state = %v, want enabled", p.State)
	}
}

func TestSnapshot_Candidates(t *testing.T) {
	reg, err := NewDefault()
	if err != nil {
		t.Fatalf("NewDefault() error: %v", err)
	}
	sn := reg.Snapshot()

	testCases := []struct {
		name    string
		text    string
		wantID  string
		present bool
	}{
		{"openai keyword fires", "my key is sk-something", "openai", true},
		{"case-insensitive keyword", "MY OPENAI CREDENTIALS", "openai", true},
		{"no keyword no candidate", "nothing interesting here", "openai", false},
		{"github keyword fires", "token ghp_abc", "github_pat", true},
		{"disabled stays out", "api key token secret everywhere", "generic_api_key", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			found := false
			for _, p := range sn.Candidates(tc.text) {
				if p.ID == tc.wantID {
					found = true
				}
			}
			if found != tc.present {
				t.Errorf("Candidates(%q) contains %q = %v, want %v", tc.text, tc.wantID, found, tc.present)
			}
		})
	}
}

func TestSnapshot_Enabled(t *testing.T) {
	reg := New()
	for _, r := range []Rule{
		{ID: "a", Expr: `aaa+`, Prefix: "A"},
		{ID: "b", Expr: `bbb+`, Prefix: "B", State: StateDisabled},
		{ID: "c", Expr: `ccc+`, Prefix: "C", State: StateLogOnly},
	} {
		if err := reg.Register(r); err != nil {
			t.Fatalf("Register(%s) error: %v", r.ID, err)
		}
	}

	var ids []string
	for p := range reg.Snapshot().Enabled() {
		ids = append(ids, p.ID)
	}

	want := []string{"a", "c"}
	if len(ids) != len(want) {
		t.Fatalf("Enabled() yielded %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Enabled()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestSnapshot_MaxTokenLen(t *testing.T) {
	reg := New()
	if err := reg.Register(Rule{ID: "a", Expr: `aaa+`, Prefix: "AWS_ACCESS_KEY"}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := reg.Register(Rule{ID: "b", Expr: `bbb+`, Prefix: "X"}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	want := placeholder.TokenLen("AWS_ACCESS_KEY")
	if got := reg.Snapshot().MaxTokenLen(); got != want {
		t.Errorf("MaxTokenLen() = %d, want %d", got, want)
	}
}

func TestParseState(t *testing.T) {
	testCases := []struct {
		input   string
		want    State
		wantErr bool
	}{
		{"enabled", StateEnabled, false},
		{"disabled", StateDisabled, false},
		{"log_only", StateLogOnly, false},
		{"bogus", 0, true},
		{"", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseState(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Errorf("ParseState(%q) succeeded, want error", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseState(%q) error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("ParseState(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestCompile_DerivedLiteralPrefix(t *testing.T) {
	reg := New()
	if err := reg.Register(Rule{ID: "a", Expr: `ghp_[a-z]{36}`, Prefix: "A"}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	p, _ := reg.Snapshot().Get("a")
	if p.LiteralPrefix != "ghp_" {
		t.Errorf("derived LiteralPrefix = %q, want %q", p.LiteralPrefix, "ghp_")
	}
}
