package redact

import (
	"strings"
	"testing"
	"time"

	"github.com/hfi/llm-secret-redactor/internal/detect"
	"github.com/hfi/llm-secret-redactor/internal/pattern"
	"github.com/hfi/llm-secret-redactor/internal/session"
	"github.com/hfi/llm-secret-redactor/pkg/placeholder"
)

const openAIKey = "sk-abc123def456ghi789jkl012mno345pqr678stu901vwx234yz"

func newTestRedactor(t *testing.T, maxTextLen int) (*Redactor, session.Store) {
	t.Helper()
	reg, err := pattern.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault() error: %v", err)
	}
	store := session.NewMemoryStore(session.DefaultConfig())
	return New(detect.New(reg), store, maxTextLen), store
}

func TestRedactor_OpenAIKey(t *testing.T) {
	r, _ := newTestRedactor(t, 0)

	res := r.Process("s1", "key: "+openAIKey)

	want := "key: " + placeholder.Generate("API_KEY", openAIKey)
	if res.Text != want {
		t.Errorf("Process() = %q, want %q", res.Text, want)
	}
	if res.Outcome != OutcomeRedacted {
		t.Errorf("Outcome = %v, want redacted", res.Outcome)
	}
	if res.Redacted != 1 {
		t.Errorf("Redacted = %d, want 1", res.Redacted)
	}
	if strings.Contains(res.Text, openAIKey) {
		t.Error("redacted text still contains the secret")
	}
}

func TestRedactor_CleanText(t *testing.T) {
	r, store := newTestRedactor(t, 0)

	input := "please explain how tls handshakes work"
	res := r.Process("s1", input)

	if res.Text != input {
		t.Errorf("Process() = %q, want unchanged input", res.Text)
	}
	if res.Outcome != OutcomeClean {
		t.Errorf("Outcome = %v, want clean", res.Outcome)
	}
	if st := store.Stats(); st.Secrets != 0 {
		t.Errorf("clean input stored %d secrets, want 0", st.Secrets)
	}
}

func TestRedactor_RepeatedSecretSharesToken(t *testing.T) {
	r, _ := newTestRedactor(t, 0)

	res := r.Process("s1", "first "+openAIKey+" second "+openAIKey)
	if res.Redacted != 2 {
		t.Fatalf("Redacted = %d, want 2", res.Redacted)
	}

	token := placeholder.Generate("API_KEY", openAIKey)
	if got := strings.Count(res.Text, token); got != 2 {
		t.Errorf("token %q appears %d times, want 2", token, got)
	}
}

func TestRedactor_MultiplePatterns(t *testing.T) {
	r, _ := newTestRedactor(t, 0)

	input := "openai " + openAIKey + " and aws AKIAIOSFODNN7RT4U2Y9"
	res := r.Process("s1", input)

	if res.Redacted != 2 {
		t.Fatalf("Redacted = %d, want 2: %q", res.Redacted, res.Text)
	}
	if !strings.Contains(res.Text, "<API_KEY_REDACTED_") {
		t.Errorf("missing API_KEY token in %q", res.Text)
	}
	if !strings.Contains(res.Text, "<AWS_ACCESS_KEY_REDACTED_") {
		t.Errorf("missing AWS_ACCESS_KEY token in %q", res.Text)
	}
}

func TestRedactor_LengthGuard(t *testing.T) {
	r, store := newTestRedactor(t, 64)

	input := "padding " + strings.Repeat("x", 64) + " key: " + openAIKey
	res := r.Process("s1", input)

	if res.Text != input {
		t.Errorf("Process() altered text past the length guard")
	}
	if res.Outcome != OutcomeLengthSkipped {
		t.Errorf("Outcome = %v, want length_skipped", res.Outcome)
	}
	if st := store.Stats(); st.Secrets != 0 {
		t.Errorf("length-skipped input stored %d secrets, want 0", st.Secrets)
	}
}

func TestRedactor_LengthGuardDisabled(t *testing.T) {
	r, _ := newTestRedactor(t, 0)

	input := strings.Repeat("x", 200000) + " key: " + openAIKey
	res := r.Process("s1", input)
	if res.Outcome != OutcomeRedacted {
		t.Errorf("Outcome = %v with guard disabled, want redacted", res.Outcome)
	}
}

func TestRedactor_CapacityStop(t *testing.T) {
	reg, err := pattern.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault() error: %v", err)
	}
	store := session.NewMemoryStore(session.Config{
		MaxSessions:          10,
		MaxSecretsPerSession: 1,
		TTL:                  time.Hour,
	})
	r := New(detect.New(reg), store, 0)

	second := "sk-zyx987wvu654tsr321qpo098nml765kji432hgf109edc876ba"
	res := r.Process("s1", "one "+openAIKey+" two "+second)

	if res.Outcome != OutcomeCapacityStopped {
		t.Fatalf("Outcome = %v, want capacity_stopped", res.Outcome)
	}
	if res.Redacted != 1 {
		t.Errorf("Redacted = %d, want 1", res.Redacted)
	}
	if strings.Contains(res.Text, openAIKey) {
		t.Errorf("first secret not redacted: %q", res.Text)
	}
	// Past capacity the remaining secret passes through intact, never as a
	// dangling placeholder.
	if !strings.Contains(res.Text, second) {
		t.Errorf("second secret missing from output: %q", res.Text)
	}
}

func TestRedactor_LogOnlyNotRewritten(t *testing.T) {
	r, store := newTestRedactor(t, 0)

	input := "aws secret: wJalrXUtnFEMIK7MDENGbPxRfiCYqT3oZ9aU5vLm"
	res := r.Process("s1", input)

	if res.Text != input {
		t.Errorf("log-only match rewrote text: %q", res.Text)
	}
	if res.LogOnly != 1 {
		t.Errorf("LogOnly = %d, want 1", res.LogOnly)
	}
	if res.Outcome != OutcomeClean {
		t.Errorf("Outcome = %v, want clean", res.Outcome)
	}
	if len(res.Matches) != 1 {
		t.Errorf("Matches = %d, want the log-only hit reported", len(res.Matches))
	}
	if st := store.Stats(); st.Secrets != 0 {
		t.Errorf("log-only match stored %d secrets, want 0", st.Secrets)
	}
}

func TestOutcome_String(t *testing.T) {
	testCases := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeClean, "clean"},
		{OutcomeRedacted, "redacted"},
		{OutcomeLengthSkipped, "length_skipped"},
		{OutcomeCapacityStopped, "capacity_stopped"},
		{Outcome(99), "unknown"},
	}

	for _, tc := range testCases {
		if got := tc.outcome.String(); got != tc.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(tc.outcome), got, tc.want)
		}
	}
}
