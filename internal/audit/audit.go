// Package audit emits structured events about detection, redaction, and
// restoration activity. Events carry pattern names and counts, never secret
// values or the surrounding text.
package audit

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// EventType classifies an audit event.
type EventType string

const (
	EventSecretDetected   EventType = "secret_detected"
	EventSecretRedacted   EventType = "secret_redacted"
	EventRestored         EventType = "placeholder_restored"
	EventRestoreMiss      EventType = "restore_miss"
	EventLengthSkip       EventType = "length_skip"
	EventCapacityStop     EventType = "capacity_stop"
	EventSessionCleared   EventType = "session_cleared"
	EventSessionsEvicted  EventType = "sessions_evicted"
	EventSlowCall         EventType = "slow_call"
	EventPipelineRecovery EventType = "pipeline_recovery"
)

// Event is one audit record.
type Event struct {
	Type      EventType
	SessionID string
	RequestID string
	Pattern   string
	Outcome   string
	Count     int
	Duration  float64 // milliseconds
	Error     string
}

// Config holds audit logger settings.
type Config struct {
	// Enabled turns audit logging on.
	Enabled bool `yaml:"enabled"`

	// Level controls which events are logged:
	// "minimal"  - detections, redactions, restorations
	// "standard" - minimal plus skips, stops, and misses
	// "verbose"  - everything, including session lifecycle
	Level string `yaml:"level"`

	// Output is "stdout", "stderr", or a file path.
	Output string `yaml:"output"`
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Level:   "standard",
		Output:  "stderr",
	}
}

// Logger writes audit events. The zero value is unusable; construct with New
// or NewNop.
type Logger struct {
	mu     sync.RWMutex
	log    zerolog.Logger
	level  string
	out    io.Writer
	closer io.Closer
	nop    bool
}

// New creates an audit logger from cfg.
func New(cfg Config) (*Logger, error) {
	if !cfg.Enabled {
		return NewNop(), nil
	}

	var out io.Writer
	var closer io.Closer
	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		out = f
		closer = f
	}

	return &Logger{
		log:    zerolog.New(out).With().Timestamp().Str("component", "redactor").Logger(),
		level:  cfg.Level,
		out:    out,
		closer: closer,
	}, nil
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{log: zerolog.Nop(), nop: true}
}

// Log writes an event if the configured level admits it.
func (l *Logger) Log(e Event) {
	if l.nop {
		return
	}
	l.mu.RLock()
	level := l.level
	l.mu.RUnlock()

	if !admits(level, e.Type) {
		return
	}

	ev := l.log.Info().Str("event", string(e.Type))
	if e.SessionID != "" {
		ev = ev.Str("session_id", e.SessionID)
	}
	if e.RequestID != "" {
		ev = ev.Str("request_id", e.RequestID)
	}
	if e.Pattern != "" {
		ev = ev.Str("pattern", e.Pattern)
	}
	if e.Outcome != "" {
		ev = ev.Str("outcome", e.Outcome)
	}
	if e.Count > 0 {
		ev = ev.Int("count", e.Count)
	}
	if e.Duration > 0 {
		ev = ev.Float64("duration_ms", e.Duration)
	}
	if e.Error != "" {
		ev = ev.Str("error", e.Error)
	}
	ev.Msg("audit")
}

func admits(level string, t EventType) bool {
	switch strings.ToLower(level) {
	case "minimal":
		return t == EventSecretDetected || t == EventSecretRedacted || t == EventRestored
	case "verbose":
		return true
	default: // standard
		return t != EventSessionCleared && t != EventSessionsEvicted
	}
}

// SetLevel changes the logging level at runtime.
func (l *Logger) SetLevel(level string) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Close releases the output file, if any.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
