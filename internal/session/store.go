// Package session maintains the per-session, bidirectional mapping between
// placeholders and secret values. Mappings live in memory (or Redis) for a
// bounded session lifetime; nothing is persisted beyond it.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a placeholder cannot be resolved, either
	// because it was never issued or because its session expired or was
	// evicted. Callers must treat it as a non-fatal "cannot restore".
	ErrNotFound = errors.New("session: mapping not found")

	// ErrSessionFull is returned by Put once a session holds its maximum
	// number of secrets. Callers stop redacting further secrets for the
	// current message; it is not a fatal error.
	ErrSessionFull = errors.New("session: secret capacity exceeded")
)

// Stats is a point-in-time view of store occupancy.
type Stats struct {
	Sessions int
	Secrets  int
}

// Store maps placeholders to secrets within sessions.
type Store interface {
	// Put returns the placeholder for secret within the session, creating
	// the session on first use. It is idempotent per secret: redacting the
	// same value twice in one session yields the same placeholder. The
	// prefix names the placeholder category (e.g. "API_KEY").
	Put(sessionID, prefix, secret string) (string, error)

	// Resolve returns the secret a placeholder stands for, or ErrNotFound.
	Resolve(sessionID, token string) (string, error)

	// Placeholders lists every placeholder issued to the session. Used by
	// the fuzzy restoration fallback.
	Placeholders(sessionID string) []string

	// Touch refreshes the session's last-used time without mutating it.
	Touch(sessionID string)

	// Clear removes the session and all its mappings.
	Clear(sessionID string)

	// EvictExpired removes sessions idle past their TTL and returns how many
	// were removed.
	EvictExpired() int

	// Stats returns current session and secret totals.
	Stats() Stats

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources.
	Close() error
}

// Config bounds a store.
type Config struct {
	// MaxSessions is the live-session cap. Past it the least-recently-touched
	// session is evicted.
	MaxSessions int
	// MaxSecretsPerSession caps distinct secrets in one session; Put returns
	// ErrSessionFull beyond it.
	MaxSecretsPerSession int
	// TTL is the idle lifetime of a session.
	TTL time.Duration
}

// DefaultConfig mirrors the shipped defaults.
func DefaultConfig() Config {
	return Config{
		MaxSessions:          1000,
		MaxSecretsPerSession: 100,
		TTL:                  30 * time.Minute,
	}
}
