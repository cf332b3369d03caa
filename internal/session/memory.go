package session

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hfi/llm-secret-redactor/pkg/placeholder"
)

// MemoryStore is the in-memory Store. The top-level index lock is held only
// to locate a record and maintain LRU order; all per-session work happens
// under the record's own mutex, so one session's activity never blocks
// another's.
type MemoryStore struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*record
	lru      *list.List // front = most recently touched; values are *record
}

type record struct {
	mu      sync.Mutex
	id      string
	forward map[string]string // placeholder -> secret
	reverse map[string]string // secret -> placeholder
	touched time.Time
	elem    *list.Element
}

// NewMemoryStore creates an in-memory store with the given bounds.
func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{
		cfg:      cfg,
		sessions: make(map[string]*record),
		lru:      list.New(),
	}
}

// Put implements Store. Placeholder assignment happens under the record lock,
// so racing redactions of the same secret within one session always agree on
// the placeholder.
func (m *MemoryStore) Put(sessionID, prefix, secret string) (string, error) {
	rec := m.getOrCreate(sessionID)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if token, ok := rec.reverse[secret]; ok {
		return token, nil
	}
	if len(rec.forward) >= m.cfg.MaxSecretsPerSession {
		return "", ErrSessionFull
	}

	// The 4-hex suffix can collide between distinct secrets. Uniqueness of
	// placeholders within a session is an invariant, so on collision the
	// hash input is salted until a free token is found.
	token := placeholder.Generate(prefix, secret)
	for attempt := 1; ; attempt++ {
		if _, taken := rec.forward[token]; !taken {
			break
		}
		token = placeholder.Generate(prefix, fmt.Sprintf("%s\x00%d", secret, attempt))
	}

	rec.forward[token] = secret
	rec.reverse[secret] = token
	return token, nil
}

// Resolve implements Store.
func (m *MemoryStore) Resolve(sessionID, token string) (string, error) {
	rec := m.lookup(sessionID)
	if rec == nil {
		return "", ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	secret, ok := rec.forward[token]
	if !ok {
		return "", ErrNotFound
	}
	return secret, nil
}

// Placeholders implements Store.
func (m *MemoryStore) Placeholders(sessionID string) []string {
	rec := m.lookup(sessionID)
	if rec == nil {
		return nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]string, 0, len(rec.forward))
	for token := range rec.forward {
		out = append(out, token)
	}
	return out
}

// Touch implements Store.
func (m *MemoryStore) Touch(sessionID string) {
	m.lookup(sessionID)
}

// Clear implements Store.
func (m *MemoryStore) Clear(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.sessions[sessionID]; ok {
		m.remove(rec)
	}
}

// EvictExpired implements Store. It is also applied lazily on every access,
// so an explicit sweep is an optimization, not a correctness requirement.
func (m *MemoryStore) EvictExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	evicted := 0
	// Walk from the LRU tail; records are ordered by last touch, so the
	// first live one ends the scan.
	for e := m.lru.Back(); e != nil; {
		rec := e.Value.(*record)
		if now.Sub(rec.touched) <= m.cfg.TTL {
			break
		}
		prev := e.Prev()
		m.remove(rec)
		evicted++
		e = prev
	}
	return evicted
}

// StartSweep runs EvictExpired on the given interval until ctx is cancelled.
func (m *MemoryStore) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.EvictExpired()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stats implements Store.
func (m *MemoryStore) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Stats{Sessions: len(m.sessions)}
	for _, rec := range m.sessions {
		rec.mu.Lock()
		st.Secrets += len(rec.forward)
		rec.mu.Unlock()
	}
	return st
}

// Ping implements Store. Process memory has no failure mode to report.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

// getOrCreate returns the live record for sessionID, creating it (and
// evicting the least-recently-touched session past MaxSessions) as needed.
func (m *MemoryStore) getOrCreate(sessionID string) *record {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if rec, ok := m.sessions[sessionID]; ok {
		if now.Sub(rec.touched) > m.cfg.TTL {
			m.remove(rec)
		} else {
			rec.touched = now
			m.lru.MoveToFront(rec.elem)
			return rec
		}
	}

	rec := &record{
		id:      sessionID,
		forward: make(map[string]string),
		reverse: make(map[string]string),
		touched: now,
	}
	rec.elem = m.lru.PushFront(rec)
	m.sessions[sessionID] = rec

	for len(m.sessions) > m.cfg.MaxSessions {
		oldest := m.lru.Back()
		if oldest == nil {
			break
		}
		m.remove(oldest.Value.(*record))
	}
	return rec
}

// lookup returns the live record for sessionID and refreshes its LRU
// position, or nil if missing or expired. Expired records are removed.
func (m *MemoryStore) lookup(sessionID string) *record {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	now := time.Now()
	if now.Sub(rec.touched) > m.cfg.TTL {
		m.remove(rec)
		return nil
	}
	rec.touched = now
	m.lru.MoveToFront(rec.elem)
	return rec
}

// remove deletes a record from the index and LRU list. Callers hold m.mu.
func (m *MemoryStore) remove(rec *record) {
	delete(m.sessions, rec.id)
	m.lru.Remove(rec.elem)
}
