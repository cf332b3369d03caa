// Package middleware is the boundary the transport layer calls into: redact
// on the way out, restore on the way back, with a streaming variant. Every
// failure inside the pipeline is absorbed and degrades to passing the text
// through unchanged; the only signal is metrics and audit events.
package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hfi/llm-secret-redactor/internal/audit"
	"github.com/hfi/llm-secret-redactor/internal/detect"
	"github.com/hfi/llm-secret-redactor/internal/metrics"
	"github.com/hfi/llm-secret-redactor/internal/pattern"
	"github.com/hfi/llm-secret-redactor/internal/redact"
	"github.com/hfi/llm-secret-redactor/internal/restore"
	"github.com/hfi/llm-secret-redactor/internal/session"
	"github.com/hfi/llm-secret-redactor/internal/stream"
)

// Options tunes the middleware.
type Options struct {
	// MaxTextLength is the redaction length guard; <= 0 disables it.
	MaxTextLength int
	// SlowCallThreshold emits a slow_call audit event when a pass exceeds
	// it; <= 0 disables the check.
	SlowCallThreshold time.Duration
}

// Middleware coordinates detection, the session store, and restoration.
type Middleware struct {
	registry *pattern.Registry
	store    session.Store
	redactor *redact.Redactor
	matcher  *restore.Matcher
	rec      *metrics.Recorder
	log      *audit.Logger
	slowCall time.Duration
}

// New wires a middleware over the given registry and store.
func New(registry *pattern.Registry, store session.Store, rec *metrics.Recorder, log *audit.Logger, opts Options) *Middleware {
	return &Middleware{
		registry: registry,
		store:    store,
		redactor: redact.New(detect.New(registry), store, opts.MaxTextLength),
		matcher:  restore.New(store),
		rec:      rec,
		log:      log,
		slowCall: opts.SlowCallThreshold,
	}
}

// ProcessRequest redacts secrets in an inbound message. It never fails: on
// any internal error the original text is returned.
func (m *Middleware) ProcessRequest(sessionID, text string) (out string) {
	requestID := uuid.NewString()
	start := time.Now()
	m.rec.Request("request")

	defer func() {
		if r := recover(); r != nil {
			m.rec.Failure("panic")
			m.log.Log(audit.Event{
				Type:      audit.EventPipelineRecovery,
				SessionID: sessionID,
				RequestID: requestID,
				Error:     fmt.Sprint(r),
			})
			out = text
		}
		m.observe("request", sessionID, requestID, start)
	}()

	res := m.redactor.Process(sessionID, text)

	for _, match := range res.Matches {
		m.rec.PatternHit(match.Pattern.ID)
		m.log.Log(audit.Event{
			Type:      audit.EventSecretDetected,
			SessionID: sessionID,
			RequestID: requestID,
			Pattern:   match.Pattern.ID,
		})
	}
	if res.Redacted > 0 {
		m.rec.Redactions(res.Redacted)
		m.log.Log(audit.Event{
			Type:      audit.EventSecretRedacted,
			SessionID: sessionID,
			RequestID: requestID,
			Outcome:   res.Outcome.String(),
			Count:     res.Redacted,
		})
	}
	if res.StoreFailures > 0 {
		m.rec.Failure("store")
	}

	switch res.Outcome {
	case redact.OutcomeLengthSkipped:
		m.rec.LengthSkip()
		m.log.Log(audit.Event{Type: audit.EventLengthSkip, SessionID: sessionID, RequestID: requestID})
	case redact.OutcomeCapacityStopped:
		m.rec.CapacityStop()
		m.log.Log(audit.Event{Type: audit.EventCapacityStop, SessionID: sessionID, RequestID: requestID})
	}

	return res.Text
}

// ProcessResponse restores placeholders in a complete outbound message.
func (m *Middleware) ProcessResponse(sessionID, text string) (out string) {
	requestID := uuid.NewString()
	start := time.Now()
	m.rec.Request("response")

	defer func() {
		if r := recover(); r != nil {
			m.rec.Failure("panic")
			m.log.Log(audit.Event{
				Type:      audit.EventPipelineRecovery,
				SessionID: sessionID,
				RequestID: requestID,
				Error:     fmt.Sprint(r),
			})
			out = text
		}
		m.observe("response", sessionID, requestID, start)
	}()

	res := m.matcher.Restore(sessionID, text)
	m.record(sessionID, requestID, res)
	return res.Text
}

// ProcessStreamingResponse restores placeholders across a fragmented
// response. Fragments go in, fragments come out; a fragment is held back
// only while its tail might be a split placeholder. The output channel
// closes after the input closes and the tail is flushed. Abandoning the
// stream via ctx discards the buffered tail; the TTL sweep reclaims the
// session state.
func (m *Middleware) ProcessStreamingResponse(ctx context.Context, sessionID string, in <-chan string) <-chan string {
	out := make(chan string)
	requestID := uuid.NewString()
	m.rec.Request("response")

	go func() {
		defer close(out)

		re := stream.New(m.registry.Snapshot().MaxTokenLen())
		emit := func(text string) bool {
			if text == "" {
				return true
			}
			res := m.matcher.Restore(sessionID, text)
			m.record(sessionID, requestID, res)
			select {
			case out <- res.Text:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case frag, ok := <-in:
				if !ok {
					// Stream complete: whatever is buffered was not a
					// placeholder, emit it as-is.
					if tail := re.Flush(); tail != "" {
						select {
						case out <- tail:
						case <-ctx.Done():
						}
					}
					return
				}
				if !emit(re.Push(frag)) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// ClearSession drops a session's mappings immediately.
func (m *Middleware) ClearSession(sessionID string) {
	m.store.Clear(sessionID)
	m.log.Log(audit.Event{Type: audit.EventSessionCleared, SessionID: sessionID})
}

// Snapshot returns the current metrics snapshot, including store occupancy.
func (m *Middleware) Snapshot() metrics.Snapshot {
	st := m.store.Stats()
	return m.rec.Snapshot(st.Sessions, st.Secrets)
}

func (m *Middleware) record(sessionID, requestID string, res restore.Result) {
	if res.Restored > 0 {
		m.rec.Restorations(res.Restored, res.Fuzzy)
		m.log.Log(audit.Event{
			Type:      audit.EventRestored,
			SessionID: sessionID,
			RequestID: requestID,
			Count:     res.Restored,
		})
	}
	if res.Missed > 0 {
		m.rec.RestoreMisses(res.Missed)
		m.log.Log(audit.Event{
			Type:      audit.EventRestoreMiss,
			SessionID: sessionID,
			RequestID: requestID,
			Count:     res.Missed,
		})
	}
}

func (m *Middleware) observe(direction, sessionID, requestID string, start time.Time) {
	elapsed := time.Since(start)
	metrics.ProcessDuration.WithLabelValues(direction).Observe(elapsed.Seconds())
	if m.slowCall > 0 && elapsed > m.slowCall {
		m.log.Log(audit.Event{
			Type:      audit.EventSlowCall,
			SessionID: sessionID,
			RequestID: requestID,
			Outcome:   direction,
			Duration:  float64(elapsed.Microseconds()) / 1000.0,
		})
	}
}
