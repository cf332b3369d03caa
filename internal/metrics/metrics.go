// Package metrics exposes Prometheus instrumentation for the redaction core
// and an internally-accumulated snapshot for external collectors. The core
// only produces these numbers; it never ships them anywhere itself.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts texts processed on either path.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redactor_requests_total",
		Help: "Total number of texts processed",
	}, []string{"direction"}) // "request" or "response"

	// RedactionsTotal counts secrets replaced with placeholders.
	RedactionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redactor_redactions_total",
		Help: "Total number of secrets replaced with placeholders",
	})

	// RestorationsTotal counts placeholders restored to secrets.
	RestorationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redactor_restorations_total",
		Help: "Total number of placeholders restored to secrets",
	})

	// PatternHitsTotal counts detections per pattern.
	PatternHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redactor_pattern_hits_total",
		Help: "Total number of detections per pattern",
	}, []string{"pattern"})

	// FailuresTotal counts absorbed pipeline failures by kind.
	FailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redactor_failures_total",
		Help: "Total number of absorbed failures in the redaction pipeline",
	}, []string{"kind"}) // "store", "restore_miss", "length_skip", "capacity_stop"

	// SessionsGauge tracks live sessions in the store.
	SessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "redactor_sessions",
		Help: "Current number of live sessions",
	})

	// SecretsGauge tracks stored secret mappings across sessions.
	SecretsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "redactor_secrets",
		Help: "Current number of stored secret mappings",
	})

	// ProcessDuration tracks per-call latency by direction.
	ProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redactor_process_duration_seconds",
		Help:    "Processing duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"direction"})
)

// Snapshot is a read-only view of the counters for external collectors.
type Snapshot struct {
	Requests      uint64            `json:"requests"`
	Redactions    uint64            `json:"redactions"`
	Restorations  uint64            `json:"restorations"`
	FuzzyRestores uint64            `json:"fuzzy_restores"`
	RestoreMisses uint64            `json:"restore_misses"`
	LengthSkips   uint64            `json:"length_skips"`
	CapacityStops uint64            `json:"capacity_stops"`
	Failures      uint64            `json:"failures"`
	PatternHits   map[string]uint64 `json:"pattern_hits"`
	Sessions      int               `json:"sessions"`
	Secrets       int               `json:"secrets"`
}

// Recorder accumulates the snapshot counters alongside the Prometheus
// series. Safe for concurrent use.
type Recorder struct {
	requests      atomic.Uint64
	redactions    atomic.Uint64
	restorations  atomic.Uint64
	fuzzyRestores atomic.Uint64
	restoreMisses atomic.Uint64
	lengthSkips   atomic.Uint64
	capacityStops atomic.Uint64
	failures      atomic.Uint64

	mu          sync.Mutex
	patternHits map[string]uint64
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{patternHits: make(map[string]uint64)}
}

// Request records one processed text.
func (r *Recorder) Request(direction string) {
	r.requests.Add(1)
	RequestsTotal.WithLabelValues(direction).Inc()
}

// Redactions records n replaced secrets.
func (r *Recorder) Redactions(n int) {
	if n <= 0 {
		return
	}
	r.redactions.Add(uint64(n))
	RedactionsTotal.Add(float64(n))
}

// Restorations records restored placeholders, fuzzy of which went through
// the suffix fallback.
func (r *Recorder) Restorations(n, fuzzy int) {
	if n > 0 {
		r.restorations.Add(uint64(n))
		RestorationsTotal.Add(float64(n))
	}
	if fuzzy > 0 {
		r.fuzzyRestores.Add(uint64(fuzzy))
	}
}

// RestoreMisses records placeholders left unrestored.
func (r *Recorder) RestoreMisses(n int) {
	if n <= 0 {
		return
	}
	r.restoreMisses.Add(uint64(n))
	FailuresTotal.WithLabelValues("restore_miss").Add(float64(n))
}

// LengthSkip records a text passed through unscanned by the length guard.
func (r *Recorder) LengthSkip() {
	r.lengthSkips.Add(1)
	FailuresTotal.WithLabelValues("length_skip").Inc()
}

// CapacityStop records a redaction pass cut short by the session secret cap.
func (r *Recorder) CapacityStop() {
	r.capacityStops.Add(1)
	FailuresTotal.WithLabelValues("capacity_stop").Inc()
}

// Failure records an absorbed pipeline failure.
func (r *Recorder) Failure(kind string) {
	r.failures.Add(1)
	FailuresTotal.WithLabelValues(kind).Inc()
}

// PatternHit records one detection for a pattern id.
func (r *Recorder) PatternHit(id string) {
	r.mu.Lock()
	r.patternHits[id]++
	r.mu.Unlock()
	PatternHitsTotal.WithLabelValues(id).Inc()
}

// Snapshot copies the counters, folding in current store occupancy.
func (r *Recorder) Snapshot(sessions, secrets int) Snapshot {
	SessionsGauge.Set(float64(sessions))
	SecretsGauge.Set(float64(secrets))

	r.mu.Lock()
	hits := make(map[string]uint64, len(r.patternHits))
	for k, v := range r.patternHits {
		hits[k] = v
	}
	r.mu.Unlock()

	return Snapshot{
		Requests:      r.requests.Load(),
		Redactions:    r.redactions.Load(),
		Restorations:  r.restorations.Load(),
		FuzzyRestores: r.fuzzyRestores.Load(),
		RestoreMisses: r.restoreMisses.Load(),
		LengthSkips:   r.lengthSkips.Load(),
		CapacityStops: r.capacityStops.Load(),
		Failures:      r.failures.Load(),
		PatternHits:   hits,
		Sessions:      sessions,
		Secrets:       secrets,
	}
}
