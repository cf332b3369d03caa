// Package stream reassembles a chunked response so that a placeholder token
// straddling fragment boundaries is never handed to restoration in pieces.
package stream

import (
	"github.com/hfi/llm-secret-redactor/pkg/placeholder"
)

// Reassembler buffers the unresolved tail of the previous fragment. A token
// of maximal length L can be split across up to L-1 boundaries; the tail is
// bounded by L-1 bytes, so added latency is at most one fragment of
// buffering.
type Reassembler struct {
	tail        string
	maxTokenLen int
}

// New creates a reassembler for tokens up to maxTokenLen bytes. Values below
// the fixed token overhead are raised to it.
func New(maxTokenLen int) *Reassembler {
	if maxTokenLen < placeholder.Overhead {
		maxTokenLen = placeholder.Overhead
	}
	return &Reassembler{maxTokenLen: maxTokenLen}
}

// Push absorbs the next fragment and returns the text that is safe to emit:
// everything up to the start of any still-incomplete trailing token
// candidate. The candidate is retained as the new tail.
func (r *Reassembler) Push(fragment string) string {
	buf := r.tail + fragment
	cut := r.safeCut(buf)
	r.tail = buf[cut:]
	return buf[:cut]
}

// Flush returns the retained tail as plain text. Called on stream
// completion: whatever is still buffered was not a placeholder.
func (r *Reassembler) Flush() string {
	out := r.tail
	r.tail = ""
	return out
}

// Pending returns the number of buffered tail bytes.
func (r *Reassembler) Pending() int { return len(r.tail) }

// safeCut finds the earliest offset in the trailing window that starts an
// incomplete token candidate. Everything before it is safe to emit. The
// candidate grammar excludes '<', so at most one trailing position
// qualifies.
func (r *Reassembler) safeCut(buf string) int {
	start := len(buf) - (r.maxTokenLen - 1)
	if start < 0 {
		start = 0
	}
	for i := start; i < len(buf); i++ {
		if buf[i] == '<' && placeholder.CouldBePrefix(buf[i:], r.maxTokenLen) {
			return i
		}
	}
	return len(buf)
}
