package output

import (
	"fmt"
	"sync"

	"github.com/cuemby/bridge/pkg/metrics"
)

// DefaultCapacity is the line capacity used when none is configured
const DefaultCapacity = 1000

// Sink is the write-only view of the buffer handed to log producers
// (eval scripts, broadcast deliveries, config watchers).
type Sink interface {
	Appendf(format string, args ...any)
}

// Buffer is a fixed-capacity FIFO log of diagnostic lines. Appending past
// capacity evicts the oldest line. All methods are safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	lines    []string
	capacity int
}

// NewBuffer creates a buffer holding at most capacity lines.
// A capacity <= 0 falls back to DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		lines:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Append pushes a line to the tail, evicting the head once full
func (b *Buffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) >= b.capacity {
		// Shift rather than reslice so the backing array is reused
		copy(b.lines, b.lines[1:])
		b.lines[len(b.lines)-1] = line
	} else {
		b.lines = append(b.lines, line)
	}
	metrics.OutputLines.Set(float64(len(b.lines)))
}

// Appendf formats a line and appends it
func (b *Buffer) Appendf(format string, args ...any) {
	b.Append(fmt.Sprintf(format, args...))
}

// Tail returns the last min(n, Len()) lines in insertion order.
// The returned slice is a copy and safe to retain.
func (b *Buffer) Tail(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > len(b.lines) {
		n = len(b.lines)
	}
	if n <= 0 {
		return []string{}
	}
	out := make([]string, n)
	copy(out, b.lines[len(b.lines)-n:])
	return out
}

// Len returns the number of currently retained lines
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// Capacity returns the fixed line capacity
func (b *Buffer) Capacity() int {
	return b.capacity
}
