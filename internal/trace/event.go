package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1 // span start
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd // span end
	// KindPoint represents an instant event.
	KindPoint     // instant event
	KindHeartbeat // periodic liveness signal
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity level of the event.
// Lower numeric values represent higher-level/coarser events.
type Scope uint8

const (
	// ScopeRun represents top-level scenario and serve operations.
	ScopeRun Scope = iota + 1 // run/serve lifecycle (highest level)
	// ScopeThread represents logical-thread state transitions.
	ScopeThread // spawn, park, wake, done
	// ScopeQueue represents wait-queue traffic (most detailed).
	ScopeQueue // per enqueue/dequeue
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeRun:
		return "run"
	case ScopeThread:
		return "thread"
	case ScopeQueue:
		return "queue"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time         // wall-clock timestamp
	Seq      uint64            // global sequence number (monotonic)
	Kind     Kind              // event kind
	Scope    Scope             // granularity level
	SpanID   uint64            // unique span identifier
	ParentID uint64            // parent span (0 if root)
	GID      uint64            // goroutine ID (for concurrent spans)
	Thread   uint64            // logical thread id (0 if not thread-bound)
	Name     string            // e.g., "park", "wake", "scenario:three-waiters"
	Detail   string            // optional detail message
	Extra    map[string]string // extensible key-value pairs
}
