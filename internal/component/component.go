// Package component gives condition primitives a process-visible identity
// and a remote invocation surface. It is a separate adapter layer: remote
// object concerns (identity, shared ownership, dispatch) never leak into
// the primitive itself.
package component

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"strand/internal/lco"
	"strand/internal/sched"
)

// GID is a process-unique component identity. The zero value is invalid.
type GID uint64

// Remote-invocable actions.
const (
	// ActionSignal wakes the longest-waiting thread of the target condition.
	ActionSignal = "signal"
	// ActionSignalError raises a RemoteError on the calling context. It
	// does not wake or inform any waiting thread.
	ActionSignalError = "signal_error"
)

var (
	// ErrUnknownComponent indicates a dispatch target that is not registered.
	ErrUnknownComponent = errors.New("unknown component")
	// ErrUnknownAction indicates an action name no component implements.
	ErrUnknownAction = errors.New("unknown action")
	// ErrReleased indicates use of a handle whose refcount reached zero.
	ErrReleased = errors.New("component already released")
)

// RemoteError is the error delivered by the signal-error action. It is a
// caller-context fault report, not a per-waiter error channel.
type RemoteError struct {
	Code    int64
	Message string
}

// Error returns the string representation of the remote error.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// Managed is a shared-ownership wrapper whose sole payload is a condition.
// Its lifetime is reference counted: Register hands out the first
// reference, AddRef/Release adjust it, and the component unregisters
// itself once unreferenced.
type Managed struct {
	id   GID
	refs atomic.Int64
	cond *lco.Cond
	reg  *Registry
}

// GID returns the component's identity.
func (m *Managed) GID() GID {
	if m == nil {
		return 0
	}
	return m.id
}

// Cond returns the wrapped condition.
func (m *Managed) Cond() *lco.Cond {
	if m == nil {
		return nil
	}
	return m.cond
}

// AddRef takes an additional shared reference.
func (m *Managed) AddRef() {
	if m == nil {
		return
	}
	m.refs.Add(1)
}

// Release drops one reference. When the count reaches zero the component
// is removed from its registry and further dispatches to its GID fail.
func (m *Managed) Release() {
	if m == nil {
		return
	}
	if m.refs.Add(-1) == 0 {
		m.reg.unregister(m.id)
	}
}

// Registry maps component identities to managed wrappers.
type Registry struct {
	mu    sync.Mutex
	next  GID
	items map[GID]*Managed
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		next:  1,
		items: make(map[GID]*Managed),
	}
}

// Register wraps cond in a managed component and returns the first
// reference to it.
func (r *Registry) Register(cond *lco.Cond) *Managed {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next == 0 {
		r.next = 1
	}
	id := r.next
	r.next++
	m := &Managed{id: id, cond: cond, reg: r}
	m.refs.Store(1)
	r.items[id] = m
	return m
}

// Lookup returns the managed component for id, if registered.
func (r *Registry) Lookup(id GID) (*Managed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	return m, ok
}

func (r *Registry) unregister(id GID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

// Dispatch routes a remote action to a registered component. Signal maps
// to NotifyOne; signal-error returns a RemoteError to the caller. A
// failed dispatch never affects any waiter.
func (r *Registry) Dispatch(target GID, action string, code int64, message string) error {
	m, ok := r.Lookup(target)
	if !ok {
		return fmt.Errorf("%w: gid %d", ErrUnknownComponent, target)
	}
	switch action {
	case ActionSignal:
		m.Cond().NotifyOne()
		return nil
	case ActionSignalError:
		return &RemoteError{Code: code, Message: message}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// externalScheduler adapts an executor so that wakes issued from outside
// the executor goroutine (the endpoint's connection handlers) go through
// the thread-safe injection path.
type externalScheduler struct {
	exec *sched.Executor
}

func (s externalScheduler) Current() sched.ThreadID { return s.exec.Current() }

func (s externalScheduler) Suspend() { s.exec.Suspend() }

func (s externalScheduler) SetRunnable(id sched.ThreadID) { s.exec.WakeExternal(id) }

// ExternalScheduler returns a scheduler view of exec whose wake path may
// be driven from any goroutine. Conditions that will be signalled
// remotely must be built over this view, and the executor must have
// external wakes allowed before Run.
func ExternalScheduler(exec *sched.Executor) lco.Scheduler {
	exec.AllowExternalWakes()
	return externalScheduler{exec: exec}
}
