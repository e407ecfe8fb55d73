package sched

import (
	"math/rand"
	"sync"
)

// ThreadID identifies a logical thread managed by an Executor.
// The zero value means "no thread".
type ThreadID uint64

// Status describes a logical thread's scheduling state.
type Status uint8

const (
	// StatusReady means the thread is queued to run.
	StatusReady Status = iota
	// StatusRunning means the thread currently holds control.
	StatusRunning
	// StatusSuspended means the thread parked itself and is waiting for
	// another thread to mark it runnable.
	StatusSuspended
	// StatusDone means the thread body returned.
	StatusDone
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusSuspended:
		return "suspended"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// Config configures executor scheduling behavior.
type Config struct {
	Deterministic bool
	Fuzz          bool
	Seed          uint64
}

// Body is a logical thread's entry point. It runs cooperatively: control
// stays with the body until it calls Yield or Suspend on its Context, or
// returns.
type Body func(*Context)

// thread holds executor-visible state for one logical thread.
//
// resume and yielded are unbuffered handoff channels implementing a binary
// semaphore between the executor goroutine and the thread goroutine: the
// executor sends on resume and then blocks on yielded; the thread does the
// mirror image. Status fields are only written by whichever side currently
// holds control, so the channel handoffs order all accesses.
type thread struct {
	id      ThreadID
	body    Body
	status  Status
	started bool
	resume  chan struct{}
	yielded chan struct{}
}

// Context is handed to a thread body and exposes the operations a running
// logical thread may perform on itself.
type Context struct {
	exec *Executor
	id   ThreadID
}

// ID returns the calling thread's identifier.
func (c *Context) ID() ThreadID {
	if c == nil {
		return 0
	}
	return c.id
}

// Yield requeues the calling thread and hands control back to the executor.
func (c *Context) Yield() {
	if c == nil || c.exec == nil {
		return
	}
	c.exec.yieldCurrent()
}

// Suspend parks the calling thread until another thread marks it runnable.
func (c *Context) Suspend() {
	if c == nil || c.exec == nil {
		return
	}
	c.exec.Suspend()
}

// Spawn registers a new logical thread from inside a running one.
func (c *Context) Spawn(body Body) ThreadID {
	if c == nil || c.exec == nil {
		return 0
	}
	return c.exec.Spawn(body)
}

// SetRunnable marks another logical thread runnable.
func (c *Context) SetRunnable(id ThreadID) {
	if c == nil || c.exec == nil {
		return
	}
	c.exec.SetRunnable(id)
}

// Executor runs logical threads one at a time with a deterministic FIFO
// scheduler by default. Fuzz scheduling is supported for reproducible
// interleavings. All methods except WakeExternal must be called either
// from the goroutine driving Run or from the currently running thread
// body; the executor is single-threaded by construction.
type Executor struct {
	cfg      Config
	nextID   ThreadID
	ready    []ThreadID
	readySet map[ThreadID]struct{}
	threads  map[ThreadID]*thread
	current  ThreadID
	rng      *rand.Rand
	external bool

	// External wake injection. wakeMu guards wakeList; wakeSig carries at
	// most one pending notification so WakeExternal never blocks.
	wakeMu   sync.Mutex
	wakeList []ThreadID
	wakeSig  chan struct{}
}

// NewExecutor constructs an executor with the provided configuration.
func NewExecutor(cfg Config) *Executor {
	e := &Executor{
		cfg:      cfg,
		nextID:   1,
		readySet: make(map[ThreadID]struct{}),
		threads:  make(map[ThreadID]*thread),
		wakeSig:  make(chan struct{}, 1),
	}
	if cfg.Fuzz {
		seed := cfg.Seed
		if seed == 0 {
			seed = 1
		}
		e.rng = rand.New(rand.NewSource(int64(seed))) //nolint:gosec // deterministic scheduler seed
	}
	return e
}

// Current returns the ID of the thread holding control, or 0 between steps.
func (e *Executor) Current() ThreadID {
	if e == nil {
		return 0
	}
	return e.current
}

// Status returns a thread's scheduling state. Unknown ids report StatusDone.
func (e *Executor) Status(id ThreadID) Status {
	if e == nil {
		return StatusDone
	}
	t := e.threads[id]
	if t == nil {
		return StatusDone
	}
	return t.status
}

// Spawn registers a logical thread and queues it for execution.
func (e *Executor) Spawn(body Body) ThreadID {
	if e == nil || body == nil {
		return 0
	}
	if e.nextID == 0 {
		e.nextID = 1
	}
	id := e.nextID
	e.nextID++

	e.threads[id] = &thread{
		id:      id,
		body:    body,
		status:  StatusReady,
		resume:  make(chan struct{}),
		yielded: make(chan struct{}),
	}
	e.enqueue(id)
	return id
}

// SetRunnable transitions a suspended thread back to ready. Waking a done
// or unknown thread is a no-op; waking an already-ready thread does not
// queue it twice.
func (e *Executor) SetRunnable(id ThreadID) {
	if e == nil {
		return
	}
	t := e.threads[id]
	if t == nil || t.status == StatusDone || t.status == StatusRunning {
		return
	}
	e.enqueue(id)
}

// Suspend parks the calling logical thread. It must be called from a
// running thread body; the thread does not return from Suspend until some
// other code calls SetRunnable (or WakeExternal) with its id.
func (e *Executor) Suspend() {
	if e == nil || e.current == 0 {
		return
	}
	t := e.threads[e.current]
	if t == nil {
		return
	}
	t.status = StatusSuspended
	t.yielded <- struct{}{}
	<-t.resume
}

// AllowExternalWakes tells Run to block for WakeExternal calls instead of
// reporting a deadlock when every live thread is suspended.
func (e *Executor) AllowExternalWakes() {
	if e == nil {
		return
	}
	e.external = true
}

// WakeExternal marks a thread runnable from outside the executor. Unlike
// SetRunnable it is safe to call from any goroutine and never blocks; the
// wake is applied by the run loop between steps.
func (e *Executor) WakeExternal(id ThreadID) {
	if e == nil || id == 0 {
		return
	}
	e.wakeMu.Lock()
	e.wakeList = append(e.wakeList, id)
	e.wakeMu.Unlock()
	select {
	case e.wakeSig <- struct{}{}:
	default:
	}
}

// Live reports how many threads have not finished.
func (e *Executor) Live() int {
	if e == nil {
		return 0
	}
	n := 0
	for _, t := range e.threads {
		if t.status != StatusDone {
			n++
		}
	}
	return n
}

func (e *Executor) enqueue(id ThreadID) {
	if _, ok := e.readySet[id]; ok {
		return
	}
	t := e.threads[id]
	if t == nil || t.status == StatusDone {
		return
	}
	e.ready = append(e.ready, id)
	e.readySet[id] = struct{}{}
	if t.status != StatusRunning {
		t.status = StatusReady
	}
}

// nextReady returns the next ready thread according to scheduler policy.
func (e *Executor) nextReady() (ThreadID, bool) {
	for len(e.ready) > 0 {
		idx := 0
		if e.cfg.Fuzz && e.rng != nil {
			idx = e.rng.Intn(len(e.ready))
		}
		id := e.ready[idx]
		copy(e.ready[idx:], e.ready[idx+1:])
		e.ready = e.ready[:len(e.ready)-1]
		delete(e.readySet, id)
		t := e.threads[id]
		if t == nil || t.status == StatusDone {
			continue
		}
		return id, true
	}
	return 0, false
}

func (e *Executor) yieldCurrent() {
	if e.current == 0 {
		return
	}
	t := e.threads[e.current]
	if t == nil {
		return
	}
	e.enqueue(t.id)
	t.status = StatusReady
	t.yielded <- struct{}{}
	<-t.resume
}

// step hands control to the given thread and blocks until it yields,
// suspends, or finishes.
func (e *Executor) step(id ThreadID) {
	t := e.threads[id]
	e.current = id
	t.status = StatusRunning
	if !t.started {
		t.started = true
		go func() {
			ctx := &Context{exec: e, id: t.id}
			t.body(ctx)
			t.status = StatusDone
			t.yielded <- struct{}{}
		}()
	} else {
		t.resume <- struct{}{}
	}
	<-t.yielded
	e.current = 0
}

func (e *Executor) drainWakes() {
	e.wakeMu.Lock()
	pending := e.wakeList
	e.wakeList = nil
	e.wakeMu.Unlock()
	for _, id := range pending {
		e.SetRunnable(id)
	}
}
