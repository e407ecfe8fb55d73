package component

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"

	"strand/internal/lco"
	"strand/internal/sched"
	"strand/internal/trace"
)

// lockedScheduler is a goroutine-safe recording fake.
type lockedScheduler struct {
	mu        sync.Mutex
	current   sched.ThreadID
	runnables []sched.ThreadID
}

func (f *lockedScheduler) Current() sched.ThreadID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *lockedScheduler) Suspend() {}

func (f *lockedScheduler) SetRunnable(id sched.ThreadID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runnables = append(f.runnables, id)
}

func (f *lockedScheduler) woken() []sched.ThreadID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sched.ThreadID, len(f.runnables))
	copy(out, f.runnables)
	return out
}

func (f *lockedScheduler) setCurrent(id sched.ThreadID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = id
}

func TestRegisterLookupRelease(t *testing.T) {
	reg := NewRegistry()
	m := reg.Register(lco.NewCond(&lockedScheduler{}))
	if m.GID() == 0 {
		t.Fatalf("expected nonzero gid")
	}
	if _, ok := reg.Lookup(m.GID()); !ok {
		t.Fatalf("component not found after register")
	}

	m.AddRef()
	m.Release()
	if _, ok := reg.Lookup(m.GID()); !ok {
		t.Fatalf("component dropped while references remain")
	}
	m.Release()
	if _, ok := reg.Lookup(m.GID()); ok {
		t.Fatalf("component still registered after last release")
	}
}

func TestDispatchSignal(t *testing.T) {
	fs := &lockedScheduler{}
	reg := NewRegistry()
	cond := lco.NewCond(fs)
	m := reg.Register(cond)

	fs.setCurrent(9)
	cond.Wait()

	if err := reg.Dispatch(m.GID(), ActionSignal, 0, ""); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if woken := fs.woken(); len(woken) != 1 || woken[0] != 9 {
		t.Fatalf("expected wake [9], got %v", woken)
	}

	// Empty queue: signal is a no-op, not an error.
	if err := reg.Dispatch(m.GID(), ActionSignal, 0, ""); err != nil {
		t.Fatalf("empty signal should not fail: %v", err)
	}
}

func TestDispatchSignalErrorRaisesOnCaller(t *testing.T) {
	fs := &lockedScheduler{}
	reg := NewRegistry()
	cond := lco.NewCond(fs)
	m := reg.Register(cond)

	fs.setCurrent(4)
	cond.Wait()

	err := reg.Dispatch(m.GID(), ActionSignalError, 42, "backend gone")
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if re.Code != 42 || re.Message != "backend gone" {
		t.Fatalf("unexpected payload: %+v", re)
	}
	// The waiter must be untouched.
	if woken := fs.woken(); len(woken) != 0 {
		t.Fatalf("signal-error woke waiters: %v", woken)
	}
	if cond.Waiters() != 1 {
		t.Fatalf("waiter dropped from queue")
	}
}

func TestDispatchUnknownTargets(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Dispatch(99, ActionSignal, 0, ""); !errors.Is(err, ErrUnknownComponent) {
		t.Fatalf("expected ErrUnknownComponent, got %v", err)
	}
	m := reg.Register(lco.NewCond(&lockedScheduler{}))
	if err := reg.Dispatch(m.GID(), "detonate", 0, ""); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestEndpointSignalWakesWaiter(t *testing.T) {
	exec := sched.NewExecutor(sched.Config{Deterministic: true})
	cond := lco.NewCond(ExternalScheduler(exec))
	reg := NewRegistry()
	m := reg.Register(cond)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	ep := NewEndpoint(reg, ln, trace.Nop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() { serveDone <- ep.Serve(ctx) }()

	woken := false
	exec.Spawn(func(*sched.Context) {
		cond.Wait()
		woken = true
	})
	// Runs after the waiter has parked; signals from off-executor.
	clientErr := make(chan error, 1)
	exec.Spawn(func(*sched.Context) {
		go func() {
			client, err := Dial(ln.Addr().String())
			if err != nil {
				clientErr <- err
				return
			}
			defer client.Close()
			clientErr <- client.Signal(m.GID())
		}()
	})

	if err := exec.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !woken {
		t.Fatalf("remote signal never woke the waiter")
	}
	if err := <-clientErr; err != nil {
		t.Fatalf("client signal failed: %v", err)
	}

	cancel()
	if err := <-serveDone; err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("serve returned %v", err)
	}
}

func TestEndpointSignalErrorReply(t *testing.T) {
	reg := NewRegistry()
	m := reg.Register(lco.NewCond(&lockedScheduler{}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	ep := NewEndpoint(reg, ln, trace.Nop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ep.Serve(ctx) }()

	client, err := Dial(ln.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	err = client.SignalError(m.GID(), 7, "boom")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected remote error mentioning boom, got %v", err)
	}

	// The connection survives a failed dispatch.
	if err := client.Signal(m.GID()); err != nil {
		t.Fatalf("signal after error failed: %v", err)
	}
}
