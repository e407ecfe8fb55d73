package sched

import (
	"context"
	"errors"
	"testing"
)

func TestRunFIFO(t *testing.T) {
	exec := NewExecutor(Config{Deterministic: true})
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		exec.Spawn(func(*Context) {
			order = append(order, i)
		})
	}
	if err := exec.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
	if exec.Live() != 0 {
		t.Fatalf("expected all threads done, %d live", exec.Live())
	}
}

func TestYieldInterleaves(t *testing.T) {
	exec := NewExecutor(Config{Deterministic: true})
	var order []string
	exec.Spawn(func(ctx *Context) {
		order = append(order, "a1")
		ctx.Yield()
		order = append(order, "a2")
	})
	exec.Spawn(func(ctx *Context) {
		order = append(order, "b1")
		ctx.Yield()
		order = append(order, "b2")
	})
	if err := exec.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := []string{"a1", "b1", "a2", "b2"}
	if len(order) != len(want) {
		t.Fatalf("want %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("want %v, got %v", want, order)
		}
	}
}

func TestSuspendAndSetRunnable(t *testing.T) {
	exec := NewExecutor(Config{Deterministic: true})
	var events []string
	sleeper := exec.Spawn(func(ctx *Context) {
		events = append(events, "sleep")
		ctx.Suspend()
		events = append(events, "awake")
	})
	exec.Spawn(func(ctx *Context) {
		events = append(events, "wake-it")
		ctx.SetRunnable(sleeper)
	})
	if err := exec.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := []string{"sleep", "wake-it", "awake"}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("want %v, got %v", want, events)
		}
	}
}

func TestDeadlockReported(t *testing.T) {
	exec := NewExecutor(Config{Deterministic: true})
	id := exec.Spawn(func(ctx *Context) {
		ctx.Suspend()
	})
	err := exec.Run(context.Background())
	var dl *DeadlockError
	if !errors.As(err, &dl) {
		t.Fatalf("expected DeadlockError, got %v", err)
	}
	if len(dl.Stuck) != 1 || dl.Stuck[0] != id {
		t.Fatalf("expected stuck [%d], got %v", id, dl.Stuck)
	}
}

func TestSetRunnableDoneThreadIsNoop(t *testing.T) {
	exec := NewExecutor(Config{Deterministic: true})
	done := exec.Spawn(func(*Context) {})
	ran := 0
	exec.Spawn(func(ctx *Context) {
		ctx.SetRunnable(done)
		ran++
	})
	if err := exec.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if ran != 1 {
		t.Fatalf("notifier ran %d times", ran)
	}
	if got := exec.Status(done); got != StatusDone {
		t.Fatalf("expected done, got %v", got)
	}
}

func TestDoubleSetRunnableQueuesOnce(t *testing.T) {
	exec := NewExecutor(Config{Deterministic: true})
	wakes := 0
	sleeper := exec.Spawn(func(ctx *Context) {
		ctx.Suspend()
		wakes++
	})
	exec.Spawn(func(ctx *Context) {
		ctx.SetRunnable(sleeper)
		ctx.SetRunnable(sleeper)
	})
	if err := exec.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if wakes != 1 {
		t.Fatalf("sleeper resumed %d times", wakes)
	}
}

func TestSpawnFromThread(t *testing.T) {
	exec := NewExecutor(Config{Deterministic: true})
	var order []string
	exec.Spawn(func(ctx *Context) {
		order = append(order, "parent")
		ctx.Spawn(func(*Context) {
			order = append(order, "child")
		})
	})
	if err := exec.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(order) != 2 || order[0] != "parent" || order[1] != "child" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestExternalWake(t *testing.T) {
	exec := NewExecutor(Config{Deterministic: true})
	exec.AllowExternalWakes()
	woken := false
	id := exec.Spawn(func(ctx *Context) {
		ctx.Suspend()
		woken = true
	})
	// The second thread runs only after the sleeper has parked, so the
	// wake cannot race the initial ready state.
	exec.Spawn(func(*Context) {
		go exec.WakeExternal(id)
	})

	if err := exec.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !woken {
		t.Fatalf("external wake never resumed the thread")
	}
}

func TestExternalWakeContextCancel(t *testing.T) {
	exec := NewExecutor(Config{Deterministic: true})
	exec.AllowExternalWakes()
	exec.Spawn(func(ctx *Context) {
		ctx.Suspend()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := exec.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFuzzSeedIsReproducible(t *testing.T) {
	runOnce := func(seed uint64) []int {
		exec := NewExecutor(Config{Fuzz: true, Seed: seed})
		var order []int
		for i := 0; i < 6; i++ {
			i := i
			exec.Spawn(func(*Context) {
				order = append(order, i)
			})
		}
		if err := exec.Run(context.Background()); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		return order
	}
	a := runOnce(42)
	b := runOnce(42)
	if len(a) != len(b) {
		t.Fatalf("runs diverged: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different schedules: %v vs %v", a, b)
		}
	}
}
