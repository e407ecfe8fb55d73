package scenario

import (
	"context"
	"errors"
	"fmt"

	"strand/internal/lco"
	"strand/internal/sched"
	"strand/internal/trace"
)

// EventKind classifies monitor events emitted during a run.
type EventKind uint8

const (
	// EventThread reports a logical-thread status change.
	EventThread EventKind = iota + 1
	// EventStep reports a scripted notifier step being applied.
	EventStep
)

// Event feeds live run state to a monitor.
type Event struct {
	Kind      EventKind
	Thread    sched.ThreadID
	Status    string
	StepIndex int
	Op        Op
}

// Opts configures a run.
type Opts struct {
	Tracer trace.Tracer
	// Events receives live run events if non-nil; closed when the run is
	// over.
	Events chan<- Event
}

// Report summarizes a completed run.
type Report struct {
	Name       string
	Waiters    int
	Steps      int
	WakeOrder  []sched.ThreadID
	Remaining  int
	Deadlocked []sched.ThreadID
}

// Run executes the scenario to completion and reports what happened.
// Waiters that the script never notifies surface in Report.Deadlocked;
// that is a legitimate scenario outcome, not a runner failure.
func Run(scn *Scenario, opts Opts) (*Report, error) {
	if scn == nil {
		return nil, errors.New("nil scenario")
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}

	span := trace.Begin(tracer, trace.ScopeRun, "scenario:"+scn.Name, 0)

	exec := sched.NewExecutor(sched.Config{
		Deterministic: !scn.Fuzz,
		Fuzz:          scn.Fuzz,
		Seed:          scn.Seed,
	})
	cond := lco.NewCond(exec)

	emit := func(ev Event) {
		if opts.Events != nil {
			opts.Events <- ev
		}
	}

	report := &Report{Name: scn.Name, Waiters: scn.Waiters, Steps: len(scn.Steps)}

	for n := 0; n < scn.Waiters; n++ {
		id := exec.Spawn(func(ctx *sched.Context) {
			trace.Point(tracer, trace.ScopeThread, "park", "", uint64(ctx.ID()))
			emit(Event{Kind: EventThread, Thread: ctx.ID(), Status: "suspended"})
			cond.Wait()
			trace.Point(tracer, trace.ScopeThread, "wake", "", uint64(ctx.ID()))
			report.WakeOrder = append(report.WakeOrder, ctx.ID())
			emit(Event{Kind: EventThread, Thread: ctx.ID(), Status: "done"})
		})
		emit(Event{Kind: EventThread, Thread: id, Status: "ready"})
	}

	exec.Spawn(func(ctx *sched.Context) {
		for i, step := range scn.Steps {
			trace.Point(tracer, trace.ScopeRun, "step", string(step.Op), 0)
			emit(Event{Kind: EventStep, StepIndex: i, Op: step.Op})
			switch step.Op {
			case OpNotifyOne:
				cond.NotifyOne()
			case OpNotifyAll:
				cond.NotifyAll()
			case OpYield:
				ctx.Yield()
			}
		}
	})

	err := exec.Run(context.Background())
	if opts.Events != nil {
		close(opts.Events)
	}
	var dl *sched.DeadlockError
	switch {
	case err == nil:
	case errors.As(err, &dl):
		report.Deadlocked = dl.Stuck
	default:
		span.End("failed")
		return nil, fmt.Errorf("scenario %q: %w", scn.Name, err)
	}

	report.Remaining = cond.Waiters()
	span.WithExtra("woken", fmt.Sprintf("%d", len(report.WakeOrder))).End("")
	return report, nil
}
