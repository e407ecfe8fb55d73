package scenario

import (
	"errors"
	"path/filepath"
	"testing"

	"strand/internal/sched"
)

func TestLoadThreeWaiters(t *testing.T) {
	scn, err := Load(filepath.Join("testdata", "three_waiters.toml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if scn.Name != "three-waiters" {
		t.Fatalf("unexpected name %q", scn.Name)
	}
	if scn.Waiters != 3 || scn.Seed != 1 || scn.Fuzz {
		t.Fatalf("unexpected scenario %+v", scn)
	}
	wantOps := []Op{OpNotifyOne, OpYield, OpNotifyAll}
	if len(scn.Steps) != len(wantOps) {
		t.Fatalf("expected %d steps, got %d", len(wantOps), len(scn.Steps))
	}
	for i, op := range wantOps {
		if scn.Steps[i].Op != op {
			t.Fatalf("step %d: want %q, got %q", i, op, scn.Steps[i].Op)
		}
	}
}

func TestLoadRejectsUnknownOp(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "bad_op.toml"))
	if !errors.Is(err, ErrUnknownOp) {
		t.Fatalf("expected ErrUnknownOp, got %v", err)
	}
}

func TestLoadRejectsMissingSection(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "no_section.toml"))
	if !errors.Is(err, ErrNoScenarioSection) {
		t.Fatalf("expected ErrNoScenarioSection, got %v", err)
	}
}

func TestRunThreeWaiterScenario(t *testing.T) {
	scn := &Scenario{
		Name:    "three-waiters",
		Waiters: 3,
		Steps: []Step{
			{Op: OpNotifyOne},
			{Op: OpYield},
			{Op: OpNotifyAll},
		},
	}
	report, err := Run(scn, Opts{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := []sched.ThreadID{1, 2, 3}
	if len(report.WakeOrder) != len(want) {
		t.Fatalf("wake order: want %v, got %v", want, report.WakeOrder)
	}
	for i := range want {
		if report.WakeOrder[i] != want[i] {
			t.Fatalf("wake order: want %v, got %v", want, report.WakeOrder)
		}
	}
	if report.Remaining != 0 {
		t.Fatalf("queue should be empty, %d left", report.Remaining)
	}
	if len(report.Deadlocked) != 0 {
		t.Fatalf("no thread should be stuck, got %v", report.Deadlocked)
	}
}

func TestRunUnderNotifiedLeavesDeadlocked(t *testing.T) {
	scn := &Scenario{
		Name:    "starved",
		Waiters: 2,
		Steps:   []Step{{Op: OpNotifyOne}},
	}
	report, err := Run(scn, Opts{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(report.WakeOrder) != 1 {
		t.Fatalf("expected one wake, got %v", report.WakeOrder)
	}
	if len(report.Deadlocked) != 1 {
		t.Fatalf("expected one stuck thread, got %v", report.Deadlocked)
	}
	if report.Remaining != 1 {
		t.Fatalf("expected one queued id left, got %d", report.Remaining)
	}
}

func TestRunEmptyNotifyScenario(t *testing.T) {
	scn := &Scenario{
		Name:  "no-waiters",
		Steps: []Step{{Op: OpNotifyOne}, {Op: OpNotifyAll}},
	}
	report, err := Run(scn, Opts{})
	if err != nil {
		t.Fatalf("notify with no waiters must not fail: %v", err)
	}
	if len(report.WakeOrder) != 0 || report.Remaining != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRunFuzzReproducible(t *testing.T) {
	scn := &Scenario{
		Name:    "fuzzed",
		Fuzz:    true,
		Seed:    99,
		Waiters: 5,
		Steps:   []Step{{Op: OpNotifyAll}},
	}
	a, err := Run(scn, Opts{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	b, err := Run(scn, Opts{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(a.WakeOrder) != len(b.WakeOrder) {
		t.Fatalf("fuzz runs diverged: %v vs %v", a.WakeOrder, b.WakeOrder)
	}
	for i := range a.WakeOrder {
		if a.WakeOrder[i] != b.WakeOrder[i] {
			t.Fatalf("same seed diverged: %v vs %v", a.WakeOrder, b.WakeOrder)
		}
	}
}

func TestRunEmitsEvents(t *testing.T) {
	scn := &Scenario{
		Name:    "evented",
		Waiters: 1,
		Steps:   []Step{{Op: OpNotifyOne}},
	}
	events := make(chan Event, 64)
	done := make(chan []Event, 1)
	go func() {
		var got []Event
		for ev := range events {
			got = append(got, ev)
		}
		done <- got
	}()
	if _, err := Run(scn, Opts{Events: events}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	got := <-done
	if len(got) == 0 {
		t.Fatalf("expected events, got none")
	}
	sawStep := false
	for _, ev := range got {
		if ev.Kind == EventStep && ev.Op == OpNotifyOne {
			sawStep = true
		}
	}
	if !sawStep {
		t.Fatalf("no step event observed: %+v", got)
	}
}
