// Package lco provides local control objects for cooperative logical
// threads. A control object never blocks an OS thread: "waiting" is a
// scheduler state transition, and waking is another.
package lco

import (
	"strand/internal/sched"
	"strand/internal/waitq"
)

// Scheduler is the narrow slice of the executor a control object needs.
// *sched.Executor satisfies it; tests inject fakes.
type Scheduler interface {
	// Current returns the calling logical thread's identifier.
	Current() sched.ThreadID
	// Suspend cooperatively parks the calling logical thread until some
	// other code marks it runnable.
	Suspend()
	// SetRunnable transitions a suspended logical thread back to ready.
	SetRunnable(id sched.ThreadID)
}

// Cond synchronizes an arbitrary number of logical threads, parking every
// entering thread until a single one or all of them get notified.
//
// Cond holds no lock and no mutable state beyond its wait queue; safety
// under concurrent use comes entirely from the queue's lock-free protocol.
// Do not add fields that would need external synchronization.
type Cond struct {
	sch Scheduler
	q   *waitq.Queue[sched.ThreadID]
}

// NewCond constructs a condition bound to the given scheduler.
func NewCond(sch Scheduler) *Cond {
	return &Cond{
		sch: sch,
		q:   waitq.New[sched.ThreadID](),
	}
}

// Wait parks the calling logical thread until it is notified.
//
// The thread's id is enqueued before the thread yields, so a NotifyOne
// racing with Wait cannot miss an id whose enqueue completed first. Wait
// returns with no payload; the caller cannot tell NotifyOne wakes from
// NotifyAll wakes. A thread must not call Wait again on the same Cond
// before being notified.
func (c *Cond) Wait() {
	c.q.Enqueue(c.sch.Current())
	c.sch.Suspend()
}

// NotifyOne wakes the longest-waiting logical thread, if any. With no
// waiters it is a no-op: notifications are not remembered for future
// Wait calls.
func (c *Cond) NotifyOne() {
	if id, ok := c.q.Dequeue(); ok {
		c.sch.SetRunnable(id)
	}
}

// NotifyAll wakes every logical thread whose enqueue completed before the
// drain observed the queue empty. Threads calling Wait concurrently with
// the drain may or may not be included.
func (c *Cond) NotifyAll() {
	for {
		id, ok := c.q.Dequeue()
		if !ok {
			return
		}
		c.sch.SetRunnable(id)
	}
}

// Waiters reports the approximate number of parked threads, for
// monitoring only.
func (c *Cond) Waiters() int {
	return c.q.Len()
}
