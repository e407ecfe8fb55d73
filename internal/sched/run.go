package sched

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// DeadlockError reports that every live thread is suspended and no external
// wake source is registered, so no thread can ever run again.
type DeadlockError struct {
	Stuck []ThreadID
}

// Error returns the string representation of the deadlock.
func (e *DeadlockError) Error() string {
	ids := make([]string, 0, len(e.Stuck))
	for _, id := range e.Stuck {
		ids = append(ids, fmt.Sprintf("%d", id))
	}
	return fmt.Sprintf("all logical threads suspended: [%s]", strings.Join(ids, " "))
}

// Run drives the executor until every thread finishes. It returns a
// *DeadlockError if only suspended threads remain and external wakes are
// not allowed, or ctx.Err() if the context is cancelled while waiting for
// an external wake.
func (e *Executor) Run(ctx context.Context) error {
	if e == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		e.drainWakes()
		id, ok := e.nextReady()
		if !ok {
			suspended := e.suspendedIDs()
			if len(suspended) == 0 {
				return nil
			}
			if !e.external {
				return &DeadlockError{Stuck: suspended}
			}
			// Park the run loop itself until something arrives.
			select {
			case <-e.wakeSig:
				e.drainWakes()
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		e.step(id)
	}
}

func (e *Executor) suspendedIDs() []ThreadID {
	var ids []ThreadID
	for id, t := range e.threads {
		if t.status == StatusSuspended {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
