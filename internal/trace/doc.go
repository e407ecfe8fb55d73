// Package trace provides a tracing subsystem for the strand runtime.
//
// The trace package enables tracking of scenario runs, logical-thread
// state transitions and wait-queue traffic to help diagnose scheduling
// bugs and stuck runs.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	strand run --trace=- --trace-level=phase scenario.toml
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - NopTracer: Zero-overhead no-op tracer when disabled
//   - StreamTracer: Immediate write to output (file/stderr)
//   - RingTracer: Circular buffer for crash dumps
//   - MultiTracer: Combines multiple tracers
//
// # Levels
//
// Tracing verbosity is controlled by levels:
//
//   - LevelOff: No tracing
//   - LevelError: Only crash dumps
//   - LevelPhase: Run and serve lifecycle boundaries
//   - LevelDetail: Logical-thread events (spawn, park, wake, done)
//   - LevelDebug: Everything including per-queue-operation events
//
// # Scopes
//
// Events are categorized by scope:
//
//   - ScopeRun: Top-level scenario/serve operations
//   - ScopeThread: Logical-thread state transitions
//   - ScopeQueue: Wait-queue enqueue/dequeue detail
//
// # Context Propagation
//
// Tracers are propagated through the runtime via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeRun, "scenario", parentID)
//	defer span.End("")
package trace
