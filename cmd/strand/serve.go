package main

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"strand/internal/component"
	"strand/internal/lco"
	"strand/internal/scenario"
	"strand/internal/sched"
	"strand/internal/trace"
)

var serveCmd = &cobra.Command{
	Use:   "serve [flags] <scenario.toml>",
	Short: "Expose a condition on a signal endpoint",
	Long: `Park the scenario's waiter threads on a condition registered as a
network-addressable component, then serve msgpack signal/signal-error
invocations until every waiter has been woken`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "127.0.0.1:0", "signal endpoint listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	scn, err := scenario.Load(args[0])
	if err != nil {
		return err
	}

	listenAddr, err := cmd.Flags().GetString("listen")
	if err != nil {
		return fmt.Errorf("failed to get listen flag: %w", err)
	}

	tracer := trace.FromContext(cmd.Context())
	span := trace.Begin(tracer, trace.ScopeRun, "serve:"+scn.Name, 0)
	defer span.End("")

	exec := sched.NewExecutor(sched.Config{
		Deterministic: !scn.Fuzz,
		Fuzz:          scn.Fuzz,
		Seed:          scn.Seed,
	})
	cond := lco.NewCond(component.ExternalScheduler(exec))

	reg := component.NewRegistry()
	managed := reg.Register(cond)
	defer managed.Release()

	var wakeOrder []sched.ThreadID
	for n := 0; n < scn.Waiters; n++ {
		exec.Spawn(func(ctx *sched.Context) {
			trace.Point(tracer, trace.ScopeThread, "park", "", uint64(ctx.ID()))
			cond.Wait()
			trace.Point(tracer, trace.ScopeThread, "wake", "", uint64(ctx.ID()))
			wakeOrder = append(wakeOrder, ctx.ID())
		})
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	ep := component.NewEndpoint(reg, ln, tracer)

	fmt.Fprintf(cmd.OutOrStdout(), "serving condition gid=%d on %s (%d waiter(s))\n",
		managed.GID(), ep.Addr(), scn.Waiters)

	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, runCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return ep.Serve(runCtx)
	})
	g.Go(func() error {
		// Stops the endpoint once every waiter has been woken.
		defer cancel()
		return exec.Run(runCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	for _, id := range wakeOrder {
		fmt.Fprintf(cmd.OutOrStdout(), "woken: t%d\n", id)
	}
	return nil
}
