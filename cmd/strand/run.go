package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"strand/internal/observ"
	"strand/internal/scenario"
	"strand/internal/trace"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <scenario.toml>",
	Short: "Run a scheduling scenario",
	Long:  `Load a scenario file, run its waiter and notifier threads on a cooperative executor, and report the wake order`,
	Args:  cobra.ExactArgs(1),
	RunE:  runScenario,
}

func init() {
	runCmd.Flags().Uint64("seed", 0, "override the scenario seed")
	runCmd.Flags().Bool("fuzz", false, "force fuzzed scheduling regardless of the scenario setting")
	runCmd.Flags().String("ui", "auto", "interactive monitor (auto|on|off)")
	runCmd.Flags().Bool("timings", false, "show per-phase timing information")
}

func runScenario(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	showTimings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	useColor := colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout))
	color.NoColor = !useColor
	timer := observ.NewTimer()

	loadPhase := timer.Begin("load")
	scn, err := scenario.Load(args[0])
	timer.End(loadPhase, "")
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("seed") {
		seed, err := cmd.Flags().GetUint64("seed")
		if err != nil {
			return fmt.Errorf("failed to get seed flag: %w", err)
		}
		scn.Seed = seed
	}
	if cmd.Flags().Changed("fuzz") {
		fuzz, err := cmd.Flags().GetBool("fuzz")
		if err != nil {
			return fmt.Errorf("failed to get fuzz flag: %w", err)
		}
		scn.Fuzz = fuzz
	}

	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	tracer := trace.FromContext(cmd.Context())

	runPhase := timer.Begin("run")
	var report *scenario.Report
	if shouldUseTUI(mode) {
		report, err = runScenarioWithUI(scn, tracer)
	} else {
		report, err = scenario.Run(scn, scenario.Opts{Tracer: tracer})
	}
	timer.End(runPhase, fmt.Sprintf("%d steps", len(scn.Steps)))
	if err != nil {
		return err
	}

	if !quiet {
		printReport(cmd.OutOrStdout(), report)
	}
	if showTimings {
		fmt.Fprint(cmd.OutOrStdout(), timer.Summary())
	}
	if len(report.Deadlocked) > 0 {
		return fmt.Errorf("%d thread(s) never notified", len(report.Deadlocked))
	}
	return nil
}

func printReport(out io.Writer, report *scenario.Report) {
	titleColor := color.New(color.Bold)
	okColor := color.New(color.FgGreen)
	warnColor := color.New(color.FgYellow)
	badColor := color.New(color.FgRed)

	fmt.Fprintf(out, "%s  waiters=%d steps=%d\n",
		titleColor.Sprintf("scenario %s", report.Name), report.Waiters, report.Steps)

	if len(report.WakeOrder) > 0 {
		ids := make([]string, 0, len(report.WakeOrder))
		for _, id := range report.WakeOrder {
			ids = append(ids, fmt.Sprintf("t%d", id))
		}
		fmt.Fprintf(out, "wake order: %s\n", okColor.Sprint(strings.Join(ids, " ")))
	} else {
		fmt.Fprintln(out, "wake order: (none)")
	}

	if report.Remaining > 0 {
		fmt.Fprintf(out, "still queued: %s\n", warnColor.Sprintf("%d", report.Remaining))
	}
	if len(report.Deadlocked) > 0 {
		ids := make([]string, 0, len(report.Deadlocked))
		for _, id := range report.Deadlocked {
			ids = append(ids, fmt.Sprintf("t%d", id))
		}
		fmt.Fprintf(out, "never woken: %s\n", badColor.Sprint(strings.Join(ids, " ")))
	}
}
