package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"strand/internal/scenario"
	"strand/internal/trace"
	"strand/internal/ui"
)

type runOutcome struct {
	report *scenario.Report
	err    error
}

func runScenarioWithUI(scn *scenario.Scenario, tracer trace.Tracer) (*scenario.Report, error) {
	events := make(chan scenario.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		// scenario.Run closes the events channel when the run is over.
		report, err := scenario.Run(scn, scenario.Opts{Tracer: tracer, Events: events})
		outcomeCh <- runOutcome{report: report, err: err}
	}()

	model := ui.NewMonitorModel("scenario: "+scn.Name, len(scn.Steps), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// If the user quit early, keep draining so the runner never blocks on
	// a full channel.
	for range events {
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
