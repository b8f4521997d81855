package wizard

import (
	"context"

	"breathplat/internal/analysis"
	"breathplat/internal/dataset"
	"breathplat/internal/steps"
	"breathplat/internal/workflow"

	tea "github.com/charmbracelet/bubbletea"
)

// runDoneMsg carries the outcome of one step run back into Update.
type runDoneMsg struct {
	step   int
	gen    int
	result workflow.Result
	err    error
}

// completeMsg asks Update to hand a confirmed result to the controller.
type completeMsg struct {
	step   int
	result workflow.Result
}

// filesMsg is a fresh listing of the data directory.
type filesMsg []string

// healthMsg holds one round of service health checks.
type healthMsg []analysis.HealthStatus

// runStep runs a step off the UI loop. The input snapshot is taken by the
// caller so later navigation cannot change what the run sees.
func runStep(ctx context.Context, r steps.Runner, step, gen int, in steps.Input) tea.Cmd {
	return func() tea.Msg {
		res, err := r.Run(ctx, in)
		return runDoneMsg{step: step, gen: gen, result: res, err: err}
	}
}

func complete(step int, result workflow.Result) tea.Cmd {
	return func() tea.Msg {
		return completeMsg{step: step, result: result}
	}
}

// waitForFiles blocks until the watcher publishes a listing.
func waitForFiles(w *dataset.Watcher) tea.Cmd {
	return func() tea.Msg {
		names, ok := <-w.Updates()
		if !ok {
			return nil
		}
		return filesMsg(names)
	}
}

func checkServices(ctx context.Context, c *analysis.Client, services []string) tea.Cmd {
	return func() tea.Msg {
		return healthMsg(c.CheckAll(ctx, services))
	}
}
