package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"breathplat/internal/logging"
	"breathplat/internal/steps"
	"breathplat/internal/workflow"

	"go.uber.org/zap"
)

// Status is the outcome of one step in a headless run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Outcome records what happened to one step.
type Outcome struct {
	Step     workflow.Step
	Status   Status
	Result   workflow.Result
	Err      error
	Duration time.Duration
}

// MarshalJSON renders the outcome for --json output.
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := struct {
		Step     string          `json:"step"`
		Key      string          `json:"key"`
		Status   Status          `json:"status"`
		Result   workflow.Result `json:"result,omitempty"`
		Error    string          `json:"error,omitempty"`
		Duration string          `json:"duration"`
	}{
		Step:     o.Step.Name,
		Key:      string(o.Step.Key()),
		Status:   o.Status,
		Result:   o.Result,
		Duration: o.Duration.Round(time.Millisecond).String(),
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return json.Marshal(out)
}

// Report is the result of Execute.
type Report struct {
	Plan     string    `json:"plan,omitempty"`
	Outcomes []Outcome `json:"outcomes"`
	Finished bool      `json:"finished"`
}

// Failed returns the failed outcome, if any.
func (r *Report) Failed() (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			return o, true
		}
	}
	return Outcome{}, false
}

// Execute walks the controller from its current step to the last one. Each
// step is either skipped, as the plan says, or run with the plan's values
// and completed. The first failing step stops the run; its error is
// returned along with the report so far.
func Execute(ctx context.Context, ctl *workflow.Controller, runners []steps.Runner, p *Plan) (*Report, error) {
	if len(runners) != ctl.Len() {
		return nil, fmt.Errorf("have %d runners for %d steps", len(runners), ctl.Len())
	}
	if err := p.Validate(runners); err != nil {
		return nil, err
	}
	log := logging.Get(logging.CategoryWorkflow).With(zap.String("plan", p.Name))
	report := &Report{Plan: p.Name}

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		i := ctl.Current()
		step := ctl.CurrentStep()
		last := ctl.IsLast()

		if p.Skips(step.Key()) {
			report.Outcomes = append(report.Outcomes, Outcome{Step: step, Status: StatusSkipped})
			log.Info("skipped step", zap.String("step", step.Name))
			if last {
				break
			}
			ctl.SkipStep()
			continue
		}

		start := time.Now()
		result, err := runners[i].Run(ctx, steps.Input{Data: ctl.Inputs(i), Values: p.Values(step.Key())})
		outcome := Outcome{Step: step, Result: result, Err: err, Duration: time.Since(start)}
		if err != nil {
			outcome.Status = StatusFailed
			outcome.Result = nil
			report.Outcomes = append(report.Outcomes, outcome)
			log.Warn("step failed", zap.String("step", step.Name), zap.Error(err))
			return report, fmt.Errorf("step %q failed: %w", step.Name, err)
		}

		outcome.Status = StatusCompleted
		report.Outcomes = append(report.Outcomes, outcome)
		ctl.CompleteStep(i, result)
		log.Info("completed step", zap.String("step", step.Name), zap.Duration("took", outcome.Duration))
		if last {
			break
		}
	}

	report.Finished = ctl.Finished()
	return report, nil
}
