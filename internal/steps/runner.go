// Package steps implements the seven BreathPlat wizard steps. A step is a
// Runner: it declares a form (Fields), reads the results of the steps before
// it and produces its own workflow.Result by calling an analysis service.
// Runners never touch the workflow controller; the caller hands a successful
// result to Controller.CompleteStep once the user continues.
package steps

import (
	"context"
	"fmt"

	"breathplat/internal/analysis"
	"breathplat/internal/config"
	"breathplat/internal/dataset"
	"breathplat/internal/explain"
	"breathplat/internal/workflow"
)

// Runner is one wizard step.
type Runner interface {
	// Name is the display name; its normalized form is the Data key.
	Name() string
	// Fields describes the step's form in display order.
	Fields() []Field
	// Run validates the form values and computes the step result from the
	// data of preceding steps.
	Run(ctx context.Context, in Input) (workflow.Result, error)
}

// Input is what a run sees: the results of preceding steps and the form.
type Input struct {
	Data   workflow.Data
	Values Values
}

// Env holds the collaborators shared by the default runners.
type Env struct {
	Files     *dataset.Store
	Services  *analysis.Client
	Explainer explain.Explainer
	Config    *config.Config
}

// Default returns the runners of the default steps, in workflow.DefaultSteps
// order.
func Default(env Env) []Runner {
	return []Runner{
		&importRunner{env: env},
		&visualizeRunner{env: env},
		&preprocessRunner{env: env},
		&extractRunner{env: env},
		&evaluateRunner{env: env},
		&classifyRunner{env: env},
		&testRunner{env: env},
	}
}

// StepsFor builds the controller step list for a set of runners.
func StepsFor(runners []Runner) []workflow.Step {
	out := make([]workflow.Step, len(runners))
	for i, r := range runners {
		out[i] = workflow.Step{ID: i, Name: r.Name()}
	}
	return out
}

// Find returns the runner whose normalized name is key.
func Find(runners []Runner, key workflow.StepKey) (Runner, bool) {
	for _, r := range runners {
		if workflow.Normalize(r.Name()) == key {
			return r, true
		}
	}
	return nil, false
}

// =============================================================================
// ERRORS
// =============================================================================

// ValidationError is a problem with one form field. The wizard shows it next
// to the field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// MissingInputError means a step ran before a step it depends on completed.
type MissingInputError struct {
	Step string // display name of the step whose result is needed
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("complete %q first", e.Step)
}
