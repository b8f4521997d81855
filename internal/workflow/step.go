// Package workflow implements the wizard state machine that threads step
// results from the import step through to model testing.
//
// A Controller owns the ordered step list, the current step index, the set of
// completed steps and the aggregate Data store. It is the only writer of that
// state; steps hand their results back through CompleteStep.
package workflow

import (
	"fmt"
	"strings"
)

// StepKey is the normalized form of a step name, used as the key of that
// step's entry in Data.
type StepKey string

// Keys of the default steps.
const (
	KeyImport     StepKey = "data_import"
	KeyVisualize  StepKey = "visualize"
	KeyPreprocess StepKey = "preprocess"
	KeyExtract    StepKey = "extract_features"
	KeyEvaluate   StepKey = "evaluate"
	KeyClassify   StepKey = "classify"
	KeyTest       StepKey = "test"
)

// Step is one entry of the static, ordered step list.
type Step struct {
	ID   int
	Name string
}

// Key returns the normalized key of the step.
func (s Step) Key() StepKey {
	return Normalize(s.Name)
}

// Normalize lower-cases a step name and replaces spaces with underscores.
func Normalize(name string) StepKey {
	return StepKey(strings.ReplaceAll(strings.ToLower(name), " ", "_"))
}

// DefaultSteps returns the seven BreathPlat wizard steps.
func DefaultSteps() []Step {
	return []Step{
		{ID: 0, Name: "Data Import"},
		{ID: 1, Name: "Visualize"},
		{ID: 2, Name: "Preprocess"},
		{ID: 3, Name: "Extract Features"},
		{ID: 4, Name: "Evaluate"},
		{ID: 5, Name: "Classify"},
		{ID: 6, Name: "Test"},
	}
}

// validateSteps checks that a step list is usable by a Controller.
func validateSteps(steps []Step) error {
	if len(steps) == 0 {
		return fmt.Errorf("workflow needs at least one step")
	}
	seen := make(map[StepKey]int, len(steps))
	for i, s := range steps {
		if s.ID != i {
			return fmt.Errorf("step %q has id %d, expected %d", s.Name, s.ID, i)
		}
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("step %d has an empty name", i)
		}
		key := s.Key()
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("steps %d and %d share key %q", prev, i, key)
		}
		seen[key] = i
	}
	return nil
}
