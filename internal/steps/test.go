package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"breathplat/internal/analysis"
	"breathplat/internal/dataset"
	"breathplat/internal/logging"
	"breathplat/internal/workflow"

	"go.uber.org/zap"
)

// =============================================================================
// TEST
// =============================================================================

type testRunner struct {
	env Env
}

func (r *testRunner) Name() string { return "Test" }

func (r *testRunner) Fields() []Field {
	return []Field{{
		Name:     "file",
		Label:    "Test file",
		Help:     "held-out data in the same layout as the imported data",
		Kind:     FieldText,
		Required: true,
	}}
}

// Run registers the test file and runs the trained model on it.
func (r *testRunner) Run(ctx context.Context, in Input) (workflow.Result, error) {
	vals, err := resolve(r.Fields(), in.Values)
	if err != nil {
		return nil, err
	}
	cls, ok := in.Data.Classify()
	if !ok {
		return nil, &MissingInputError{Step: "Classify"}
	}
	name := vals.String("file")
	if !dataset.Supported(name) {
		return nil, invalid("file", "%s: unsupported format", name)
	}
	raw, err := os.ReadFile(r.env.Config.ResolveDataPath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	entry, err := r.env.Files.Register(filepath.Base(name), raw)
	if err != nil {
		return nil, err
	}

	resp, err := r.env.Services.Predict(ctx, analysis.Upload{Name: entry.Name, Content: entry.Raw}, cls.ModelID, cls.Features)
	if err != nil {
		return nil, err
	}

	logging.Get(logging.CategorySteps).Info("tested model",
		zap.String("model_id", cls.ModelID), zap.String("file", entry.Name), zap.Int("predictions", len(resp.Predictions)))
	return workflow.TestResult{
		File:        entry.Ref(),
		ModelID:     cls.ModelID,
		Predictions: resp.Predictions,
		Metrics:     resp.Metrics,
	}, nil
}
