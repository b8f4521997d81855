package steps

import (
	"context"

	"breathplat/internal/analysis"
	"breathplat/internal/dataset"
	"breathplat/internal/logging"
	"breathplat/internal/workflow"

	"go.uber.org/zap"
)

// =============================================================================
// EXTRACT FEATURES
// =============================================================================

type extractRunner struct {
	env Env
}

func (r *extractRunner) Name() string { return "Extract Features" }

func (r *extractRunner) Fields() []Field {
	return []Field{
		{Name: "method", Label: "Method", Kind: FieldChoice, Default: "statistical",
			Choices: []string{"statistical", "pca", "wavelet"}},
		{Name: "window", Label: "Window (samples)", Help: "0 uses each row as one sample", Kind: FieldInt, Default: "0"},
		{Name: "components", Label: "Components", Help: "used by pca", Kind: FieldInt, Default: "2"},
		{Name: "label", Label: "Label column", Help: "column holding the class of each sample", Kind: FieldText},
	}
}

// Run extracts features from the preprocessed dataset, or from the first
// imported dataset when preprocessing was skipped.
func (r *extractRunner) Run(ctx context.Context, in Input) (workflow.Result, error) {
	vals, err := resolve(r.Fields(), in.Values)
	if err != nil {
		return nil, err
	}
	req := analysis.ExtractRequest{
		Method:     vals.Choice("method"),
		Window:     vals.Int("window"),
		Components: vals.Int("components"),
		Label:      vals.String("label"),
	}
	if req.Window < 0 {
		return nil, invalid("window", "must not be negative")
	}
	if req.Method == "pca" && req.Components < 1 {
		return nil, invalid("components", "must be at least 1")
	}

	source, err := r.source(in.Data)
	if err != nil {
		return nil, err
	}
	if req.Label != "" && !source.Table.HasColumn(req.Label) {
		return nil, invalid("label", "%s has no column %q", source.Name, req.Label)
	}
	req.Columns = source.Table.Columns
	req.Data = source.Table.Rows

	resp, err := r.env.Services.Extract(ctx, req)
	if err != nil {
		return nil, err
	}

	logging.Get(logging.CategorySteps).Info("extracted features",
		zap.String("source", source.Name), zap.String("method", req.Method),
		zap.Int("features", len(resp.FeatureNames)), zap.Int("samples", len(resp.Features)))
	return workflow.ExtractResult{
		Method:       req.Method,
		FeatureNames: resp.FeatureNames,
		Features:     resp.Features,
		Labels:       resp.Labels,
	}, nil
}

func (r *extractRunner) source(data workflow.Data) (dataset.Entry, error) {
	if pre, ok := data.Preprocess(); ok {
		return r.env.Files.Resolve(pre.Output)
	}
	_, entry, err := importedFile(data, r.env.Files, "")
	return entry, err
}
