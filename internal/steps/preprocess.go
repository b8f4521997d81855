package steps

import (
	"context"

	"breathplat/internal/analysis"
	"breathplat/internal/logging"
	"breathplat/internal/workflow"

	"go.uber.org/zap"
)

// =============================================================================
// PREPROCESS
// =============================================================================

type preprocessRunner struct {
	env Env
}

func (r *preprocessRunner) Name() string { return "Preprocess" }

func (r *preprocessRunner) Fields() []Field {
	return []Field{
		{Name: "dataset", Label: "Dataset", Help: "imported file to clean (empty for the first)", Kind: FieldText},
		{Name: "filter", Label: "Filter", Kind: FieldChoice, Default: "lowpass",
			Choices: []string{"none", "lowpass", "highpass", "bandpass"}},
		{Name: "cutoff", Label: "Cutoff (Hz)", Kind: FieldNumber, Default: "5"},
		{Name: "order", Label: "Filter order", Kind: FieldInt, Default: "4"},
		{Name: "normalize", Label: "Normalize", Kind: FieldChoice, Default: "zscore",
			Choices: []string{"none", "zscore", "minmax"}},
		{Name: "dropna", Label: "Drop missing rows", Kind: FieldBool, Default: "true"},
	}
}

// Run sends the dataset through the preprocessing service and registers
// the cleaned table as a derived dataset.
func (r *preprocessRunner) Run(ctx context.Context, in Input) (workflow.Result, error) {
	vals, err := resolve(r.Fields(), in.Values)
	if err != nil {
		return nil, err
	}
	opts := workflow.PreprocessOptions{
		Filter:    vals.Choice("filter"),
		Normalize: vals.Choice("normalize"),
		DropNA:    vals.Bool("dropna"),
	}
	if opts.Filter != "none" {
		opts.Cutoff = vals.Float("cutoff")
		opts.Order = vals.Int("order")
		if opts.Cutoff <= 0 {
			return nil, invalid("cutoff", "must be positive")
		}
		if opts.Order < 1 || opts.Order > 10 {
			return nil, invalid("order", "must be between 1 and 10")
		}
	}

	ref, entry, err := importedFile(in.Data, r.env.Files, vals.String("dataset"))
	if err != nil {
		return nil, err
	}
	table, err := r.env.Services.Preprocess(ctx, analysis.Upload{Name: entry.Name, Content: entry.Raw}, opts)
	if err != nil {
		return nil, err
	}
	out, err := r.env.Files.RegisterTable(stem(ref.Name)+"_preprocessed.json", table, entry.Handle)
	if err != nil {
		return nil, err
	}

	logging.Get(logging.CategorySteps).Info("preprocessed dataset",
		zap.String("dataset", ref.Name), zap.Int("rows_in", ref.Rows), zap.Int("rows_out", table.Len()))
	return workflow.PreprocessResult{Source: ref, Output: out.Ref(), Options: opts}, nil
}
