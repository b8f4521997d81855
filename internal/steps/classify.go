package steps

import (
	"context"

	"breathplat/internal/analysis"
	"breathplat/internal/explain"
	"breathplat/internal/logging"
	"breathplat/internal/workflow"

	"go.uber.org/zap"
)

// =============================================================================
// CLASSIFY
// =============================================================================

type classifyRunner struct {
	env Env
}

func (r *classifyRunner) Name() string { return "Classify" }

func (r *classifyRunner) Fields() []Field {
	return []Field{
		{Name: "algorithm", Label: "Algorithm", Kind: FieldChoice, Default: "random_forest",
			Choices: []string{"svm", "random_forest", "knn", "kmeans", "logistic"}},
		{Name: "test_size", Label: "Test split", Help: "fraction of samples held out", Kind: FieldNumber, Default: "0.2"},
		{Name: "params", Label: "Parameters", Help: "key=value pairs, e.g. n_estimators=100,max_depth=5", Kind: FieldKV},
	}
}

// Run trains a model on the selected features and then asks the explanation
// backend to describe it. A failed explanation is kept on the result.
func (r *classifyRunner) Run(ctx context.Context, in Input) (workflow.Result, error) {
	vals, err := resolve(r.Fields(), in.Values)
	if err != nil {
		return nil, err
	}
	ext, ok := in.Data.Extract()
	if !ok {
		return nil, &MissingInputError{Step: "Extract Features"}
	}
	algorithm := vals.Choice("algorithm")
	testSize := vals.Float("test_size")
	if testSize <= 0 || testSize >= 1 {
		return nil, invalid("test_size", "must be between 0 and 1")
	}
	if algorithm != "kmeans" && len(ext.Labels) == 0 {
		return nil, invalid("algorithm", "%s needs labelled samples; use kmeans or set a label column", algorithm)
	}

	var selected []string
	if ev, ok := in.Data.Evaluate(); ok {
		selected = ev.SelectedFeatures
	}
	names, matrix := ext.Select(selected)
	if len(names) == 0 {
		return nil, invalid("algorithm", "no features to train on")
	}

	resp, err := r.env.Services.Classify(ctx, analysis.ClassifyRequest{
		FeatureNames: names,
		Features:     matrix,
		Labels:       ext.Labels,
		Algorithm:    algorithm,
		TestSize:     testSize,
		Params:       vals.KV("params"),
	})
	if err != nil {
		return nil, err
	}

	result := workflow.ClassifyResult{
		Algorithm:       algorithm,
		ModelID:         resp.ModelID,
		Features:        names,
		Classes:         resp.Classes,
		Metrics:         resp.Metrics,
		ConfusionMatrix: resp.ConfusionMatrix,
	}
	explain.Annotate(ctx, r.env.Explainer, &result)

	logging.Get(logging.CategorySteps).Info("trained model",
		zap.String("algorithm", algorithm), zap.String("model_id", resp.ModelID),
		zap.Bool("explained", result.Explanation != ""))
	return result, nil
}
