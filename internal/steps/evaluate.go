package steps

import (
	"context"
	"sort"

	"breathplat/internal/analysis"
	"breathplat/internal/logging"
	"breathplat/internal/workflow"

	"go.uber.org/zap"
)

// =============================================================================
// EVALUATE
// =============================================================================

type evaluateRunner struct {
	env Env
}

func (r *evaluateRunner) Name() string { return "Evaluate" }

func (r *evaluateRunner) Fields() []Field {
	return []Field{
		{Name: "method", Label: "Method", Kind: FieldChoice, Default: "anova",
			Choices: []string{"anova", "mutual_info", "chi2"}},
		{Name: "top_k", Label: "Top k", Help: "features kept when none are listed", Kind: FieldInt, Default: "5"},
		{Name: "features", Label: "Features", Help: "comma-separated explicit selection", Kind: FieldList},
	}
}

// Run scores every extracted feature and picks the features classification
// will use: the explicit list when given, else the top k by score.
func (r *evaluateRunner) Run(ctx context.Context, in Input) (workflow.Result, error) {
	vals, err := resolve(r.Fields(), in.Values)
	if err != nil {
		return nil, err
	}
	ext, ok := in.Data.Extract()
	if !ok {
		return nil, &MissingInputError{Step: "Extract Features"}
	}
	if len(ext.Labels) == 0 {
		return nil, invalid("method", "scoring needs labelled samples; set a label column in Extract Features")
	}
	topK := vals.Int("top_k")
	if topK < 1 {
		return nil, invalid("top_k", "must be at least 1")
	}
	explicit := vals.List("features")
	known := make(map[string]bool, len(ext.FeatureNames))
	for _, n := range ext.FeatureNames {
		known[n] = true
	}
	for _, f := range explicit {
		if !known[f] {
			return nil, invalid("features", "unknown feature %q", f)
		}
	}

	method := vals.Choice("method")
	resp, err := r.env.Services.Evaluate(ctx, analysis.EvaluateRequest{
		FeatureNames: ext.FeatureNames,
		Features:     ext.Features,
		Labels:       ext.Labels,
		Method:       method,
	})
	if err != nil {
		return nil, err
	}

	selected := explicit
	if len(selected) == 0 {
		selected = topFeatures(resp.Scores, topK)
	}
	logging.Get(logging.CategorySteps).Info("evaluated features",
		zap.String("method", method), zap.Strings("selected", selected))
	return workflow.EvaluateResult{
		Method:           method,
		Scores:           resp.Scores,
		Metrics:          resp.Metrics,
		SelectedFeatures: selected,
	}, nil
}

// topFeatures returns the names of the k best-scoring features. Ties keep
// the service's order.
func topFeatures(scores []workflow.FeatureScore, k int) []string {
	sorted := append([]workflow.FeatureScore(nil), scores...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if k > len(sorted) {
		k = len(sorted)
	}
	out := make([]string, k)
	for i := range out {
		out[i] = sorted[i].Feature
	}
	return out
}
