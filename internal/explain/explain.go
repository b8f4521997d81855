// Package explain turns classification results into a plain-language
// explanation. Two backends exist: the BreathPlat explanation service and
// Google Gemini through the genai SDK.
package explain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"breathplat/internal/analysis"
	"breathplat/internal/config"
	"breathplat/internal/logging"
	"breathplat/internal/workflow"

	"go.uber.org/zap"
)

// Explainer produces an explanation for a classification summary.
type Explainer interface {
	Explain(ctx context.Context, summary string) (string, error)
	Name() string
}

// New returns the backend selected by cfg.Explain.Backend.
func New(ctx context.Context, cfg *config.Config, client *analysis.Client) (Explainer, error) {
	switch cfg.Explain.Backend {
	case config.ExplainBackendService, "":
		return NewServiceExplainer(client), nil
	case config.ExplainBackendGenAI:
		return NewGenAIExplainer(ctx, GenAIOptions{
			APIKey:  cfg.Explain.APIKey,
			Model:   cfg.Explain.Model,
			Timeout: cfg.GetExplainTimeout(),
		})
	default:
		return nil, fmt.Errorf("unknown explain backend %q", cfg.Explain.Backend)
	}
}

// =============================================================================
// SERVICE BACKEND
// =============================================================================

// ServiceExplainer calls POST /explain on the explanation service.
type ServiceExplainer struct {
	client *analysis.Client
}

// NewServiceExplainer creates the HTTP service backend.
func NewServiceExplainer(client *analysis.Client) *ServiceExplainer {
	return &ServiceExplainer{client: client}
}

func (s *ServiceExplainer) Explain(ctx context.Context, summary string) (string, error) {
	return s.client.Explain(ctx, summary)
}

func (s *ServiceExplainer) Name() string { return config.ExplainBackendService }

// =============================================================================
// SUMMARY
// =============================================================================

// Summarize renders a classification result as the plain-text summary sent
// to the explanation backend.
func Summarize(r workflow.ClassifyResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Algorithm: %s\n", r.Algorithm)
	if len(r.Features) > 0 {
		fmt.Fprintf(&sb, "Features (%d): %s\n", len(r.Features), strings.Join(r.Features, ", "))
	}
	if len(r.Classes) > 0 {
		fmt.Fprintf(&sb, "Classes: %s\n", strings.Join(r.Classes, ", "))
	}
	if len(r.Metrics) > 0 {
		names := make([]string, 0, len(r.Metrics))
		for k := range r.Metrics {
			names = append(names, k)
		}
		sort.Strings(names)
		sb.WriteString("Metrics:\n")
		for _, k := range names {
			fmt.Fprintf(&sb, "  %s: %.4f\n", k, r.Metrics[k])
		}
	}
	if len(r.ConfusionMatrix) > 0 {
		sb.WriteString("Confusion matrix (rows = actual, columns = predicted):\n")
		for i, row := range r.ConfusionMatrix {
			label := fmt.Sprintf("%d", i)
			if i < len(r.Classes) {
				label = r.Classes[i]
			}
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = fmt.Sprintf("%d", v)
			}
			fmt.Fprintf(&sb, "  %s: %s\n", label, strings.Join(cells, " "))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Annotate explains r and stores the outcome on it. A failure is recorded in
// ExplainError; the classification itself stays valid.
func Annotate(ctx context.Context, e Explainer, r *workflow.ClassifyResult) {
	if e == nil {
		r.ExplainError = "no explanation backend configured"
		return
	}
	log := logging.Get(logging.CategoryExplain).With(zap.String("backend", e.Name()), zap.String("model_id", r.ModelID))

	start := time.Now()
	text, err := e.Explain(ctx, Summarize(*r))
	if err != nil {
		log.Warn("explanation failed", zap.Error(err))
		r.Explanation = ""
		r.ExplainError = err.Error()
		return
	}
	log.Info("explanation received", zap.Int("chars", len(text)), zap.Duration("took", time.Since(start)))
	r.Explanation = strings.TrimSpace(text)
	r.ExplainError = ""
}
