package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"breathplat/internal/config"
	"breathplat/internal/dataset"
	"breathplat/internal/workflow"
)

// =============================================================================
// PROFILE
// =============================================================================

// Upload is a file sent as multipart content.
type Upload struct {
	Name    string
	Content []byte
}

// Profile uploads a dataset to the profiling service and returns the HTML
// report. An empty column list profiles every column.
func (c *Client) Profile(ctx context.Context, file Upload, columns []string) (string, error) {
	parts := []part{{Name: "file", FileName: file.Name, Content: file.Content}}
	if len(columns) > 0 {
		parts = append(parts, part{Name: "columns", Content: []byte(strings.Join(columns, ","))})
	}
	raw, err := c.postMultipart(ctx, config.ServiceProfile, "/profile", parts)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// =============================================================================
// PREPROCESS
// =============================================================================

// Preprocess uploads a dataset with filter and normalization options and
// returns the cleaned table.
func (c *Client) Preprocess(ctx context.Context, file Upload, opts workflow.PreprocessOptions) (*dataset.Table, error) {
	options, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preprocess options: %w", err)
	}
	raw, err := c.postMultipart(ctx, config.ServicePreprocess, "/preprocess", []part{
		{Name: "file", FileName: file.Name, Content: file.Content},
		{Name: "options", Content: options},
	})
	if err != nil {
		return nil, err
	}
	var t dataset.Table
	if err := decode(config.ServicePreprocess, raw, &t); err != nil {
		return nil, err
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("preprocess service returned a table without columns")
	}
	return &t, nil
}

// =============================================================================
// EXTRACT
// =============================================================================

// ExtractRequest asks for features computed from a table.
type ExtractRequest struct {
	Columns    []string         `json:"columns"`
	Data       []map[string]any `json:"data"`
	Method     string           `json:"method"`
	Window     int              `json:"window,omitempty"`
	Components int              `json:"components,omitempty"`
	Label      string           `json:"label,omitempty"`
}

// ExtractResponse is the feature matrix.
type ExtractResponse struct {
	FeatureNames []string    `json:"feature_names"`
	Features     [][]float64 `json:"features"`
	Labels       []string    `json:"labels"`
}

// Extract computes features.
func (c *Client) Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	var resp ExtractResponse
	if err := c.postJSON(ctx, config.ServiceExtract, "/extract", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.FeatureNames) == 0 {
		return nil, fmt.Errorf("extract service returned no features")
	}
	return &resp, nil
}

// =============================================================================
// EVALUATE
// =============================================================================

// EvaluateRequest asks for per-feature relevance scores.
type EvaluateRequest struct {
	FeatureNames []string    `json:"feature_names"`
	Features     [][]float64 `json:"features"`
	Labels       []string    `json:"labels,omitempty"`
	Method       string      `json:"method"`
}

// EvaluateResponse holds feature scores and overall metrics.
type EvaluateResponse struct {
	Scores  []workflow.FeatureScore `json:"scores"`
	Metrics map[string]float64      `json:"metrics"`
}

// Evaluate scores features.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (*EvaluateResponse, error) {
	var resp EvaluateResponse
	if err := c.postJSON(ctx, config.ServiceEvaluate, "/evaluate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// CLASSIFY
// =============================================================================

// ClassifyRequest trains a model on a feature matrix.
type ClassifyRequest struct {
	FeatureNames []string          `json:"feature_names"`
	Features     [][]float64       `json:"features"`
	Labels       []string          `json:"labels,omitempty"`
	Algorithm    string            `json:"algorithm"`
	TestSize     float64           `json:"test_size"`
	Params       map[string]string `json:"params,omitempty"`
}

// ClassifyResponse references the trained model and its scores.
type ClassifyResponse struct {
	ModelID         string             `json:"model_id"`
	Classes         []string           `json:"classes"`
	Metrics         map[string]float64 `json:"metrics"`
	ConfusionMatrix [][]int            `json:"confusion_matrix"`
}

// Classify trains a model.
func (c *Client) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	var resp ClassifyResponse
	if err := c.postJSON(ctx, config.ServiceClassify, "/classify", req, &resp); err != nil {
		return nil, err
	}
	if resp.ModelID == "" {
		return nil, fmt.Errorf("classify service returned no model id")
	}
	return &resp, nil
}

// =============================================================================
// PREDICT
// =============================================================================

// PredictResponse holds predictions for a test file.
type PredictResponse struct {
	Predictions []string           `json:"predictions"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Predict runs a trained model on an uploaded file.
func (c *Client) Predict(ctx context.Context, file Upload, modelID string, features []string) (*PredictResponse, error) {
	raw, err := c.postMultipart(ctx, config.ServiceTest, "/predict", []part{
		{Name: "file", FileName: file.Name, Content: file.Content},
		{Name: "model_id", Content: []byte(modelID)},
		{Name: "features", Content: []byte(strings.Join(features, ","))},
	})
	if err != nil {
		return nil, err
	}
	var resp PredictResponse
	if err := decode(config.ServiceTest, raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// EXPLAIN
// =============================================================================

type explainRequest struct {
	Summary string `json:"summary"`
}

type explainResponse struct {
	Explanation string `json:"explanation"`
}

// Explain asks the explanation service to describe a classification summary.
func (c *Client) Explain(ctx context.Context, summary string) (string, error) {
	var resp explainResponse
	if err := c.postJSON(ctx, config.ServiceExplain, "/explain", explainRequest{Summary: summary}, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Explanation) == "" {
		return "", fmt.Errorf("explain service returned an empty explanation")
	}
	return resp.Explanation, nil
}
