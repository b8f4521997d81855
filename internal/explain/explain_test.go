package explain

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"breathplat/internal/analysis"
	"breathplat/internal/config"
	"breathplat/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleResult = workflow.ClassifyResult{
	Algorithm:       "svm",
	ModelID:         "m-7",
	Features:        []string{"mean", "std"},
	Classes:         []string{"healthy", "sick"},
	Metrics:         map[string]float64{"f1": 0.8, "accuracy": 0.85},
	ConfusionMatrix: [][]int{{5, 1}, {2, 7}},
}

func TestSummarize(t *testing.T) {
	want := `Algorithm: svm
Features (2): mean, std
Classes: healthy, sick
Metrics:
  accuracy: 0.8500
  f1: 0.8000
Confusion matrix (rows = actual, columns = predicted):
  healthy: 5 1
  sick: 2 7`
	assert.Equal(t, want, Summarize(sampleResult))
	assert.Equal(t, "Algorithm: knn", Summarize(workflow.ClassifyResult{Algorithm: "knn"}))
}

type stubExplainer struct {
	text string
	err  error
	got  string
}

func (s *stubExplainer) Explain(_ context.Context, summary string) (string, error) {
	s.got = summary
	return s.text, s.err
}

func (s *stubExplainer) Name() string { return "stub" }

func TestAnnotate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		r := sampleResult
		r.ExplainError = "old"
		stub := &stubExplainer{text: "  Good separation.  "}
		Annotate(context.Background(), stub, &r)
		assert.Equal(t, "Good separation.", r.Explanation)
		assert.Empty(t, r.ExplainError)
		assert.Contains(t, stub.got, "Algorithm: svm")
	})

	t.Run("failure keeps classification", func(t *testing.T) {
		r := sampleResult
		Annotate(context.Background(), &stubExplainer{err: errors.New("service down")}, &r)
		assert.Empty(t, r.Explanation)
		assert.Equal(t, "service down", r.ExplainError)
		assert.Equal(t, "m-7", r.ModelID)
	})

	t.Run("no backend", func(t *testing.T) {
		r := sampleResult
		Annotate(context.Background(), nil, &r)
		assert.NotEmpty(t, r.ExplainError)
	})
}

func TestServiceExplainer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, strings.HasPrefix(body["summary"], "Algorithm: svm"))
		io.WriteString(w, `{"explanation":"ok"}`)
	}))
	defer srv.Close()

	client := analysis.NewClient(config.ServicesConfig{
		config.ServiceExplain: {BaseURL: srv.URL, Timeout: "5s"},
	})
	r := sampleResult
	Annotate(context.Background(), NewServiceExplainer(client), &r)
	assert.Equal(t, "ok", r.Explanation)
}

func TestGenAIExplainer(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"The SVM separates both classes well."}]}}]}`)
	}))
	defer srv.Close()

	g, err := NewGenAIExplainer(context.Background(), GenAIOptions{
		APIKey:  "test-key",
		Model:   "gemini-test",
		Timeout: 5 * time.Second,
		BaseURL: srv.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, "genai:gemini-test", g.Name())

	text, err := g.Explain(context.Background(), Summarize(sampleResult))
	require.NoError(t, err)
	assert.Equal(t, "The SVM separates both classes well.", text)
	assert.Contains(t, path, "gemini-test:generateContent")
}

func TestNew(t *testing.T) {
	cfg := config.DefaultConfig()
	e, err := New(context.Background(), cfg, analysis.NewClient(cfg.Services))
	require.NoError(t, err)
	assert.Equal(t, "service", e.Name())

	cfg.Explain.Backend = config.ExplainBackendGenAI
	cfg.Explain.APIKey = ""
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg.Explain.Backend = "oracle"
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)
}
