package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"breathplat/internal/config"
	"breathplat/internal/workflow"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// servicesAt points every service at one test server.
func servicesAt(url string) config.ServicesConfig {
	svcs := config.ServicesConfig{}
	for _, name := range config.ServiceNames {
		svcs[name] = config.ServiceConfig{BaseURL: url, Timeout: "5s"}
	}
	return svcs
}

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(servicesAt(srv.URL))
}

func TestProfile_SendsMultipart(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /profile", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		assert.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, "breath.csv", hdr.Filename)
		assert.Equal(t, "a,b\n1,2\n", string(content))
		assert.Equal(t, "a,b", r.FormValue("columns"))
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><title>ok</title></html>")
	})
	c := newTestClient(t, mux)

	html, err := c.Profile(context.Background(), Upload{Name: "breath.csv", Content: []byte("a,b\n1,2\n")}, []string{"a", "b"})
	require.NoError(t, err)
	assert.Contains(t, html, "<title>ok</title>")
}

func TestPreprocess_DecodesTable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /preprocess", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		var opts workflow.PreprocessOptions
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("options")), &opts))
		assert.Equal(t, workflow.PreprocessOptions{Filter: "lowpass", Cutoff: 5, Order: 4, Normalize: "zscore", DropNA: true}, opts)
		io.WriteString(w, `{"columns":["a"],"data":[{"a":0.1}]}`)
	})
	c := newTestClient(t, mux)

	tbl, err := c.Preprocess(context.Background(), Upload{Name: "x.csv", Content: []byte("a\n1\n")},
		workflow.PreprocessOptions{Filter: "lowpass", Cutoff: 5, Order: 4, Normalize: "zscore", DropNA: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, tbl.Columns)
	assert.Equal(t, 1, tbl.Len())
}

func TestJSONEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /extract", func(w http.ResponseWriter, r *http.Request) {
		var req ExtractRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "statistical", req.Method)
		assert.Equal(t, "label", req.Label)
		io.WriteString(w, `{"feature_names":["mean","std"],"features":[[1,2],[3,4]],"labels":["a","b"]}`)
	})
	mux.HandleFunc("POST /evaluate", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"scores":[{"feature":"std","score":0.9},{"feature":"mean","score":0.2}],"metrics":{"f":1.5}}`)
	})
	mux.HandleFunc("POST /classify", func(w http.ResponseWriter, r *http.Request) {
		var req ClassifyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, map[string]string{"C": "1.0"}, req.Params)
		io.WriteString(w, `{"model_id":"m-1","classes":["a","b"],"metrics":{"accuracy":0.75},"confusion_matrix":[[1,0],[1,2]]}`)
	})
	mux.HandleFunc("POST /explain", func(w http.ResponseWriter, r *http.Request) {
		var req explainRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "accuracy 0.75", req.Summary)
		io.WriteString(w, `{"explanation":"The model is decent."}`)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	ext, err := c.Extract(ctx, ExtractRequest{Method: "statistical", Label: "label"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mean", "std"}, ext.FeatureNames)

	ev, err := c.Evaluate(ctx, EvaluateRequest{FeatureNames: ext.FeatureNames, Features: ext.Features, Method: "anova"})
	require.NoError(t, err)
	if diff := cmp.Diff([]workflow.FeatureScore{{Feature: "std", Score: 0.9}, {Feature: "mean", Score: 0.2}}, ev.Scores); diff != "" {
		t.Errorf("scores mismatch (-want +got):\n%s", diff)
	}

	cl, err := c.Classify(ctx, ClassifyRequest{Algorithm: "svm", Params: map[string]string{"C": "1.0"}})
	require.NoError(t, err)
	assert.Equal(t, "m-1", cl.ModelID)
	assert.Equal(t, [][]int{{1, 0}, {1, 2}}, cl.ConfusionMatrix)

	text, err := c.Explain(ctx, "accuracy 0.75")
	require.NoError(t, err)
	assert.Equal(t, "The model is decent.", text)
}

func TestPredict_SendsModelAndFeatures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predict", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "m-1", r.FormValue("model_id"))
		assert.Equal(t, "mean,std", r.FormValue("features"))
		io.WriteString(w, `{"predictions":["a","b"],"metrics":{"accuracy":1}}`)
	})
	c := newTestClient(t, mux)

	resp, err := c.Predict(context.Background(), Upload{Name: "t.csv", Content: []byte("x\n1\n")}, "m-1", []string{"mean", "std"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, resp.Predictions)
}

func TestServiceError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /classify", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 2000), http.StatusUnprocessableEntity)
	})
	c := newTestClient(t, mux)

	_, err := c.Classify(context.Background(), ClassifyRequest{Algorithm: "svm"})
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, config.ServiceClassify, svcErr.Service)
	assert.Equal(t, http.StatusUnprocessableEntity, svcErr.Status)
	assert.Len(t, svcErr.Body, maxErrorBody)
	assert.Contains(t, err.Error(), "status 422")
}

func TestServiceError_TruncatesOnRuneBoundary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /classify", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		// "é" is two bytes, so the byte limit lands mid-rune.
		io.WriteString(w, "x"+strings.Repeat("é", maxErrorBody))
	})
	c := newTestClient(t, mux)

	_, err := c.Classify(context.Background(), ClassifyRequest{})
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.True(t, utf8.ValidString(svcErr.Body))
	assert.Len(t, svcErr.Body, maxErrorBody-1)
	assert.True(t, strings.HasSuffix(svcErr.Body, "é"))
}

func TestTruncateBody(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"aé", 2, "a"},
		{"aéb", 3, "aé"},
		{"日本", 4, "日"},
		{"日本", 2, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(truncateBody([]byte(tt.in), tt.n)), tt.in)
	}
}

func TestClient_Errors(t *testing.T) {
	t.Run("unconfigured service", func(t *testing.T) {
		c := NewClient(config.ServicesConfig{})
		_, err := c.Evaluate(context.Background(), EvaluateRequest{})
		assert.ErrorContains(t, err, "not configured")
	})

	t.Run("malformed body", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /evaluate", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "not json")
		})
		_, err := newTestClient(t, mux).Evaluate(context.Background(), EvaluateRequest{})
		assert.ErrorContains(t, err, "failed to decode evaluate response")
	})

	t.Run("service timeout", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /evaluate", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()
		svcs := servicesAt(srv.URL)
		svcs[config.ServiceEvaluate] = config.ServiceConfig{BaseURL: srv.URL, Timeout: "50ms"}

		_, err := NewClient(svcs).Evaluate(context.Background(), EvaluateRequest{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("empty model id", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /classify", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"metrics":{}}`)
		})
		_, err := newTestClient(t, mux).Classify(context.Background(), ClassifyRequest{})
		assert.ErrorContains(t, err, "no model id")
	})
}

func TestHealth_SharedCheckSurvivesCanceledCaller(t *testing.T) {
	hit := make(chan struct{}, 1)
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		select {
		case hit <- struct{}{}:
		default:
		}
		<-release
		io.WriteString(w, `{"status":"ok"}`)
	})
	c := newTestClient(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan HealthStatus, 1)
	go func() { first <- c.Health(ctx, config.ServiceProfile) }()
	<-hit

	second := make(chan HealthStatus, 1)
	go func() { second <- c.Health(context.Background(), config.ServiceProfile) }()

	cancel()
	st := <-first
	assert.False(t, st.OK)
	assert.Equal(t, context.Canceled.Error(), st.Error)

	time.Sleep(20 * time.Millisecond)
	close(release)
	st = <-second
	assert.True(t, st.OK, st.Error)
	assert.Empty(t, st.Error)
}

func TestCheckAll(t *testing.T) {
	var hits atomic.Int32
	up := http.NewServeMux()
	up.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `{"status":"ok"}`)
	})
	upSrv := httptest.NewServer(up)
	defer upSrv.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	svcs := servicesAt(upSrv.URL)
	svcs[config.ServiceClassify] = config.ServiceConfig{BaseURL: down.URL, Timeout: "5s"}
	c := NewClient(svcs)

	results := c.CheckAll(context.Background(), config.ServiceNames)
	require.Len(t, results, len(config.ServiceNames))
	for i, r := range results {
		assert.Equal(t, config.ServiceNames[i], r.Service)
		if r.Service == config.ServiceClassify {
			assert.False(t, r.OK)
			assert.Contains(t, r.Error, "503")
			continue
		}
		assert.True(t, r.OK, r.Service)
		assert.Empty(t, r.Error)
	}
	assert.EqualValues(t, len(config.ServiceNames)-1, hits.Load())
}
