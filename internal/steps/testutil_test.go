package steps

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"breathplat/internal/analysis"
	"breathplat/internal/config"
	"breathplat/internal/dataset"
	"breathplat/internal/explain"
	"breathplat/internal/workflow"

	"github.com/stretchr/testify/require"
)

const breathCSV = `sensor_1,sensor_2,label
0.51,1.20,healthy
0.48,1.31,healthy
0.92,2.05,sick
0.88,1.97,sick
`

const profileHTML = `<html><head><title>breath.csv profile</title></head><body>
<h1>Overview</h1><div class="alert">sensor_2 is highly correlated with sensor_1</div>
</body></html>`

// fakeServices is an in-process stand-in for every analysis service.
type fakeServices struct {
	mu           sync.Mutex
	calls        map[string]int
	failExplain  bool
	failPath     string
	lastExtract  analysis.ExtractRequest
	lastClassify analysis.ClassifyRequest
	lastPredict  map[string]string
}

func (f *fakeServices) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeServices) handler() http.Handler {
	mux := http.NewServeMux()
	record := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.calls[r.URL.Path]++
			fail := f.failPath == r.URL.Path
			f.mu.Unlock()
			if fail {
				http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("POST /profile", record(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, profileHTML)
	}))
	mux.HandleFunc("POST /preprocess", record(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"columns":["sensor_1","sensor_2","label"],"data":[
			{"sensor_1":-1,"sensor_2":-1,"label":"healthy"},
			{"sensor_1":-0.9,"sensor_2":-0.8,"label":"healthy"},
			{"sensor_1":1,"sensor_2":0.9,"label":"sick"}]}`)
	}))
	mux.HandleFunc("POST /extract", record(func(w http.ResponseWriter, r *http.Request) {
		var req analysis.ExtractRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.lastExtract = req
		f.mu.Unlock()
		resp := analysis.ExtractResponse{
			FeatureNames: []string{"mean", "std", "slope"},
			Features:     [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
		}
		if req.Label != "" {
			resp.Labels = []string{"healthy", "healthy", "sick"}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	mux.HandleFunc("POST /evaluate", record(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"scores":[{"feature":"mean","score":0.2},{"feature":"std","score":0.9},{"feature":"slope","score":0.5}],"metrics":{"p_value":0.01}}`)
	}))
	mux.HandleFunc("POST /classify", record(func(w http.ResponseWriter, r *http.Request) {
		var req analysis.ClassifyRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.lastClassify = req
		f.mu.Unlock()
		io.WriteString(w, `{"model_id":"model-42","classes":["healthy","sick"],"metrics":{"accuracy":0.9},"confusion_matrix":[[2,0],[1,1]]}`)
	}))
	mux.HandleFunc("POST /explain", record(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		fail := f.failExplain
		f.mu.Unlock()
		if fail {
			http.Error(w, "explainer offline", http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"explanation":"Accuracy is high."}`)
	}))
	mux.HandleFunc("POST /predict", record(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		f.mu.Lock()
		f.lastPredict = map[string]string{"model_id": r.FormValue("model_id"), "features": r.FormValue("features")}
		f.mu.Unlock()
		io.WriteString(w, `{"predictions":["sick","healthy","sick"],"metrics":{"accuracy":0.67}}`)
	}))
	return mux
}

// testEnv wires the default runners to a fake service and a temp data dir.
type testEnv struct {
	Env
	fake    *fakeServices
	dataDir string
	runners []Runner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fake := &fakeServices{calls: map[string]int{}}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "breath.csv"), []byte(breathCSV), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "holdout.csv"), []byte(breathCSV), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.json"), []byte(`[{"sensor_1":1,"label":"x"}]`), 0644))

	cfg := config.DefaultConfig()
	cfg.Data.Dir = dir
	cfg.Data.OutputDir = "reports"
	for name := range cfg.Services {
		cfg.Services[name] = config.ServiceConfig{BaseURL: srv.URL, Timeout: "5s"}
	}
	client := analysis.NewClient(cfg.Services)
	env := Env{
		Files:     dataset.NewStore(),
		Services:  client,
		Explainer: explain.NewServiceExplainer(client),
		Config:    cfg,
	}
	return &testEnv{Env: env, fake: fake, dataDir: dir, runners: Default(env)}
}

// controller returns a controller over the default steps.
func (e *testEnv) controller(t *testing.T) *workflow.Controller {
	t.Helper()
	ctl, err := workflow.NewController(StepsFor(e.runners))
	require.NoError(t, err)
	return ctl
}

// runAndComplete runs step i with values and completes it on success.
func (e *testEnv) runAndComplete(t *testing.T, ctl *workflow.Controller, i int, values Values) workflow.Result {
	t.Helper()
	res, err := e.runners[i].Run(context.Background(), Input{Data: ctl.Inputs(i), Values: values})
	require.NoError(t, err, e.runners[i].Name())
	ctl.CompleteStep(i, res)
	return res
}
