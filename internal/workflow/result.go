package workflow

// Result is the payload a step hands to the controller when the user
// confirms it. Each default step has its own concrete type; Kind names it.
type Result interface {
	Kind() string
}

// FileRef points at a file held in the dataset store. The blob itself never
// enters Data; Handle is resolved through the store.
type FileRef struct {
	Name    string   `json:"name"`
	Handle  string   `json:"handle,omitempty"`
	Format  string   `json:"format,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Rows    int      `json:"rows,omitempty"`
}

// ImportResult lists the files imported by the first step.
type ImportResult struct {
	Files []FileRef `json:"files"`
}

func (ImportResult) Kind() string { return "import" }

// File returns the imported file with the given name, or the first file when
// name is empty.
func (r ImportResult) File(name string) (FileRef, bool) {
	if len(r.Files) == 0 {
		return FileRef{}, false
	}
	if name == "" {
		return r.Files[0], true
	}
	for _, f := range r.Files {
		if f.Name == name {
			return f, true
		}
	}
	return FileRef{}, false
}

// Names returns the imported file names in order.
func (r ImportResult) Names() []string {
	names := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		names = append(names, f.Name)
	}
	return names
}

// VisualizeResult holds the profiling report produced for one dataset.
type VisualizeResult struct {
	Dataset     FileRef  `json:"dataset"`
	Columns     []string `json:"columns,omitempty"`
	ReportPath  string   `json:"report_path"`
	ReportTitle string   `json:"report_title,omitempty"`
	Sections    []string `json:"sections,omitempty"`
	Alerts      []string `json:"alerts,omitempty"`
}

func (VisualizeResult) Kind() string { return "visualize" }

// PreprocessOptions are the preprocessing parameters sent to the service.
type PreprocessOptions struct {
	Filter    string  `json:"filter"`
	Cutoff    float64 `json:"cutoff,omitempty"`
	Order     int     `json:"order,omitempty"`
	Normalize string  `json:"normalize"`
	DropNA    bool    `json:"dropna"`
}

// PreprocessResult references the cleaned dataset returned by the service.
type PreprocessResult struct {
	Source  FileRef           `json:"source"`
	Output  FileRef           `json:"output"`
	Options PreprocessOptions `json:"options"`
}

func (PreprocessResult) Kind() string { return "preprocess" }

// ExtractResult carries the feature matrix. Features[i] is the feature vector
// of sample i, aligned with FeatureNames; Labels is empty for unlabeled data.
type ExtractResult struct {
	Method       string      `json:"method"`
	FeatureNames []string    `json:"feature_names"`
	Features     [][]float64 `json:"features"`
	Labels       []string    `json:"labels,omitempty"`
}

func (ExtractResult) Kind() string { return "extract" }

// Select returns the feature matrix restricted to the named features, in the
// order given. Unknown names are dropped.
func (r ExtractResult) Select(names []string) ([]string, [][]float64) {
	if len(names) == 0 {
		return r.FeatureNames, r.Features
	}
	index := make(map[string]int, len(r.FeatureNames))
	for i, n := range r.FeatureNames {
		index[n] = i
	}
	var cols []int
	var kept []string
	for _, n := range names {
		if i, ok := index[n]; ok {
			cols = append(cols, i)
			kept = append(kept, n)
		}
	}
	out := make([][]float64, len(r.Features))
	for row, vec := range r.Features {
		sel := make([]float64, 0, len(cols))
		for _, c := range cols {
			if c < len(vec) {
				sel = append(sel, vec[c])
			}
		}
		out[row] = sel
	}
	return kept, out
}

// FeatureScore is one feature's relevance score from the evaluation service.
type FeatureScore struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"score"`
}

// EvaluateResult holds the scores and the features chosen for classification.
type EvaluateResult struct {
	Method           string             `json:"method"`
	Scores           []FeatureScore     `json:"scores"`
	Metrics          map[string]float64 `json:"metrics,omitempty"`
	SelectedFeatures []string           `json:"selectedFeatures"`
}

func (EvaluateResult) Kind() string { return "evaluate" }

// ClassifyResult holds a trained model reference, its metrics and the
// explanation text returned after classification.
type ClassifyResult struct {
	Algorithm       string             `json:"algorithm"`
	ModelID         string             `json:"model_id"`
	Features        []string           `json:"features"`
	Classes         []string           `json:"classes,omitempty"`
	Metrics         map[string]float64 `json:"metrics"`
	ConfusionMatrix [][]int            `json:"confusion_matrix,omitempty"`
	Explanation     string             `json:"explanation,omitempty"`
	ExplainError    string             `json:"explain_error,omitempty"`
}

func (ClassifyResult) Kind() string { return "classify" }

// TestResult holds predictions for a held-out file.
type TestResult struct {
	File        FileRef            `json:"file"`
	ModelID     string             `json:"model_id"`
	Predictions []string           `json:"predictions"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

func (TestResult) Kind() string { return "test" }

// Custom is a free-form result for steps beyond the default seven.
type Custom map[string]any

func (Custom) Kind() string { return "custom" }
