package workflow

import "maps"

// cloner is implemented by results that can copy themselves. Data copies
// results on the way in and on the way out so no caller shares memory with
// the controller's store.
type cloner interface {
	cloneResult() Result
}

func cloneResult(r Result) Result {
	if c, ok := r.(cloner); ok {
		return c.cloneResult()
	}
	return r
}

func (f FileRef) clone() FileRef {
	f.Columns = cloneSlice(f.Columns)
	return f
}

func (r ImportResult) cloneResult() Result {
	if r.Files != nil {
		files := make([]FileRef, len(r.Files))
		for i, f := range r.Files {
			files[i] = f.clone()
		}
		r.Files = files
	}
	return r
}

func (r VisualizeResult) cloneResult() Result {
	r.Dataset = r.Dataset.clone()
	r.Columns = cloneSlice(r.Columns)
	r.Sections = cloneSlice(r.Sections)
	r.Alerts = cloneSlice(r.Alerts)
	return r
}

func (r PreprocessResult) cloneResult() Result {
	r.Source = r.Source.clone()
	r.Output = r.Output.clone()
	return r
}

func (r ExtractResult) cloneResult() Result {
	r.FeatureNames = cloneSlice(r.FeatureNames)
	r.Features = cloneMatrix(r.Features)
	r.Labels = cloneSlice(r.Labels)
	return r
}

func (r EvaluateResult) cloneResult() Result {
	r.Scores = cloneSlice(r.Scores)
	r.Metrics = maps.Clone(r.Metrics)
	r.SelectedFeatures = cloneSlice(r.SelectedFeatures)
	return r
}

func (r ClassifyResult) cloneResult() Result {
	r.Features = cloneSlice(r.Features)
	r.Classes = cloneSlice(r.Classes)
	r.Metrics = maps.Clone(r.Metrics)
	r.ConfusionMatrix = cloneMatrix(r.ConfusionMatrix)
	return r
}

func (r TestResult) cloneResult() Result {
	r.File = r.File.clone()
	r.Predictions = cloneSlice(r.Predictions)
	r.Metrics = maps.Clone(r.Metrics)
	return r
}

func (c Custom) cloneResult() Result {
	if c == nil {
		return c
	}
	return Custom(cloneValue(map[string]any(c)).(map[string]any))
}

// cloneValue deep-copies the maps and slices of decoded JSON-like values.
func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return cloneSlice(x)
	case []float64:
		return cloneSlice(x)
	default:
		return v
	}
}

// cloneSlice copies s, keeping nil as nil.
func cloneSlice[S ~[]E, E any](s S) S {
	if s == nil {
		return nil
	}
	return append(S(make([]E, 0, len(s))), s...)
}

func cloneMatrix[E any](m [][]E) [][]E {
	if m == nil {
		return nil
	}
	out := make([][]E, len(m))
	for i, row := range m {
		out[i] = cloneSlice(row)
	}
	return out
}
