package workflow

import (
	"encoding/json"
)

// Data is the aggregate store of step results keyed by StepKey. Only the
// Controller writes to it; everything else sees copies.
type Data struct {
	entries map[StepKey]Result
	order   []StepKey
}

func newData() *Data {
	return &Data{entries: make(map[StepKey]Result)}
}

// set stores r under key. A step overwriting its own key keeps its original
// position in the key order.
func (d *Data) set(key StepKey, r Result) {
	if _, exists := d.entries[key]; !exists {
		d.order = append(d.order, key)
	}
	d.entries[key] = cloneResult(r)
}

// clone returns a deep copy restricted to keys accepted by keep (nil keeps
// all).
func (d *Data) clone(keep func(StepKey) bool) Data {
	out := Data{entries: make(map[StepKey]Result, len(d.entries))}
	for _, k := range d.order {
		if keep != nil && !keep(k) {
			continue
		}
		out.entries[k] = cloneResult(d.entries[k])
		out.order = append(out.order, k)
	}
	return out
}

// Get returns the result stored under key.
func (d Data) Get(key StepKey) (Result, bool) {
	r, ok := d.entries[key]
	return r, ok
}

// Has reports whether a result is stored under key.
func (d Data) Has(key StepKey) bool {
	_, ok := d.entries[key]
	return ok
}

// Keys returns the stored keys in first-insertion order.
func (d Data) Keys() []StepKey {
	return append([]StepKey(nil), d.order...)
}

// Len returns the number of stored results.
func (d Data) Len() int {
	return len(d.entries)
}

// MarshalJSON encodes the store as an object keyed by step key.
func (d Data) MarshalJSON() ([]byte, error) {
	m := make(map[StepKey]Result, len(d.entries))
	for k, v := range d.entries {
		m[k] = v
	}
	return json.Marshal(m)
}

// Import returns the data import result.
func (d Data) Import() (ImportResult, bool) { return lookup[ImportResult](d, KeyImport) }

// Visualize returns the profiling result.
func (d Data) Visualize() (VisualizeResult, bool) { return lookup[VisualizeResult](d, KeyVisualize) }

// Preprocess returns the preprocessing result.
func (d Data) Preprocess() (PreprocessResult, bool) {
	return lookup[PreprocessResult](d, KeyPreprocess)
}

// Extract returns the feature extraction result.
func (d Data) Extract() (ExtractResult, bool) { return lookup[ExtractResult](d, KeyExtract) }

// Evaluate returns the feature evaluation result.
func (d Data) Evaluate() (EvaluateResult, bool) { return lookup[EvaluateResult](d, KeyEvaluate) }

// Classify returns the classification result.
func (d Data) Classify() (ClassifyResult, bool) { return lookup[ClassifyResult](d, KeyClassify) }

// Test returns the model test result.
func (d Data) Test() (TestResult, bool) { return lookup[TestResult](d, KeyTest) }

func lookup[T Result](d Data, key StepKey) (T, bool) {
	var zero T
	r, ok := d.entries[key]
	if !ok {
		return zero, false
	}
	v, ok := r.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
