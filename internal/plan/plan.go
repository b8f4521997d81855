// Package plan runs the wizard without a terminal. A plan is a YAML file
// naming the form values of each step and the steps to skip; Execute drives
// a workflow.Controller through the steps exactly as the wizard would.
package plan

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"breathplat/internal/steps"
	"breathplat/internal/workflow"

	"gopkg.in/yaml.v3"
)

// Plan is a headless run description.
//
//	name: nightly
//	steps:
//	  data_import:
//	    files: [breath.csv, control.csv]
//	  classify:
//	    algorithm: svm
//	    params: {C: 1.0}
//	skip: [visualize]
type Plan struct {
	Name  string                                `yaml:"name"`
	Steps map[workflow.StepKey]map[string]Value `yaml:"steps"`
	Skip  []workflow.StepKey                    `yaml:"skip"`
}

// Value is a form value written as a YAML scalar, list or mapping. Lists
// become comma-separated text and mappings become key=value pairs, the
// syntax the wizard's form fields accept.
type Value string

// UnmarshalYAML flattens a node into field syntax.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = Value(node.Value)
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: list items must be scalars", n.Line)
			}
			items = append(items, n.Value)
		}
		*v = Value(strings.Join(items, ","))
	case yaml.MappingNode:
		m := make(map[string]string, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			k, val := node.Content[i], node.Content[i+1]
			if val.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: mapping values must be scalars", val.Line)
			}
			m[k.Value] = val.Value
		}
		*v = Value(steps.FormatKV(m))
	default:
		return fmt.Errorf("line %d: unsupported value", node.Line)
	}
	return nil
}

// Load reads a plan file.
func Load(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a plan.
func Parse(raw []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	return &p, nil
}

// Values returns the form values for one step.
func (p *Plan) Values(key workflow.StepKey) steps.Values {
	out := steps.Values{}
	for k, v := range p.Steps[key] {
		out[k] = string(v)
	}
	return out
}

// Skips reports whether the plan skips a step.
func (p *Plan) Skips(key workflow.StepKey) bool {
	for _, k := range p.Skip {
		if workflow.Normalize(string(k)) == key {
			return true
		}
	}
	return false
}

// Validate checks the plan against the runners: every step key and field
// name must exist, and a step cannot be both configured and skipped.
func (p *Plan) Validate(runners []steps.Runner) error {
	for _, key := range sortedKeys(p.Steps) {
		r, ok := steps.Find(runners, key)
		if !ok {
			return fmt.Errorf("plan configures unknown step %q (known: %s)", key, knownKeys(runners))
		}
		if p.Skips(key) {
			return fmt.Errorf("plan both configures and skips step %q", key)
		}
		fields := make(map[string]bool)
		for _, f := range r.Fields() {
			fields[f.Name] = true
		}
		for name := range p.Steps[key] {
			if !fields[name] {
				return fmt.Errorf("step %q has no field %q", key, name)
			}
		}
	}
	for _, key := range p.Skip {
		if _, ok := steps.Find(runners, workflow.Normalize(string(key))); !ok {
			return fmt.Errorf("plan skips unknown step %q (known: %s)", key, knownKeys(runners))
		}
	}
	return nil
}

func sortedKeys(m map[workflow.StepKey]map[string]Value) []workflow.StepKey {
	keys := make([]workflow.StepKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func knownKeys(runners []steps.Runner) string {
	names := make([]string, len(runners))
	for i, r := range runners {
		names[i] = strconv.Quote(string(workflow.Normalize(r.Name())))
	}
	return strings.Join(names, ", ")
}
