package steps

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// FieldKind tells the wizard which input to render and how to parse it.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldNumber
	FieldInt
	FieldChoice
	FieldBool
	FieldList // comma-separated
	FieldKV   // comma-separated key=value pairs
)

var fieldKindNames = [...]string{"text", "number", "int", "choice", "bool", "list", "kv"}

func (k FieldKind) String() string {
	if int(k) < len(fieldKindNames) && k >= 0 {
		return fieldKindNames[k]
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// Field is one form input of a step.
type Field struct {
	Name     string
	Label    string
	Help     string
	Kind     FieldKind
	Default  string
	Choices  []string
	Required bool
}

// Values are raw form values keyed by field name.
type Values map[string]string

// DefaultValues returns the defaults of fields.
func DefaultValues(fields []Field) Values {
	v := make(Values, len(fields))
	for _, f := range fields {
		v[f.Name] = f.Default
	}
	return v
}

// resolve fills missing values with defaults and checks that every value
// parses as its field's kind.
func resolve(fields []Field, in Values) (Values, error) {
	out := make(Values, len(fields))
	for _, f := range fields {
		raw, ok := in[f.Name]
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			raw = f.Default
		}
		if raw == "" {
			if f.Required {
				return nil, invalid(f.Name, "is required")
			}
			out[f.Name] = ""
			continue
		}
		if err := checkKind(f, raw); err != nil {
			return nil, err
		}
		out[f.Name] = raw
	}
	return out, nil
}

func checkKind(f Field, raw string) error {
	switch f.Kind {
	case FieldNumber:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return invalid(f.Name, "%q is not a number", raw)
		}
	case FieldInt:
		if _, err := strconv.Atoi(raw); err != nil {
			return invalid(f.Name, "%q is not a whole number", raw)
		}
	case FieldBool:
		if _, err := strconv.ParseBool(raw); err != nil {
			return invalid(f.Name, "%q is not true or false", raw)
		}
	case FieldChoice:
		if !slices.Contains(f.Choices, strings.ToLower(raw)) {
			return invalid(f.Name, "%q is not one of %s", raw, strings.Join(f.Choices, ", "))
		}
	case FieldKV:
		if _, err := parseKV(raw); err != nil {
			return invalid(f.Name, "%v", err)
		}
	}
	return nil
}

// String returns the trimmed value.
func (v Values) String(name string) string {
	return strings.TrimSpace(v[name])
}

// Choice returns the lower-cased value.
func (v Values) Choice(name string) string {
	return strings.ToLower(v.String(name))
}

// Float returns the value as a float, zero when empty.
func (v Values) Float(name string) float64 {
	f, _ := strconv.ParseFloat(v.String(name), 64)
	return f
}

// Int returns the value as an int, zero when empty.
func (v Values) Int(name string) int {
	i, _ := strconv.Atoi(v.String(name))
	return i
}

// Bool returns the value as a bool, false when empty.
func (v Values) Bool(name string) bool {
	b, _ := strconv.ParseBool(v.String(name))
	return b
}

// List splits a comma-separated value, dropping blanks.
func (v Values) List(name string) []string {
	return splitList(v[name])
}

// KV returns the key=value pairs of a FieldKV value.
func (v Values) KV(name string) map[string]string {
	m, _ := parseKV(v[name])
	return m
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseKV(s string) (map[string]string, error) {
	items := splitList(s)
	if len(items) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(items))
	for _, item := range items {
		k, val, ok := strings.Cut(item, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%q is not key=value", item)
		}
		m[k] = strings.TrimSpace(val)
	}
	return m, nil
}

// FormatKV renders pairs back into field syntax, sorted by key.
func FormatKV(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, ",")
}
