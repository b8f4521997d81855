package wizard

import (
	"strings"

	"breathplat/cmd/breathplat/ui"
	"breathplat/internal/steps"
	"breathplat/internal/workflow"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// stepForm is the UI state of one step. It survives navigation so values
// and an unconfirmed result are still there when the user comes back.
type stepForm struct {
	fields    []steps.Field
	inputs    []textinput.Model
	focus     int
	loading   bool
	gen       int // incremented per run; results of older runs are dropped
	result    workflow.Result
	fieldErrs map[string]string
	alert     string
}

func newStepForm(r steps.Runner, styles ui.Styles) *stepForm {
	fields := r.Fields()
	f := &stepForm{
		fields:    fields,
		inputs:    make([]textinput.Model, len(fields)),
		fieldErrs: map[string]string{},
	}
	for i, field := range fields {
		ti := textinput.New()
		ti.Prompt = "› "
		ti.PromptStyle = styles.Muted
		ti.Placeholder = field.Help
		if field.Kind == steps.FieldChoice {
			ti.Placeholder = strings.Join(field.Choices, " | ")
		}
		ti.SetValue(field.Default)
		ti.CharLimit = 1024
		ti.Width = 50
		f.inputs[i] = ti
	}
	f.setFocus(0)
	return f
}

// values returns the current form values.
func (f *stepForm) values() steps.Values {
	v := make(steps.Values, len(f.fields))
	for i, field := range f.fields {
		v[field.Name] = f.inputs[i].Value()
	}
	return v
}

// setValue sets a field by name. Unknown names are ignored.
func (f *stepForm) setValue(name, value string) {
	for i, field := range f.fields {
		if field.Name == name {
			f.inputs[i].SetValue(value)
			return
		}
	}
}

func (f *stepForm) setFocus(i int) {
	if len(f.inputs) == 0 {
		return
	}
	i = (i%len(f.inputs) + len(f.inputs)) % len(f.inputs)
	for j := range f.inputs {
		if j == i {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	f.focus = i
}

// startRun marks the form as running and returns the run generation.
func (f *stepForm) startRun() int {
	f.gen++
	f.loading = true
	f.alert = ""
	f.fieldErrs = map[string]string{}
	return f.gen
}

func (f *stepForm) updateFocused(msg tea.Msg) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	// editing clears the field's error
	if _, ok := msg.(tea.KeyMsg); ok {
		delete(f.fieldErrs, f.fields[f.focus].Name)
	}
	return cmd
}
