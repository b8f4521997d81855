package wizard

import (
	"fmt"
	"strings"

	"breathplat/cmd/breathplat/ui"
	"breathplat/internal/workflow"
)

// previewRows is how many rows of an imported file the import step shows.
const previewRows = 5

// View renders the wizard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	cur := m.ctl.Current()
	form := m.forms[cur]
	step := m.ctl.CurrentStep()

	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render("BreathPlat"))
	if line := m.healthLine(); line != "" {
		sb.WriteString("  " + line)
	}
	sb.WriteString("\n")
	sb.WriteString(ui.Stepper(m.ctl, m.styles, m.width))
	sb.WriteString("\n\n")

	title := fmt.Sprintf("Step %d of %d: %s", cur+1, m.ctl.Len(), step.Name)
	if m.ctl.IsCompleted(cur) {
		title += m.styles.Success.Render("  ✓ completed")
	}
	sb.WriteString(m.styles.Title.Render(title))
	sb.WriteString("\n\n")

	sb.WriteString(m.formView(form))

	if step.Key() == workflow.KeyImport && len(m.dataFiles) > 0 {
		sb.WriteString(m.styles.Hint.Render("In data directory: " + strings.Join(m.dataFiles, ", ")))
		sb.WriteString("\n")
	}

	if form.alert != "" {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Alert.Render("Error: " + form.alert + "  (ctrl+e to dismiss)"))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	switch {
	case form.loading:
		sb.WriteString(m.spinner.View() + " Running " + step.Name + "...")
		sb.WriteString("\n")
	case form.result != nil && !m.ctl.IsCompleted(cur):
		sb.WriteString(m.styles.Info.Render("Result ready. Press ctrl+o to continue or run again."))
		sb.WriteString("\n")
	}

	if preview := m.previewView(form); preview != "" {
		sb.WriteString(preview)
		sb.WriteString("\n")
	}
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.styles.Divider.Render(strings.Repeat("─", max(m.viewport.Width, 20))))
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m Model) formView(form *stepForm) string {
	var sb strings.Builder
	for i, field := range form.fields {
		label := field.Label
		if field.Required {
			label += " *"
		}
		if i == form.focus {
			sb.WriteString(m.styles.FocusedLabel.Render(label))
		} else {
			sb.WriteString(m.styles.Label.Render(label))
		}
		sb.WriteString("\n")
		sb.WriteString(form.inputs[i].View())
		sb.WriteString("\n")
		if msg, ok := form.fieldErrs[field.Name]; ok {
			sb.WriteString(m.styles.FieldError.Render(msg))
			sb.WriteString("\n")
		} else if field.Help != "" && i == form.focus {
			sb.WriteString(m.styles.Hint.Render(field.Help))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// previewView shows the head of the first imported file on the import step.
func (m Model) previewView(form *stepForm) string {
	if m.files == nil {
		return ""
	}
	res, ok := form.result.(workflow.ImportResult)
	if !ok {
		imp, done := m.ctl.Data().Import()
		if !done || m.ctl.CurrentStep().Key() != workflow.KeyImport {
			return ""
		}
		res = imp
	}
	ref, ok := res.File("")
	if !ok {
		return ""
	}
	entry, err := m.files.Resolve(ref)
	if err != nil || entry.Table == nil {
		return ""
	}
	return ui.Preview(fmt.Sprintf("%s (%d rows)", entry.Name, entry.Table.Len()), entry.Table, previewRows).View(m.styles)
}

// healthLine summarizes the last service health check, e.g. "services 6/7 up".
func (m Model) healthLine() string {
	if len(m.health) == 0 {
		return ""
	}
	up := 0
	var down []string
	for _, h := range m.health {
		if h.OK {
			up++
		} else {
			down = append(down, h.Service)
		}
	}
	line := fmt.Sprintf("services %d/%d up", up, len(m.health))
	if len(down) == 0 {
		return m.styles.Success.Render(line)
	}
	return m.styles.Warning.Render(line + " (down: " + strings.Join(down, ", ") + ")")
}
