package ui

import (
	"fmt"
	"strings"

	"breathplat/internal/workflow"

	"github.com/charmbracelet/lipgloss"
)

// StepState is how a step appears in the header.
type StepState int

const (
	StepLocked StepState = iota
	StepOpen
	StepCurrent
	StepDone
)

// StateOf derives a step's header state from the controller.
func StateOf(ctl *workflow.Controller, i int) StepState {
	switch {
	case i == ctl.Current():
		return StepCurrent
	case ctl.IsCompleted(i):
		return StepDone
	case ctl.CanGoTo(i):
		return StepOpen
	default:
		return StepLocked
	}
}

// Stepper renders the numbered step header, e.g.
//
//	✓ 1 Data Import › 2 Visualize › 3 Preprocess …
func Stepper(ctl *workflow.Controller, styles Styles, width int) string {
	parts := make([]string, ctl.Len())
	for i, step := range ctl.Steps() {
		label := fmt.Sprintf("%d %s", i+1, step.Name)
		switch StateOf(ctl, i) {
		case StepCurrent:
			if ctl.IsCompleted(i) {
				label = "✓ " + label
			}
			parts[i] = styles.StepCurrent.Render(label)
		case StepDone:
			parts[i] = styles.StepDone.Render("✓ " + label)
		case StepOpen:
			parts[i] = styles.StepOpen.Render(label)
		default:
			parts[i] = styles.StepLocked.Render(label)
		}
	}
	sep := styles.Muted.Render(" › ")
	line := strings.Join(parts, sep)
	if width <= 0 || lipgloss.Width(line) <= width {
		return line
	}
	// narrow terminals get the compact form
	return compactStepper(ctl, styles)
}

func compactStepper(ctl *workflow.Controller, styles Styles) string {
	var sb strings.Builder
	for i := range ctl.Steps() {
		var mark string
		switch StateOf(ctl, i) {
		case StepCurrent:
			mark = styles.StepCurrent.Render(fmt.Sprintf("%d", i+1))
		case StepDone:
			mark = styles.StepDone.Render("✓")
		case StepOpen:
			mark = styles.StepOpen.Render("○")
		default:
			mark = styles.StepLocked.Render("·")
		}
		sb.WriteString(mark)
		sb.WriteString(" ")
	}
	step := ctl.CurrentStep()
	sb.WriteString(styles.Bold.Render(step.Name))
	return sb.String()
}
