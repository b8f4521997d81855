package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"breathplat/cmd/breathplat/ui"
	"breathplat/internal/plan"
	"breathplat/internal/steps"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	planPath   string
	jsonOutput bool
)

// runCmd executes a plan without the wizard
var runCmd = &cobra.Command{
	Use:   "run --plan <file>",
	Short: "Run the workflow headlessly from a YAML plan",
	Long: `Runs every step in order with the form values from a YAML plan and
completes each step as soon as it succeeds. Steps listed under skip are
passed over. The run stops at the first failing step.

Example plan:
  name: nightly
  steps:
    data_import:
      files: [breath.csv]
    classify:
      algorithm: svm
      params: {C: 1.0}
  skip: [visualize]`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	p, err := plan.Load(planPath)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	s, err := newSession(ctx, cfg, "run")
	if err != nil {
		return err
	}
	defer s.Close()

	report, runErr := plan.Execute(ctx, s.ctl, s.runners, p)
	if report == nil {
		return runErr
	}

	if jsonOutput {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Println(string(out))
	} else {
		fmt.Print(renderMarkdown(reportMarkdown(report)))
		if s.journal != nil {
			fmt.Printf("Session %s journaled to %s\n", s.id, s.journal.Path())
		}
	}
	return runErr
}

// reportMarkdown renders a run report, one section per step.
func reportMarkdown(r *plan.Report) string {
	var sb strings.Builder
	name := r.Plan
	if name == "" {
		name = "plan"
	}
	fmt.Fprintf(&sb, "# Run: %s\n\n", name)
	for _, o := range r.Outcomes {
		fmt.Fprintf(&sb, "## %d. %s: %s", o.Step.ID+1, o.Step.Name, o.Status)
		if o.Status != plan.StatusSkipped {
			fmt.Fprintf(&sb, " (%s)", o.Duration.Round(time.Millisecond))
		}
		sb.WriteString("\n\n")
		switch o.Status {
		case plan.StatusCompleted:
			sb.WriteString(steps.Describe(o.Result))
			sb.WriteString("\n")
		case plan.StatusFailed:
			fmt.Fprintf(&sb, "**Error:** %s\n\n", o.Err)
		}
	}
	if r.Finished {
		sb.WriteString("**All steps completed.**\n")
	}
	return sb.String()
}

// renderMarkdown renders markdown for the terminal, falling back to the raw
// text if glamour cannot.
func renderMarkdown(md string) string {
	style := "light"
	if ui.ThemeFor(cfg.UI.Theme).IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(cfg.UI.WordWrap),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
