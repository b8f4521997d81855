package steps

import (
	"fmt"
	"sort"
	"strings"

	"breathplat/internal/workflow"
)

// maxListed bounds long lists in summaries.
const maxListed = 10

// Describe renders a step result as markdown for the wizard and the run
// command.
func Describe(result workflow.Result) string {
	var sb strings.Builder
	switch r := result.(type) {
	case workflow.ImportResult:
		fmt.Fprintf(&sb, "### Imported %d file(s)\n\n", len(r.Files))
		sb.WriteString("| File | Format | Rows | Columns |\n|---|---|---|---|\n")
		for _, f := range r.Files {
			fmt.Fprintf(&sb, "| %s | %s | %d | %s |\n", f.Name, f.Format, f.Rows, clip(f.Columns))
		}

	case workflow.VisualizeResult:
		title := r.ReportTitle
		if title == "" {
			title = "Profile of " + r.Dataset.Name
		}
		fmt.Fprintf(&sb, "### %s\n\nReport saved to `%s`\n", title, r.ReportPath)
		if len(r.Sections) > 0 {
			fmt.Fprintf(&sb, "\n**Sections:** %s\n", clip(r.Sections))
		}
		if len(r.Alerts) > 0 {
			sb.WriteString("\n**Alerts**\n\n")
			for _, a := range head(r.Alerts) {
				fmt.Fprintf(&sb, "- %s\n", a)
			}
		}

	case workflow.PreprocessResult:
		fmt.Fprintf(&sb, "### Preprocessed %s\n\n", r.Source.Name)
		fmt.Fprintf(&sb, "- Filter: %s", r.Options.Filter)
		if r.Options.Filter != "none" {
			fmt.Fprintf(&sb, " (cutoff %g Hz, order %d)", r.Options.Cutoff, r.Options.Order)
		}
		fmt.Fprintf(&sb, "\n- Normalize: %s\n- Drop missing: %t\n", r.Options.Normalize, r.Options.DropNA)
		fmt.Fprintf(&sb, "- Rows: %d → %d\n", r.Source.Rows, r.Output.Rows)

	case workflow.ExtractResult:
		fmt.Fprintf(&sb, "### %d feature(s) from %d sample(s)\n\n", len(r.FeatureNames), len(r.Features))
		fmt.Fprintf(&sb, "- Method: %s\n- Features: %s\n", r.Method, clip(r.FeatureNames))
		if len(r.Labels) > 0 {
			fmt.Fprintf(&sb, "- Classes: %s\n", clip(distinct(r.Labels)))
		} else {
			sb.WriteString("- Unlabelled\n")
		}

	case workflow.EvaluateResult:
		fmt.Fprintf(&sb, "### Feature scores (%s)\n\n", r.Method)
		sb.WriteString("| Feature | Score |\n|---|---|\n")
		for _, s := range headScores(r.Scores) {
			fmt.Fprintf(&sb, "| %s | %.4f |\n", s.Feature, s.Score)
		}
		fmt.Fprintf(&sb, "\n**Selected:** %s\n", clip(r.SelectedFeatures))

	case workflow.ClassifyResult:
		fmt.Fprintf(&sb, "### Model `%s` (%s)\n\n", r.ModelID, r.Algorithm)
		writeMetrics(&sb, r.Metrics)
		if len(r.ConfusionMatrix) > 0 {
			writeConfusion(&sb, r.Classes, r.ConfusionMatrix)
		}
		switch {
		case r.Explanation != "":
			fmt.Fprintf(&sb, "\n#### Explanation\n\n%s\n", r.Explanation)
		case r.ExplainError != "":
			fmt.Fprintf(&sb, "\n> Explanation unavailable: %s\n", r.ExplainError)
		}

	case workflow.TestResult:
		fmt.Fprintf(&sb, "### %d prediction(s) for %s\n\n", len(r.Predictions), r.File.Name)
		writeMetrics(&sb, r.Metrics)
		counts := make(map[string]int)
		for _, p := range r.Predictions {
			counts[p]++
		}
		for _, class := range distinct(r.Predictions) {
			fmt.Fprintf(&sb, "- %s: %d\n", class, counts[class])
		}

	case nil:
		return "_no result_"

	default:
		fmt.Fprintf(&sb, "### %s result\n", result.Kind())
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeMetrics(sb *strings.Builder, metrics map[string]float64) {
	if len(metrics) == 0 {
		return
	}
	names := make([]string, 0, len(metrics))
	for k := range metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	sb.WriteString("| Metric | Value |\n|---|---|\n")
	for _, k := range names {
		fmt.Fprintf(sb, "| %s | %.4f |\n", k, metrics[k])
	}
}

func writeConfusion(sb *strings.Builder, classes []string, m [][]int) {
	sb.WriteString("\n**Confusion matrix** (rows actual, columns predicted)\n\n|  |")
	for j := range m[0] {
		fmt.Fprintf(sb, " %s |", classLabel(classes, j))
	}
	sb.WriteString("\n|---|" + strings.Repeat("---|", len(m[0])) + "\n")
	for i, row := range m {
		fmt.Fprintf(sb, "| %s |", classLabel(classes, i))
		for _, v := range row {
			fmt.Fprintf(sb, " %d |", v)
		}
		sb.WriteString("\n")
	}
}

func classLabel(classes []string, i int) string {
	if i < len(classes) {
		return classes[i]
	}
	return fmt.Sprintf("%d", i)
}

// clip joins at most maxListed items and notes how many were left out.
func clip(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	s := strings.Join(head(items), ", ")
	if len(items) > maxListed {
		s += fmt.Sprintf(" (+%d more)", len(items)-maxListed)
	}
	return s
}

func head(items []string) []string {
	if len(items) > maxListed {
		return items[:maxListed]
	}
	return items
}

func headScores(scores []workflow.FeatureScore) []workflow.FeatureScore {
	if len(scores) > maxListed {
		return scores[:maxListed]
	}
	return scores
}

// distinct returns the unique values in first-seen order.
func distinct(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
