package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"breathplat/internal/analysis"
	"breathplat/internal/dataset"
	"breathplat/internal/logging"
	"breathplat/internal/workflow"

	"go.uber.org/zap"
)

// =============================================================================
// VISUALIZE
// =============================================================================

type visualizeRunner struct {
	env Env
}

func (r *visualizeRunner) Name() string { return "Visualize" }

func (r *visualizeRunner) Fields() []Field {
	return []Field{
		{Name: "dataset", Label: "Dataset", Help: "imported file to profile (empty for the first)", Kind: FieldText},
		{Name: "columns", Label: "Columns", Help: "comma-separated columns to profile (empty for all)", Kind: FieldList},
	}
}

// Run profiles one imported dataset, writes the HTML report to the output
// directory and keeps a text summary of it.
func (r *visualizeRunner) Run(ctx context.Context, in Input) (workflow.Result, error) {
	vals, err := resolve(r.Fields(), in.Values)
	if err != nil {
		return nil, err
	}
	ref, entry, err := importedFile(in.Data, r.env.Files, vals.String("dataset"))
	if err != nil {
		return nil, err
	}
	columns := vals.List("columns")
	profiled, err := entry.Table.Project(columns)
	if err != nil {
		return nil, invalid("columns", "%s: %v", ref.Name, err)
	}

	report, err := r.env.Services.Profile(ctx, analysis.Upload{Name: entry.Name, Content: entry.Raw}, columns)
	if err != nil {
		return nil, err
	}
	summary, err := dataset.SummarizeReport(report)
	if err != nil {
		return nil, err
	}
	path, err := r.saveReport(ref.Name, report)
	if err != nil {
		return nil, err
	}

	logging.Get(logging.CategorySteps).Info("profiled dataset",
		zap.String("dataset", ref.Name), zap.String("report", path),
		zap.Int("columns", len(profiled.Columns)), zap.Int("alerts", len(summary.Alerts)))
	return workflow.VisualizeResult{
		Dataset:     ref,
		Columns:     columns,
		ReportPath:  path,
		ReportTitle: summary.Title,
		Sections:    summary.Sections,
		Alerts:      summary.Alerts,
	}, nil
}

func (r *visualizeRunner) saveReport(name, report string) (string, error) {
	dir := r.env.Config.Data.OutputDir
	if dir == "" {
		dir = "reports"
	}
	if !filepath.IsAbs(dir) {
		dir = r.env.Config.ResolveDataPath(dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, reportName(name))
	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// importedFile resolves a dataset field against the import result. An empty
// name selects the first imported file.
func importedFile(data workflow.Data, files *dataset.Store, name string) (workflow.FileRef, dataset.Entry, error) {
	imp, ok := data.Import()
	if !ok {
		return workflow.FileRef{}, dataset.Entry{}, &MissingInputError{Step: "Data Import"}
	}
	ref, ok := imp.File(name)
	if !ok {
		return workflow.FileRef{}, dataset.Entry{}, invalid("dataset", "%q was not imported (have %s)", name, strings.Join(imp.Names(), ", "))
	}
	entry, err := files.Resolve(ref)
	if err != nil {
		return workflow.FileRef{}, dataset.Entry{}, err
	}
	return ref, entry, nil
}

// reportName keeps the source extension so x.csv and x.json get separate
// reports.
func reportName(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return stem(name) + "_profile.html"
	}
	return stem(name) + "_" + strings.ToLower(ext) + "_profile.html"
}

func stem(name string) string {
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
}
