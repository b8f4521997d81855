package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"breathplat/internal/dataset"
	"breathplat/internal/logging"
	"breathplat/internal/workflow"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// DATA IMPORT
// =============================================================================

type importRunner struct {
	env Env
}

func (r *importRunner) Name() string { return "Data Import" }

func (r *importRunner) Fields() []Field {
	return []Field{{
		Name:     "files",
		Label:    "Files",
		Help:     "comma-separated CSV, TSV, JSON or XLSX files, relative to the data directory",
		Kind:     FieldList,
		Required: true,
	}}
}

// Run reads and parses every listed file concurrently and registers them in
// the store. The result keeps the listed order.
func (r *importRunner) Run(ctx context.Context, in Input) (workflow.Result, error) {
	vals, err := resolve(r.Fields(), in.Values)
	if err != nil {
		return nil, err
	}
	names := vals.List("files")
	if len(names) == 0 {
		return nil, invalid("files", "is required")
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if !dataset.Supported(name) {
			return nil, invalid("files", "%s: unsupported format (use .csv, .tsv, .json or .xlsx)", name)
		}
		if seen[name] {
			return nil, invalid("files", "%s is listed twice", name)
		}
		seen[name] = true
	}

	refs := make([]workflow.FileRef, len(names))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, name := range names {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			raw, err := os.ReadFile(r.env.Config.ResolveDataPath(name))
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", name, err)
			}
			entry, err := r.env.Files.Register(filepath.Base(name), raw)
			if err != nil {
				return err
			}
			refs[i] = entry.Ref()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	logging.Get(logging.CategorySteps).Info("imported files", zap.Strings("files", names))
	return workflow.ImportResult{Files: refs}, nil
}
