package main

import (
	"context"
	"fmt"

	"breathplat/cmd/breathplat/ui"
	"breathplat/cmd/breathplat/wizard"
	"breathplat/internal/dataset"
	"breathplat/internal/logging"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runWizard starts the interactive wizard.
func runWizard(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := newSession(ctx, cfg, "wizard")
	if err != nil {
		return err
	}
	defer s.Close()

	log := logging.Get(logging.CategoryUI)
	files, err := dataset.ListFiles(cfg.Data.Dir)
	if err != nil {
		log.Warn("failed to list data directory", zap.String("dir", cfg.Data.Dir), zap.Error(err))
	}

	var watcher *dataset.Watcher
	if cfg.Data.Watch {
		watcher, err = startWatcher(ctx, cfg.Data.Dir)
		if err != nil {
			log.Warn("data directory watch disabled", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	m, err := wizard.New(ctx, wizard.Options{
		Controller: s.ctl,
		Runners:    s.runners,
		Files:      s.env.Files,
		Styles:     ui.NewStyles(ui.ThemeFor(cfg.UI.Theme)),
		WordWrap:   cfg.UI.WordWrap,
		Watcher:    watcher,
		Services:   s.env.Services,
		Check:      configuredServices(cfg),
		DataFiles:  files,
	})
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}
	if fm, ok := final.(wizard.Model); ok && fm.Controller().Finished() {
		fmt.Println("✓ Workflow finished.")
	}
	if s.journal != nil {
		fmt.Printf("Session %s journaled to %s\n", s.id, s.journal.Path())
	}
	return nil
}

func startWatcher(ctx context.Context, dir string) (*dataset.Watcher, error) {
	w, err := dataset.NewWatcher(dir)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}
