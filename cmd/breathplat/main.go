// Package main is the breathplat command: the interactive analysis wizard
// plus headless runs, service checks and journal history.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"breathplat/internal/config"
	"breathplat/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool
	dataDir    string
	timeout    time.Duration

	// Effective configuration, loaded before every command
	cfg *config.Config
)

// skipValidation marks commands that must work with a broken config.
const skipValidation = "skip-validation"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "breathplat",
	Short: "BreathPlat - breath analysis workflow",
	Long: `BreathPlat walks breath-sensor data through a seven step analysis:
import, visualize, preprocess, extract features, evaluate, classify and test.
Each step calls an analysis service; the wizard threads every confirmed result
into the steps that follow.

Run without arguments to start the interactive wizard.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runWizard,
}

// setup loads the configuration and initializes logging.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if dataDir != "" {
		loaded.Data.Dir = dataDir
	}
	if verbose {
		loaded.Logging.Level = "debug"
	}
	if cmd.Annotations[skipValidation] == "" {
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", path, err)
		}
	}
	cfg = loaded

	opts := loaded.Logging.Options()
	interactive := !cmd.HasParent()
	switch {
	case interactive && opts.File == "":
		// the wizard owns the terminal
		opts.File = filepath.Join(config.DefaultHome(), "logs", "breathplat.log")
	case !interactive && verbose:
		opts.File = ""
	}
	if err := logging.Initialize(opts); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Get(logging.CategoryBoot).Debug("config loaded",
		zap.String("path", path),
		zap.String("data_dir", loaded.Data.Dir),
		zap.String("explain", loaded.Explain.Backend))
	return nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.breathplat/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Directory data files are read from (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Overall timeout for headless commands (0 = none)")

	// Run flags
	runCmd.Flags().StringVarP(&planPath, "plan", "p", "", "YAML plan to execute (required)")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	_ = runCmd.MarkFlagRequired("plan")

	// History flags
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to list")

	// Config subcommands
	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	// Add commands to root
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stepsCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
