package main

import (
	"fmt"
	"time"

	"breathplat/cmd/breathplat/ui"
	"breathplat/internal/analysis"

	"github.com/spf13/cobra"
)

// servicesCmd checks the analysis services
var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Check that every analysis service is reachable",
	Long: `Calls GET /health on every configured analysis service concurrently and
prints one row per service. Exits non-zero when any service is down.`,
	Args: cobra.NoArgs,
	RunE: runServicesCheck,
}

func runServicesCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	client := analysis.NewClient(cfg.Services)
	statuses := client.CheckAll(ctx, configuredServices(cfg))

	table := ui.NewSimpleTable("Analysis Services", []string{"Service", "URL", "Status", "Latency"})
	down := 0
	for _, st := range statuses {
		status := "up"
		if !st.OK {
			status = "DOWN"
			down++
		}
		table.AddRow(st.Service, st.URL, status, st.Latency.Round(time.Millisecond).String())
	}
	fmt.Print(table.View(ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))))
	fmt.Printf("%d/%d services up\n", len(statuses)-down, len(statuses))

	for _, st := range statuses {
		if !st.OK && st.Error != "" {
			fmt.Printf("  %s: %s\n", st.Service, st.Error)
		}
	}
	if down > 0 {
		return fmt.Errorf("%d service(s) unreachable", down)
	}
	return nil
}
