package main

import (
	"fmt"
	"strings"

	"breathplat/internal/steps"
	"breathplat/internal/workflow"

	"github.com/spf13/cobra"
)

// stepsCmd lists the workflow steps
var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the workflow steps and their form fields",
	Args:  cobra.NoArgs,
	RunE:  runStepsList,
}

func runStepsList(cmd *cobra.Command, args []string) error {
	runners := steps.Default(steps.Env{Config: cfg})

	fmt.Println("Workflow Steps")
	fmt.Println(strings.Repeat("─", 60))
	for i, r := range runners {
		fmt.Printf("  %d. %s (%s)\n", i+1, r.Name(), workflow.Normalize(r.Name()))
		for _, f := range r.Fields() {
			req := ""
			if f.Required {
				req = " *"
			}
			line := fmt.Sprintf("       %-12s %-7s", f.Name+req, f.Kind)
			switch {
			case len(f.Choices) > 0:
				line += " " + strings.Join(f.Choices, "|")
			case f.Help != "":
				line += " " + f.Help
			}
			if f.Default != "" {
				line += fmt.Sprintf(" [default: %s]", f.Default)
			}
			fmt.Println(line)
		}
	}
	fmt.Println(strings.Repeat("─", 60))
	fmt.Println("Plan keys are the names in parentheses; * marks required fields.")
	return nil
}
