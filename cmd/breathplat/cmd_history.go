package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"breathplat/internal/journal"

	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd shows journaled sessions
var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List journaled sessions, or the events of one session",
	Long: `Reads the run journal (journal.path in the config). Without arguments it
lists the most recent sessions; with a session id it prints that session's
controller events in order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := cfg.Journal.Path
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Printf("No journal found at %s.\n", path)
		fmt.Println("Enable it with journal.enabled: true or BREATHPLAT_JOURNAL_PATH.")
		return nil
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	if len(args) == 1 {
		return printSessionEvents(j, args[0])
	}

	sessions, err := j.Sessions(historyLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No journaled sessions.")
		return nil
	}

	fmt.Println("Journaled Sessions")
	fmt.Println(strings.Repeat("─", 72))
	for _, s := range sessions {
		fmt.Printf("  %s  %-6s %s  %d event(s)\n",
			s.ID, s.Mode, s.StartedAt.Local().Format("2006-01-02 15:04:05"), s.Events)
	}
	fmt.Println(strings.Repeat("─", 72))
	fmt.Printf("Total: %d sessions\n", len(sessions))
	fmt.Println("\nUse: breathplat history <session-id>")
	return nil
}

func printSessionEvents(j *journal.Journal, id string) error {
	events, err := j.Events(id)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("no events for session %s", id)
	}

	fmt.Printf("Session %s\n", id)
	fmt.Println(strings.Repeat("─", 72))
	for _, e := range events {
		line := fmt.Sprintf("  %3d  %s  %-9s %-18s %d → %d",
			e.Seq, e.At.Local().Format("15:04:05"), e.Kind, e.StepKey, e.From, e.To)
		if e.ResultKind != "" {
			line += "  [" + e.ResultKind + "]"
		}
		fmt.Println(line)
	}
	return nil
}
