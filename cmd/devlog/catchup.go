package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/untoldecay/devlog/internal/catchup"
	"github.com/untoldecay/devlog/internal/config"
	"github.com/untoldecay/devlog/internal/paths"
)

var catchupVerbose bool

// catchupCmd serves the precomputed summary. It never calls the LLM itself;
// the read path stays fast and offline.
var catchupCmd = &cobra.Command{
	Use:   "catchup [path]",
	Short: "Show what happened in a project since you last looked",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := resolveProject(args)
		if err != nil {
			return err
		}
		if !paths.HasMemory(project) {
			return fmt.Errorf("no memory root at %s (run 'devlog init' first)", project)
		}

		store := catchup.NewStore(project)
		sum, err := store.ReadPrecomputed()
		if err != nil {
			return fmt.Errorf("reading catch-up summary: %w", err)
		}
		recent, err := store.ReadSummaries()
		if err != nil {
			return fmt.Errorf("reading recent sessions: %w", err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{
				"project":         project,
				"summary":         sum,
				"recent_sessions": recent,
			})
			return nil
		}

		printCatchUp(project, sum, recent)
		return nil
	},
}

func printCatchUp(project string, sum *catchup.PrecomputedSummary, recent []catchup.RecentSessionSummary) {
	fmt.Println(heading("Catch-up: " + project))
	fmt.Println()

	switch {
	case sum == nil && len(recent) == 0:
		fmt.Println("Nothing recorded yet. Sessions appear here after the daemon consolidates them.")
		return
	case sum == nil:
		fmt.Println(muted("Summary not generated yet; the daemon writes it after the next consolidation."))
	default:
		if sum.Status == catchup.StatusStale {
			fmt.Println(warn("Summary is stale (regeneration failed, showing the last good one)."))
			if sum.LastError != "" {
				fmt.Println(muted("  last error: " + sum.LastError))
			}
			fmt.Println()
		}
		fmt.Print(renderMarkdown(sum.Summary))
		fmt.Println()
		fmt.Println(muted("Generated " + sum.GeneratedAt.Local().Format(time.RFC1123)))
	}

	if len(recent) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(heading("Recent sessions"))
	for _, r := range recent {
		line := fmt.Sprintf("  %s  %s", r.ConsolidatedAt.Local().Format("Jan 02 15:04"), r.Goal)
		if r.Goal == "" {
			line = fmt.Sprintf("  %s  (no goal recorded)", r.ConsolidatedAt.Local().Format("Jan 02 15:04"))
		}
		fmt.Println(line)
		if catchupVerbose && len(r.FilesTouched) > 0 {
			fmt.Println(muted("    files: " + strings.Join(r.FilesTouched, ", ")))
		}
	}
	limit := config.GetInt("catchup.recent-limit")
	if limit > 0 && len(recent) >= limit {
		fmt.Println(muted(fmt.Sprintf("  (showing the most recent %d)", limit)))
	}
}

func init() {
	catchupCmd.Flags().BoolVarP(&catchupVerbose, "verbose", "v", false, "Include files touched per session")
	rootCmd.AddCommand(catchupCmd)
}
