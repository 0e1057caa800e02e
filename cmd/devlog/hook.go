package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/untoldecay/devlog/internal/debug"
	"github.com/untoldecay/devlog/internal/ingest"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Entry points for coding-assistant hook wiring",
}

// hookTurnCmd is wired into the assistant's post-turn hook. It must never
// fail the host: all errors exit 0 after a debug log.
var hookTurnCmd = &cobra.Command{
	Use:   "turn",
	Short: "Ingest one assistant turn from stdin",
	Long: `Reads a JSON turn payload from stdin and appends its signals to the
session buffer. Intended to be called by the coding assistant's hook system,
not by hand. Always exits 0 so a devlog problem never breaks the assistant.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			debug.Logf("Debug: hook stdin read failed: %v\n", err)
			return
		}

		var turn ingest.Turn
		if err := json.Unmarshal(data, &turn); err != nil {
			debug.Logf("Debug: hook payload unparsable: %v\n", err)
			return
		}
		if turn.ProjectPath == "" {
			if cwd, err := os.Getwd(); err == nil {
				turn.ProjectPath = cwd
			} else {
				debug.Logf("Debug: hook has no project path: %v\n", err)
				return
			}
		}

		if err := ingest.Ingest(turn); err != nil {
			debug.Logf("Debug: turn ingest failed: %v\n", err)
		}
	},
}

func init() {
	hookCmd.AddCommand(hookTurnCmd)
	rootCmd.AddCommand(hookCmd)
}
