// devlog is a per-developer knowledge consolidation tool. Hooks feed it
// coding-assistant turns, a background daemon consolidates finished sessions
// into a markdown knowledge base, and the CLI serves catch-up summaries and
// knowledge queries.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/untoldecay/devlog/internal/config"
)

var (
	// Version is overridden by ldflags at build time.
	Version = "0.3.0"
	Build   = "dev"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "devlog",
	Short: "Personal knowledge consolidation for coding-assistant sessions",
	Long: `devlog observes your coding-assistant sessions through hooks, and a
background daemon consolidates what happened into a per-project markdown
knowledge base with confidence tracking and decay.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Initialize()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			outputJSON(map[string]string{"version": Version, "build": Build})
			return
		}
		fmt.Printf("devlog version %s (%s)\n", Version, Build)
	},
}

func outputJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

// resolveProject returns the project path argument, defaulting to the
// current directory.
func resolveProject(args []string) (string, error) {
	if len(args) > 0 {
		return absPath(args[0])
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return cwd, nil
}

func absPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	return abs, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
