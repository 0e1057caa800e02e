package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/untoldecay/devlog/internal/paths"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a project memory root (.memory/) and register it with the daemon",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := resolveProject(args)
		if err != nil {
			return err
		}

		if paths.HasMemory(project) && !initForce {
			if !confirmReinit(project) {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := paths.EnsureProjectDirs(project); err != nil {
			return fmt.Errorf("creating memory directories: %w", err)
		}
		if err := paths.RegisterProject(project); err != nil {
			return fmt.Errorf("registering project: %w", err)
		}

		if jsonOutput {
			outputJSON(map[string]string{
				"project":   project,
				"memory":    paths.MemoryRoot(project),
				"knowledge": paths.KnowledgeDir(project),
			})
			return nil
		}
		fmt.Printf("Initialized memory root at %s\n", paths.MemoryRoot(project))
		fmt.Println("The daemon will pick this project up on its next poll.")
		return nil
	},
}

// confirmReinit asks before touching an existing memory root. Non-interactive
// runs keep the existing root untouched unless --force is given.
func confirmReinit(project string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "Memory root already exists at %s (use --force to re-register)\n", paths.MemoryRoot(project))
		return false
	}
	var proceed bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("%s already has a memory root. Re-register it?", project)).
			Description("Existing knowledge and sessions are kept.").
			Value(&proceed),
	))
	if err := form.Run(); err != nil {
		return false
	}
	return proceed
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Re-register without confirmation")
	rootCmd.AddCommand(initCmd)
}
