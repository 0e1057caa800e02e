package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/untoldecay/devlog/internal/daemon"
	"github.com/untoldecay/devlog/internal/lockfile"
	"github.com/untoldecay/devlog/internal/paths"
)

var daemonDetach bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background consolidation daemon",
	Long: `Runs the consolidation loop: discovers registered projects, finalizes
idle sessions, consolidates them into the knowledge base, applies knowledge
decay, and keeps catch-up summaries precomputed. One instance per user;
a second invocation exits immediately.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon (foreground by default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if daemonDetach {
			return spawnDetached()
		}

		d, err := daemon.New()
		if err != nil {
			return err
		}
		err = d.Run(context.Background())
		if errors.Is(err, lockfile.ErrAlreadyRunning) {
			if pid, ok := lockfile.Running(paths.DaemonPIDFile()); ok {
				return fmt.Errorf("daemon already running (pid %d)", pid)
			}
			return err
		}
		return err
	},
}

// spawnDetached re-execs this binary as a session leader and returns once the
// child has had a moment to claim the lock.
func spawnDetached() error {
	bin, err := os.Executable()
	if err != nil {
		bin = os.Args[0]
	}
	child := exec.Command(bin, "daemon", "start")
	child.Stdin = nil
	child.Stdout = nil
	child.Stderr = nil
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}
	go func() { _ = child.Wait() }()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if pid, ok := lockfile.Running(paths.DaemonPIDFile()); ok {
			fmt.Printf("Daemon started (pid %d)\n", pid)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not come up within 3s; check %s", paths.DaemonLogFile())
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and per-project counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, alive := lockfile.Running(paths.DaemonPIDFile())
		snap, err := daemon.ReadStatus()
		if err != nil {
			return fmt.Errorf("reading status snapshot: %w", err)
		}

		if jsonOutput {
			out := map[string]interface{}{"running": alive}
			if alive {
				out["pid"] = pid
			}
			if snap != nil {
				out["snapshot"] = snap
			}
			outputJSON(out)
			return nil
		}

		if !alive {
			fmt.Println("Daemon is not running.")
			if snap != nil && !snap.StartedAt.IsZero() {
				fmt.Printf("Last run started %s, processed %d sessions.\n",
					snap.StartedAt.Local().Format(time.RFC1123), snap.SessionsProcessed)
			}
			return nil
		}

		fmt.Printf("Daemon running (pid %d)\n", pid)
		if snap == nil {
			return nil
		}
		fmt.Printf("  Started:            %s\n", snap.StartedAt.Local().Format(time.RFC1123))
		fmt.Printf("  Sessions processed: %d\n", snap.SessionsProcessed)
		if snap.LastConsolidation != nil {
			fmt.Printf("  Last consolidation: %s\n", snap.LastConsolidation.Local().Format(time.RFC1123))
		}
		if snap.LastStalenessCheck != nil {
			fmt.Printf("  Last decay sweep:   %s\n", snap.LastStalenessCheck.Local().Format(time.RFC1123))
		}
		if len(snap.Projects) > 0 {
			fmt.Printf("  Projects (%d):\n", len(snap.Projects))
			for path, stats := range snap.Projects {
				fmt.Printf("    %s: %d events, %d knowledge updates\n",
					path, stats.EventsProcessed, stats.MemoriesExtracted)
			}
		}
		return nil
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, alive := lockfile.Running(paths.DaemonPIDFile())
		if !alive {
			fmt.Println("Daemon is not running.")
			return nil
		}
		proc, err := os.FindProcess(pid)
		if err != nil {
			return err
		}
		if err := proc.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("signaling daemon (pid %d): %w", pid, err)
		}

		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if !lockfile.ProcessAlive(pid) {
				fmt.Printf("Daemon stopped (pid %d)\n", pid)
				return nil
			}
			time.Sleep(100 * time.Millisecond)
		}
		return fmt.Errorf("daemon (pid %d) did not exit within 5s", pid)
	},
}

func init() {
	daemonStartCmd.Flags().BoolVar(&daemonDetach, "detach", false, "Run the daemon in the background")
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}
