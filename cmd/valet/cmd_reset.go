package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/valet/internal/paths"
)

var (
	resetAll bool
	resetYes bool
)

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "also delete the config file")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored data (and config with --all)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := []string{
			paths.DB(),
			paths.DB() + "-wal",
			paths.DB() + "-shm",
			paths.Socket(),
			paths.PID(),
		}
		if resetAll {
			targets = append(targets, paths.Config())
		}

		if !resetYes {
			fmt.Println("This will delete:")
			for _, t := range targets {
				fmt.Printf("  %s\n", t)
			}
			fmt.Print("Continue? [y/N] ")
			scanner := bufio.NewScanner(os.Stdin)
			if !scanner.Scan() || !strings.EqualFold(strings.TrimSpace(scanner.Text()), "y") {
				fmt.Println("Aborted.")
				return nil
			}
		}

		// Stop a running daemon first so it doesn't recreate files.
		if pid, err := readPID(); err == nil {
			if proc, err := os.FindProcess(pid); err == nil {
				proc.Signal(syscall.SIGTERM)
				fmt.Printf("Stopped daemon (PID %d).\n", pid)
			}
		}

		for _, t := range targets {
			if err := os.Remove(t); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Warning: could not remove %s: %v\n", t, err)
			}
		}
		fmt.Println("Reset complete.")
		return nil
	},
}
