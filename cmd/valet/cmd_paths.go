package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/valet/internal/paths"
	"github.com/user/valet/internal/store"
)

func init() {
	rootCmd.AddCommand(allowCmd, disallowCmd, pathsCmd)
}

func openStore() (*store.Store, error) {
	return store.Open(paths.DB())
}

func normalizePathArg(arg string) (string, error) {
	abs, err := filepath.Abs(paths.ExpandTilde(arg))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

var allowCmd = &cobra.Command{
	Use:   "allow <path>",
	Short: "Allow the assistant to read a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		abs, err := normalizePathArg(args[0])
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.InsertAllowedPath(abs, store.PermRead); err != nil {
			if store.IsDuplicatePathErr(err) {
				fmt.Printf("%s is already allow-listed.\n", abs)
				return nil
			}
			return err
		}
		fmt.Printf("Allowed read access to %s\n", abs)
		return nil
	},
}

var disallowCmd = &cobra.Command{
	Use:   "disallow <path>",
	Short: "Remove a directory from the allow-list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		abs, err := filepath.Abs(paths.ExpandTilde(args[0]))
		if err != nil {
			return fmt.Errorf("resolve path: %w", err)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		removed, err := st.DeleteAllowedPath(abs)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Printf("%s was not allow-listed.\n", abs)
			return nil
		}
		fmt.Printf("Removed %s from the allow-list.\n", abs)
		return nil
	},
}

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List allow-listed directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.AllowedPaths()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No allow-listed paths. Add one with `valet allow <path>`.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s\t(%s, added %s)\n",
				e.Path, e.Permissions, time.UnixMilli(e.AddedAt).Format("2006-01-02"))
		}
		return nil
	},
}
