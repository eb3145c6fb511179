package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/valet/internal/ipc"
	"github.com/user/valet/internal/paths"
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the daemon interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := ipc.Dial(paths.Socket())
		if err != nil {
			return fmt.Errorf("is the daemon running? (%w)", err)
		}
		defer client.Close()

		sessionID, err := client.CreateSession()
		if err != nil {
			return err
		}

		fmt.Println("Connected. Type a message, or 'exit' to quit.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if text == "exit" || text == "quit" {
				return nil
			}

			err := client.SendUserInput(sessionID, text,
				func(chunk string) { fmt.Print(chunk) },
				func(status, tool string) {
					if status == "executing_tool" {
						fmt.Fprintf(os.Stderr, "[running %s]\n", tool)
					}
				})
			fmt.Println()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	},
}
