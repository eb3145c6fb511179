package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/valet/internal/pairing"
	"github.com/user/valet/internal/paths"
	"github.com/user/valet/internal/store"
)

func init() {
	rootCmd.AddCommand(pairCmd)
}

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Generate a Telegram pairing code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(paths.DB())
		if err != nil {
			return err
		}
		defer st.Close()

		code := pairing.GenerateCode()
		expiresAt := time.Now().Add(pairing.TTL).UnixMilli()
		if err := st.InsertPairingCode(pairing.HashCode(code), expiresAt); err != nil {
			return err
		}

		fmt.Printf("Pairing code: %s\n\n", code)
		fmt.Printf("Send `/pair %s` to your Telegram bot within %s.\n", code, pairing.TTL)
		fmt.Println("This code is shown once and can only be used once.")
		return nil
	},
}
