package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/valet/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Valet Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		provider := prompt(scanner, "LLM provider (openai or ollama)", cfg.LLM.Provider)
		if provider == config.ProviderOpenAI || provider == config.ProviderOllama {
			cfg.LLM.Provider = provider
		} else {
			fmt.Printf("Unknown provider %q, keeping %q.\n", provider, cfg.LLM.Provider)
		}

		cfg.LLM.Model = prompt(scanner, "LLM model name", cfg.LLM.Model)
		cfg.LLM.BaseURL = prompt(scanner, "LLM base URL (optional)", cfg.LLM.BaseURL)
		if cfg.LLM.Provider == config.ProviderOpenAI {
			cfg.LLM.APIKey = prompt(scanner, "OpenAI API key", cfg.LLM.APIKey)
		}

		cfg.Telegram.BotToken = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.BotToken)

		maxCallsStr := prompt(scanner, "Max tool calls per request", strconv.Itoa(cfg.MaxToolCalls))
		if n, err := strconv.Atoi(maxCallsStr); err == nil && n > 0 {
			cfg.MaxToolCalls = n
		}

		cfg.LogLevel = prompt(scanner, "Log level (debug, info, warn, error)", cfg.LogLevel)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
