package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/valet/internal/config"
	"github.com/user/valet/internal/paths"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "valet",
	Short: "Personal assistant daemon",
	Long: "Valet is a local personal-assistant daemon. It plans tool calls with an LLM,\n" +
		"executes them against your machine, and answers over the CLI, a Unix socket,\n" +
		"or Telegram.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", paths.Config(), "config file path")
}

func loadConfig() *config.Config {
	return config.Load(cfgPath)
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
