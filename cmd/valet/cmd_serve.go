package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/valet/internal/config"
	"github.com/user/valet/internal/history"
	"github.com/user/valet/internal/ipc"
	"github.com/user/valet/internal/orchestrator"
	"github.com/user/valet/internal/paths"
	"github.com/user/valet/internal/permissions"
	"github.com/user/valet/internal/store"
	"github.com/user/valet/internal/telegram"
	"github.com/user/valet/internal/tools"
	"github.com/user/valet/pkg/llm"
	"github.com/user/valet/pkg/llm/openai"
)

var startForeground bool

func init() {
	startCmd.Flags().BoolVar(&startForeground, "foreground", false, "run in the foreground instead of detaching")
	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the valet daemon",
	Args:  cobra.NoArgs,
	RunE:  runStart,
}

func writePIDFile() (string, error) {
	pidPath := paths.PID()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runStart(cmd *cobra.Command, args []string) error {
	if !startForeground {
		return spawnDaemon()
	}
	return runDaemon()
}

// spawnDaemon re-executes this binary detached from the terminal, with its
// output going to ~/.valet/valet.log.
func spawnDaemon() error {
	if pid, err := readPID(); err == nil {
		return fmt.Errorf("daemon already running (PID %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	logFile, err := os.OpenFile(paths.Log(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, "start", "--foreground", "--config", cfgPath)
	child.Stdout = logFile
	child.Stderr = logFile
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := child.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Printf("Daemon started (PID %d). Logs: %s\n", child.Process.Pid, paths.Log())
	return nil
}

func runDaemon() error {
	cfg := loadConfig()
	setupLogging(cfg)

	if cfg.LLM.Provider == config.ProviderOpenAI && cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm.provider is %q but no API key is configured (set OPENAI_API_KEY or run `valet setup`)", config.ProviderOpenAI)
	}

	pidPath, err := writePIDFile()
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	st, err := store.Open(paths.DB())
	if err != nil {
		return err
	}
	defer st.Close()

	provider := openai.New(&llm.Config{
		Provider: cfg.LLM.Provider,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
	})

	perms := permissions.NewChecker(paths.Dir(), st)
	calendars := tools.NewCalendarService()

	registry := tools.NewRegistry()
	registry.Register(tools.NewSearch(perms))
	registry.Register(tools.NewReadFile(perms))
	registry.Register(tools.NewCommand())
	registry.Register(tools.NewCalendarLists(calendars))
	registry.Register(tools.NewCalendarListByDay(calendars))
	registry.Register(tools.NewCalendarWeek(calendars))
	registry.Register(tools.NewRemindersLists())
	registry.Register(tools.NewRemindersList())
	registry.Register(tools.NewWebFetch())

	hist := history.NewService(st)
	orch := orchestrator.New(cfg, provider, registry, hist, st, cfg.LLM.Provider, slog.Default())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	ipcServer := ipc.NewServer(paths.Socket(), orch, st, slog.Default())
	g.Go(func() error { return ipcServer.Run(ctx) })

	if cfg.Telegram.BotToken != "" {
		adapter, err := telegram.New(cfg.Telegram.BotToken, orch, st, slog.Default())
		if err != nil {
			slog.Error("failed to create telegram adapter", "error", err)
			cancel()
			return err
		}
		g.Go(func() error { return adapter.Run(ctx) })
	} else {
		slog.Warn("telegram adapter disabled (no bot token)")
	}

	c := cron.New()
	c.AddFunc("@every 10m", func() {
		if n, err := st.DeleteExpiredPairingCodes(); err != nil {
			slog.Error("pairing code purge failed", "error", err)
		} else if n > 0 {
			slog.Debug("purged expired pairing codes", "count", n)
		}
	})
	c.Start()
	defer c.Stop()

	slog.Info("valet started",
		"data_dir", paths.Dir(),
		"log_level", cfg.LogLevel,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"max_tool_calls", cfg.MaxToolCalls,
		"tools", registry.Names(),
	)

	err = g.Wait()
	slog.Info("shutting down")
	return err
}
