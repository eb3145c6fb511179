// Package telegram bridges Telegram chats to the orchestrator. Only paired
// accounts may talk to the assistant; pairing is done with one-time codes
// generated by the CLI.
package telegram

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/valet/internal/orchestrator"
	"github.com/user/valet/internal/pairing"
	"github.com/user/valet/internal/store"
)

const maxTelegramMessage = 4096

const startText = "Welcome to Valet!\n\n" +
	"To use this bot, you need to pair it with your CLI:\n\n" +
	"1. Run `valet pair` in your terminal\n" +
	"2. Send `/pair YOUR_CODE` here\n\n" +
	"After pairing, you can chat with me!"

const unauthorizedText = "You are not authorized to use this bot.\n\n" +
	"Please pair your account:\n" +
	"1. Run `valet pair` in your terminal\n" +
	"2. Send `/pair YOUR_CODE` here"

// Adapter long-polls Telegram and routes text messages through the
// orchestrator.
type Adapter struct {
	bot    *tgbotapi.BotAPI
	orch   *orchestrator.Orchestrator
	store  *store.Store
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[int64]string
}

// New creates a Telegram adapter.
func New(token string, orch *orchestrator.Orchestrator, st *store.Store, logger *slog.Logger) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		bot:      bot,
		orch:     orch,
		store:    st,
		logger:   logger.With("adapter", "telegram"),
		sessions: map[int64]string{},
	}, nil
}

// Run long-polls for updates until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := a.bot.GetUpdatesChan(u)
	a.logger.Info("telegram adapter started", "username", a.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			go a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			a.logger.Info("telegram adapter stopped")
			return nil
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		a.handleCommand(msg)
		return
	}

	chatID := msg.Chat.ID
	if !a.isAuthorized(msg.From) {
		a.send(chatID, unauthorizedText)
		return
	}

	telegramID := msg.From.ID
	sessionID := a.sessionFor(telegramID)
	if err := a.store.EnsureSession(sessionID, store.ClientTelegram, msg.From.UserName); err != nil {
		a.logger.Error("failed to ensure session", "session_id", sessionID, "error", err)
	}

	a.logger.Debug("telegram message received", "telegram_id", telegramID, "text_len", len(msg.Text))

	if _, err := a.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		a.logger.Debug("typing action failed", "error", err)
	}

	resp, err := a.orch.ProcessMessage(ctx, msg.Text, sessionID, nil)
	if err != nil {
		a.logger.Error("failed to process telegram message", "error", err)
		a.send(chatID, "Sorry, something went wrong. Please try again.")
		return
	}
	a.send(chatID, resp.Text)
}

func (a *Adapter) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		a.send(chatID, startText)

	case "pair":
		a.handlePair(msg)

	case "status":
		if !a.isAuthorized(msg.From) {
			a.send(chatID, "You are not authorized. Please use /pair first.")
			return
		}
		a.send(chatID, "Valet is running!\n\nSend me a message and I'll respond.")

	default:
		a.send(chatID, "Unknown command. Available: /start, /pair, /status")
	}
}

func (a *Adapter) handlePair(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.From == nil {
		a.send(chatID, "Could not identify your Telegram account.")
		return
	}
	telegramID := msg.From.ID

	if a.isAuthorized(msg.From) {
		a.send(chatID, "You are already paired! You can start chatting.")
		return
	}

	code := strings.TrimSpace(msg.CommandArguments())
	if code == "" {
		a.send(chatID, "Please provide a pairing code.\n\n"+
			"Usage: `/pair YOUR_CODE`\n"+
			"Get a code by running `valet pair` in your terminal.")
		return
	}

	valid, err := a.store.ValidateAndConsumePairingCode(pairing.HashCode(code))
	if err != nil {
		a.logger.Error("pairing validation failed", "error", err)
		a.send(chatID, "Failed to complete pairing. Please try again.")
		return
	}
	if !valid {
		a.send(chatID, "Invalid or expired pairing code.\n\n"+
			"Please generate a new code with `valet pair` and try again.")
		return
	}

	if _, err := a.store.InsertTelegramUser(&store.TelegramUser{
		TelegramID: telegramID,
		Username:   msg.From.UserName,
		PairedAt:   time.Now().UnixMilli(),
	}); err != nil {
		a.logger.Error("failed to pair telegram user", "error", err)
		a.send(chatID, "Failed to complete pairing. Please try again.")
		return
	}

	a.logger.Info("telegram user paired", "telegram_id", telegramID, "username", msg.From.UserName)
	a.send(chatID, "Successfully paired!\n\nYou can now chat with me. Just send a message!")
}

func (a *Adapter) isAuthorized(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	ok, err := a.store.TelegramUserAuthorized(from.ID)
	if err != nil {
		a.logger.Error("authorization check failed", "error", err)
		return false
	}
	return ok
}

// sessionFor returns the in-memory session for a Telegram account, creating
// one on first contact. Sessions reset when the daemon restarts.
func (a *Adapter) sessionFor(telegramID int64) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.sessions[telegramID]; ok {
		return id
	}
	id := a.orch.CreateSession()
	a.sessions[telegramID] = id
	return id
}

func (a *Adapter) send(chatID int64, text string) {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		if _, err := a.bot.Send(msg); err != nil {
			a.logger.Error("send message failed", "error", err)
		}
	}
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
