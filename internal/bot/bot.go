// Package bot provides the Telegram transport for statement ingestion.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gitlab.com/yelinaung/expense-importer/internal/config"
	"gitlab.com/yelinaung/expense-importer/internal/ingest"
	"gitlab.com/yelinaung/expense-importer/internal/logger"
	"gitlab.com/yelinaung/expense-importer/internal/models"
)

// downloadTimeout bounds fetching an uploaded document from Telegram.
const downloadTimeout = 60 * time.Second

// Ingester is the part of ingest.Service the bot uses.
type Ingester interface {
	Upload(ctx context.Context, req ingest.UploadRequest) (*models.Statement, error)
	Status(ctx context.Context, id string) (*models.Statement, error)
	Recent(ctx context.Context, limit int) ([]models.Statement, error)
	Cancel(ctx context.Context, id string) (*models.Statement, error)
	MaxUploadBytes() int64
}

var _ Ingester = (*ingest.Service)(nil)

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot          *bot.Bot
	cfg          *config.Config
	svc          Ingester
	httpClient   *http.Client
	pollInterval time.Duration

	// watchers tracks goroutines that follow statement progress.
	watchers sync.WaitGroup
}

// New creates a new Bot instance.
func New(cfg *config.Config, svc Ingester) (*Bot, error) {
	b := newBot(cfg, svc)

	opts := []bot.Option{
		bot.WithMiddlewares(b.whitelistMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.registerHandlers()

	return b, nil
}

func newBot(cfg *config.Config, svc Ingester) *Bot {
	poll := cfg.StatusPollInterval
	if poll <= 0 {
		poll = config.DefaultStatusPollInterval
	}
	return &Bot{
		cfg: cfg,
		svc: svc,
		httpClient: &http.Client{
			Timeout:   downloadTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		pollInterval: poll,
	}
}

// Start polls for updates until ctx is cancelled, then waits for progress
// watchers to finish.
func (b *Bot) Start(ctx context.Context) {
	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
	b.watchers.Wait()
	logger.Log.Info().Msg("Bot stopped")
}

// registerHandlers sets up command handlers.
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, b.handleHelp)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypePrefix, b.handleStatus)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypePrefix, b.handleCancel)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/recent", bot.MatchTypePrefix, b.handleRecent)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/issues", bot.MatchTypePrefix, b.handleIssues)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cancelCallbackPrefix, bot.MatchTypePrefix, b.handleCancelCallback)
}

// whitelistMiddleware checks if the user is whitelisted before processing.
func (b *Bot) whitelistMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		if !b.allowUpdate(ctx, tgBot, update) {
			return
		}
		next(ctx, tgBot, update)
	}
}

// allowUpdate logs the update and rejects users outside the whitelist.
func (b *Bot) allowUpdate(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) bool {
	userID := extractUserID(update)
	if userID == 0 {
		return false
	}

	username := extractUsername(update)
	logUserAction(userID, update)

	if !b.cfg.IsUserWhitelisted(userID, username) {
		logger.Log.Warn().
			Str("user_hash", logger.HashUserID(userID)).
			Msg("Blocked non-whitelisted user")
		if update.Message != nil {
			_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: update.Message.Chat.ID,
				Text:   "⛔ Sorry, you are not authorized to use this bot.",
			})
		}
		return false
	}
	return true
}

// logUserAction logs the kind of input without its content.
func logUserAction(userID int64, update *tgmodels.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		event := logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("chat_hash", logger.HashChatID(msg.Chat.ID))

		switch {
		case msg.Document != nil:
			event = event.Str("type", "document").Int64("file_size", msg.Document.FileSize)
		case msg.Text != "":
			event = event.Str("type", "text").Str("command", commandName(msg.Text))
		}

		event.Msg("User input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("data", update.CallbackQuery.Data).
			Msg("Callback query")
	}
}

// extractUsername gets the username from the update.
func extractUsername(update *tgmodels.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.Username
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.Username
	}
	return ""
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// defaultHandler handles documents and anything that is not a command.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.defaultHandlerCore(ctx, tgBot, update)
}

func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	if update.Message.Document != nil {
		b.handleDocumentCore(ctx, tg, update)
		return
	}

	b.reply(ctx, tg, update.Message.Chat.ID,
		"Send me a statement export as a document with the source as caption, e.g. <code>chase</code>. Use /help to see available commands.")
}

// reply sends an HTML message and logs failures.
func (b *Bot) reply(ctx context.Context, tg TelegramAPI, chatID int64, text string) *tgmodels.Message {
	msg, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to send message")
		return nil
	}
	return msg
}
