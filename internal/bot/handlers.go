package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/expense-importer/internal/ingest"
	"gitlab.com/yelinaung/expense-importer/internal/logger"
)

const (
	cancelCallbackPrefix = "cancel:"
	recentLimit          = 5
)

// formatGreeting returns a greeting suffix with the user's name.
func formatGreeting(firstName string) string {
	if firstName == "" {
		return ""
	}
	return ", " + escapeHTML(firstName)
}

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore is the testable implementation of handleStart.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}

	text := fmt.Sprintf(`👋 Welcome%s!

I import bank and card statement exports into your expenses.

Send a CSV export as a document and put the bank name in the caption, for example <code>chase</code> or <code>hsbc 2</code> to book it for partner 2. I'll keep you posted while it is processed.

Use /help to see all commands.`, formatGreeting(firstName))

	b.reply(ctx, tg, update.Message.Chat.ID, text)
}

// handleHelp handles the /help command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

// handleHelpCore is the testable implementation of handleHelp.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := `📖 <b>Available Commands</b>

<b>Upload:</b>
Send a statement file as a document. Caption: <code>&lt;source&gt; [partner_id]</code>
Each line needs <code>date, description, amount</code> after a header row.

<b>Track:</b>
/status &lt;id&gt; - Show the progress of a statement
/recent - List the latest uploads
/issues &lt;id&gt; - Get the skipped and failed lines as CSV
/cancel &lt;id&gt; - Stop a pending or running import`

	b.reply(ctx, tg, update.Message.Chat.ID, text)
}

// handleStatus handles the /status command.
func (b *Bot) handleStatus(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStatusCore(ctx, tgBot, update)
}

// handleStatusCore is the testable implementation of handleStatus.
func (b *Bot) handleStatusCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id := extractCommandArgs(update.Message.Text, "/status")
	if id == "" {
		b.reply(ctx, tg, chatID, "Usage: <code>/status &lt;id&gt;</code>")
		return
	}

	stmt, err := b.svc.Status(ctx, id)
	if err != nil {
		b.replyError(ctx, tg, chatID, err)
		return
	}

	b.reply(ctx, tg, chatID, formatStatement(stmt))
}

// handleCancel handles the /cancel command.
func (b *Bot) handleCancel(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCancelCore(ctx, tgBot, update)
}

// handleCancelCore is the testable implementation of handleCancel.
func (b *Bot) handleCancelCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id := extractCommandArgs(update.Message.Text, "/cancel")
	if id == "" {
		b.reply(ctx, tg, chatID, "Usage: <code>/cancel &lt;id&gt;</code>")
		return
	}

	stmt, err := b.svc.Cancel(ctx, id)
	if err != nil {
		b.replyError(ctx, tg, chatID, err)
		return
	}

	b.reply(ctx, tg, chatID, "🚫 Cancellation requested.\n\n"+formatStatement(stmt))
}

// handleCancelCallback handles the inline Cancel button of a progress reply.
func (b *Bot) handleCancelCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCancelCallbackCore(ctx, tgBot, update)
}

// handleCancelCallbackCore is the testable implementation of handleCancelCallback.
func (b *Bot) handleCancelCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}

	id := strings.TrimPrefix(query.Data, cancelCallbackPrefix)
	answer := "Cancellation requested"
	if _, err := b.svc.Cancel(ctx, id); err != nil {
		switch {
		case errors.Is(err, ingest.ErrNotCancellable):
			answer = "Already finished"
		case errors.Is(err, ingest.ErrNotFound):
			answer = "Statement not found"
		default:
			logger.Log.Error().Err(err).Str("statement_id", id).Msg("Failed to cancel statement")
			answer = "Could not cancel, please try again"
		}
	}

	if _, err := tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
		Text:            answer,
	}); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to answer callback query")
	}
}

// handleRecent handles the /recent command.
func (b *Bot) handleRecent(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleRecentCore(ctx, tgBot, update)
}

// handleRecentCore is the testable implementation of handleRecent.
func (b *Bot) handleRecentCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	statements, err := b.svc.Recent(ctx, recentLimit)
	if err != nil {
		b.replyError(ctx, tg, chatID, err)
		return
	}

	b.reply(ctx, tg, chatID, formatRecent(statements))
}

// handleIssues handles the /issues command.
func (b *Bot) handleIssues(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleIssuesCore(ctx, tgBot, update)
}

// handleIssuesCore is the testable implementation of handleIssues.
func (b *Bot) handleIssuesCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id := extractCommandArgs(update.Message.Text, "/issues")
	if id == "" {
		b.reply(ctx, tg, chatID, "Usage: <code>/issues &lt;id&gt;</code>")
		return
	}

	stmt, err := b.svc.Status(ctx, id)
	if err != nil {
		b.replyError(ctx, tg, chatID, err)
		return
	}
	if len(stmt.Issues) == 0 {
		b.reply(ctx, tg, chatID, "✅ No issues recorded for this statement.")
		return
	}

	report, err := GenerateIssuesCSV(stmt.Issues)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to write issues CSV")
		b.reply(ctx, tg, chatID, "❌ Failed to build the issue report.")
		return
	}

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: "issues-" + stmt.ID + ".csv",
			Data:     bytes.NewReader(report),
		},
		Caption: fmt.Sprintf("%d issues in %s", len(stmt.Issues), stmt.FileName),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send issues CSV")
		b.reply(ctx, tg, chatID, "❌ Failed to send the issue report.")
	}
}

// replyError maps service errors to user-facing messages.
func (b *Bot) replyError(ctx context.Context, tg TelegramAPI, chatID int64, err error) {
	switch {
	case errors.Is(err, ingest.ErrNotFound):
		b.reply(ctx, tg, chatID, "❓ Statement not found.")
	case errors.Is(err, ingest.ErrNotCancellable):
		b.reply(ctx, tg, chatID, "ℹ️ This statement has already finished.")
	case errors.Is(err, ingest.ErrQueueFull), errors.Is(err, ingest.ErrQueueClosed):
		b.reply(ctx, tg, chatID, "⏳ Too many imports are running right now. Please try again in a minute.")
	case errors.Is(err, ingest.ErrTooLarge):
		b.reply(ctx, tg, chatID, "📦 That file is too large to import.")
	case errors.Is(err, ingest.ErrInvalidUpload):
		b.reply(ctx, tg, chatID, "❌ "+escapeHTML(strings.TrimPrefix(err.Error(), ingest.ErrInvalidUpload.Error()+": ")))
	default:
		logger.Log.Error().Err(err).Msg("Statement request failed")
		b.reply(ctx, tg, chatID, "❌ Something went wrong. Please try again.")
	}
}
