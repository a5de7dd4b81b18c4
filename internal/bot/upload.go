package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/expense-importer/internal/ingest"
	"gitlab.com/yelinaung/expense-importer/internal/logger"
	appmodels "gitlab.com/yelinaung/expense-importer/internal/models"
)

// handleDocumentCore uploads a statement document and follows its progress.
func (b *Bot) handleDocumentCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	msg := update.Message
	chatID := msg.Chat.ID
	doc := msg.Document

	source, partnerID := parseCaption(msg.Caption)
	if source == "" {
		b.reply(ctx, tg, chatID, "Please resend the file with the statement source as caption, e.g. <code>chase</code> or <code>hsbc 2</code>.")
		return
	}

	limit := b.svc.MaxUploadBytes()
	if doc.FileSize > limit {
		b.reply(ctx, tg, chatID, fmt.Sprintf("📦 That file is too large. The limit is %d KB.", limit>>10))
		return
	}

	content, err := b.downloadDocument(ctx, tg, doc.FileID, limit)
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to download statement")
		if errors.Is(err, ingest.ErrTooLarge) {
			b.replyError(ctx, tg, chatID, err)
			return
		}
		b.reply(ctx, tg, chatID, "❌ Failed to download the file. Please try again.")
		return
	}

	stmt, err := b.svc.Upload(ctx, ingest.UploadRequest{
		FileName:  doc.FileName,
		Source:    source,
		PartnerID: partnerID,
		Content:   content,
	})
	if err != nil {
		b.replyError(ctx, tg, chatID, err)
		return
	}

	sent, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        formatStatement(stmt),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: cancelKeyboard(stmt.ID),
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("statement_id", stmt.ID).Msg("Failed to send upload confirmation")
		return
	}

	b.watchers.Add(1)
	go func() {
		defer b.watchers.Done()
		b.watchStatement(ctx, tg, chatID, sent.ID, stmt)
	}()
}

// downloadDocument fetches a Telegram file, reading at most limit bytes.
func (b *Bot) downloadDocument(ctx context.Context, tg TelegramAPI, fileID string, limit int64) ([]byte, error) {
	file, err := tg.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tg.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ingest.ErrTooLarge, limit)
	}
	return data, nil
}

func cancelKeyboard(id string) models.ReplyMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "🚫 Cancel import", CallbackData: cancelCallbackPrefix + id}},
		},
	}
}

// watchStatement edits the progress reply until the statement reaches a
// terminal status or ctx ends. Unchanged renders are not re-sent.
func (b *Bot) watchStatement(ctx context.Context, tg TelegramAPI, chatID int64, messageID int, stmt *appmodels.Statement) {
	last := formatStatement(stmt)
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		current, err := b.svc.Status(ctx, stmt.ID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Log.Warn().Err(err).Str("statement_id", stmt.ID).Msg("Failed to poll statement status")
			continue
		}

		text := formatStatement(current)
		terminal := current.Status.IsTerminal()
		if text != last {
			params := &bot.EditMessageTextParams{
				ChatID:    chatID,
				MessageID: messageID,
				Text:      text,
				ParseMode: models.ParseModeHTML,
			}
			if !terminal {
				params.ReplyMarkup = cancelKeyboard(stmt.ID)
			}
			if _, err := tg.EditMessageText(ctx, params); err != nil {
				logger.Log.Warn().Err(err).Str("statement_id", stmt.ID).Msg("Failed to update progress message")
			} else {
				last = text
			}
		}

		if terminal {
			return
		}
	}
}
