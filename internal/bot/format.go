package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gitlab.com/yelinaung/expense-importer/internal/models"
)

// maxIssuesShown caps the issues listed inline; /issues sends the full list.
const maxIssuesShown = 5

// escapeHTML escapes HTML special characters for safe interpolation in Telegram HTML messages.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// extractCommandArgs strips the /command prefix (and optional @botname suffix)
// from a message and returns the remaining trimmed arguments.
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.Index(args, " "); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

// commandName returns the leading /command of text, or "" for free text.
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name, _, _ := strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "@")
	return name
}

// parseCaption reads "<source> [partner_id]". A trailing positive integer is
// the partner; everything before it is the source label.
func parseCaption(caption string) (source string, partnerID *int) {
	fields := strings.Fields(caption)
	if len(fields) == 0 {
		return "", nil
	}
	if len(fields) > 1 {
		if id, err := strconv.Atoi(fields[len(fields)-1]); err == nil && id > 0 {
			return strings.Join(fields[:len(fields)-1], " "), &id
		}
	}
	return strings.Join(fields, " "), nil
}

func statusEmoji(s models.StatementStatus) string {
	switch s {
	case models.StatementStatusPending:
		return "⏳"
	case models.StatementStatusProcessing:
		return "⚙️"
	case models.StatementStatusCompleted:
		return "✅"
	case models.StatementStatusCompletedWithErrors:
		return "⚠️"
	case models.StatementStatusFailed:
		return "❌"
	case models.StatementStatusCancelled:
		return "🚫"
	default:
		return "❔"
	}
}

// formatProgress renders "processed/total", or "…" before the total is known.
func formatProgress(stmt *models.Statement) string {
	if stmt.TotalCount == nil {
		return "…"
	}
	processed := 0
	if stmt.ProcessedCount != nil {
		processed = *stmt.ProcessedCount
	}
	return fmt.Sprintf("%d/%d", processed, *stmt.TotalCount)
}

// formatStatement renders a statement record as an HTML message.
func formatStatement(stmt *models.Statement) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s <b>%s</b>\n", statusEmoji(stmt.Status), escapeHTML(stmt.FileName))
	fmt.Fprintf(&sb, "ID: <code>%s</code>\n", escapeHTML(stmt.ID))
	fmt.Fprintf(&sb, "Source: %s\n", escapeHTML(stmt.Source))
	fmt.Fprintf(&sb, "Status: %s\n", strings.ReplaceAll(string(stmt.Status), "_", " "))
	fmt.Fprintf(&sb, "Progress: %s", formatProgress(stmt))

	if stmt.ErrorMessage != nil && *stmt.ErrorMessage != "" {
		fmt.Fprintf(&sb, "\nError: %s", escapeHTML(*stmt.ErrorMessage))
	}

	if len(stmt.Issues) > 0 {
		fmt.Fprintf(&sb, "\n\n<b>Issues (%d)</b>", len(stmt.Issues))
		for i, issue := range stmt.Issues {
			if i == maxIssuesShown {
				fmt.Fprintf(&sb, "\n… and %d more, use /issues %s", len(stmt.Issues)-maxIssuesShown, escapeHTML(stmt.ID))
				break
			}
			fmt.Fprintf(&sb, "\n• line %d, %s: %s", issue.Line, issue.Kind, escapeHTML(issue.Reason))
		}
	}

	if stmt.ProcessedAt != nil {
		fmt.Fprintf(&sb, "\n\nFinished in %s", stmt.ProcessedAt.Sub(stmt.UploadedAt).Round(time.Second))
	}

	return sb.String()
}

// formatRecent renders one line per statement.
func formatRecent(statements []models.Statement) string {
	if len(statements) == 0 {
		return "No statements uploaded yet."
	}

	var sb strings.Builder
	sb.WriteString("📄 <b>Recent statements</b>\n")
	for _, stmt := range statements {
		fmt.Fprintf(&sb, "\n%s %s · %s · %s\n<code>%s</code>",
			statusEmoji(stmt.Status),
			escapeHTML(stmt.FileName),
			escapeHTML(stmt.Source),
			formatProgress(&stmt),
			escapeHTML(stmt.ID),
		)
	}
	return sb.String()
}
