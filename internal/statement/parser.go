package statement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"gitlab.com/yelinaung/expense-importer/internal/classifier"
	"gitlab.com/yelinaung/expense-importer/internal/logger"
	"gitlab.com/yelinaung/expense-importer/internal/models"
)

const utf8BOM = "\uFEFF"

var tracer = otel.Tracer("gitlab.com/yelinaung/expense-importer/internal/statement")

// Classifier assigns a category to one description.
type Classifier interface {
	Classify(ctx context.Context, description string, categories []models.Category) classifier.Result
}

// ParseResult holds the usable transactions of a statement, in document order,
// and the lines that were skipped or need attention.
type ParseResult struct {
	Transactions []models.ParsedTransaction
	Issues       []models.LineIssue
}

// Parser converts statement text into classified transactions.
type Parser struct {
	classifier Classifier
	now        func() time.Time
}

// NewParser creates a Parser that stamps undated lines with the current day.
func NewParser(c Classifier) *Parser {
	return &Parser{classifier: c, now: time.Now}
}

// WithClock replaces the clock used for undated lines.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	p.now = now
	return p
}

// Parse reads every data line of text. The first line is a header. A bad line
// becomes an issue and never stops the statement; the only error is ctx's.
func (p *Parser) Parse(ctx context.Context, text string, profile Profile, categories []models.Category) (*ParseResult, error) {
	ctx, span := tracer.Start(ctx, "statement.Parse")
	defer span.End()

	lines := strings.Split(strings.TrimPrefix(text, utf8BOM), "\n")
	result := &ParseResult{}
	if len(lines) == 0 {
		return result, nil
	}

	profile.Delimiter = detectDelimiter(lines[0], profile.Delimiter)
	today := p.now()

	for i := 1; i < len(lines); i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("parse interrupted at line %d: %w", i+1, err)
		}

		raw := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		tx, issue := p.parseLine(ctx, i+1, raw, profile, categories, today)
		if issue != nil {
			result.Issues = append(result.Issues, *issue)
		}
		if tx != nil {
			result.Transactions = append(result.Transactions, *tx)
		}
	}

	span.SetAttributes(
		attribute.Int("statement.transactions", len(result.Transactions)),
		attribute.Int("statement.issues", len(result.Issues)),
	)
	logger.Log.Debug().
		Str("profile", profile.Name).
		Str("date_order", profile.DateOrder.String()).
		Int("transactions", len(result.Transactions)).
		Int("issues", len(result.Issues)).
		Msg("Statement parsed")

	return result, nil
}

// parseLine returns a transaction, an issue, or both when the transaction is
// usable but carries a warning.
func (p *Parser) parseLine(
	ctx context.Context,
	lineNo int,
	raw string,
	profile Profile,
	categories []models.Category,
	today time.Time,
) (tx *models.ParsedTransaction, issue *models.LineIssue) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error().Interface("panic", r).Int("line", lineNo).Msg("Recovered while parsing statement line")
			tx = nil
			issue = &models.LineIssue{Line: lineNo, Kind: models.IssueFailed, Reason: fmt.Sprintf("unexpected error: %v", r)}
		}
	}()

	fields := SplitLine(raw, profile.Delimiter)
	if len(fields) < profile.minColumns() {
		return nil, &models.LineIssue{
			Line:   lineNo,
			Kind:   models.IssueFailed,
			Reason: fmt.Sprintf("expected at least %d columns, found %d", profile.minColumns(), len(fields)),
		}
	}

	description := strings.Join(strings.Fields(fields[profile.DescriptionColumn]), " ")
	if description == "" {
		return nil, &models.LineIssue{Line: lineNo, Kind: models.IssueSkipped, Reason: "empty description"}
	}

	rawAmount := fields[profile.AmountColumn]
	amount := NormalizeAmount(rawAmount)
	if profile.AbsoluteAmounts {
		amount = amount.Abs()
	}
	// Amounts are stored with two decimals.
	amount = amount.Round(2)
	if amount.IsZero() {
		return nil, &models.LineIssue{
			Line:   lineNo,
			Kind:   models.IssueSkipped,
			Reason: fmt.Sprintf("zero or unreadable amount %q", rawAmount),
		}
	}

	date, ok := ParseDate(fields[profile.DateColumn], profile.DateOrder)
	if !ok {
		date = truncateToDate(today)
		issue = &models.LineIssue{
			Line:   lineNo,
			Kind:   models.IssueWarning,
			Reason: fmt.Sprintf("unrecognized date %q, defaulted to %s", fields[profile.DateColumn], date.Format(time.DateOnly)),
		}
	}

	res := p.classifier.Classify(ctx, description, categories)

	return &models.ParsedTransaction{
		Line:           lineNo,
		Date:           date,
		Amount:         amount,
		Description:    description,
		CategoryID:     res.CategoryID,
		Confidence:     res.Confidence,
		ClassifiedBy:   res.Method,
		OriginalAmount: rawAmount,
	}, issue
}

// detectDelimiter switches a comma profile to semicolons or tabs when the
// header clearly uses one of those instead.
func detectDelimiter(header string, delim rune) rune {
	if delim != ',' || strings.ContainsRune(header, ',') {
		return delim
	}
	switch {
	case strings.ContainsRune(header, ';'):
		return ';'
	case strings.ContainsRune(header, '\t'):
		return '\t'
	}
	return delim
}
