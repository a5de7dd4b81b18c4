package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/yelinaung/expense-importer/internal/logger"
	"gitlab.com/yelinaung/expense-importer/internal/models"
	"gitlab.com/yelinaung/expense-importer/internal/repository"
	"gitlab.com/yelinaung/expense-importer/internal/statement"
	"gitlab.com/yelinaung/expense-importer/internal/telemetry"
)

const (
	// DefaultFlushEvery is how many persisted expenses pass between progress writes.
	DefaultFlushEvery = 10

	// finalizeTimeout bounds the writes that record a job's outcome.
	finalizeTimeout = 15 * time.Second

	cancelledMessage = "ingestion cancelled"
)

var tracer = otel.Tracer("gitlab.com/yelinaung/expense-importer/internal/ingest")

// RunnerDeps are the collaborators of a Runner.
type RunnerDeps struct {
	Statements StatementStore
	Expenses   ExpenseStore
	Categories CategoryStore
	Partners   PartnerStore
	Parser     Parser
	Metrics    *telemetry.Metrics
	// FlushEvery defaults to DefaultFlushEvery.
	FlushEvery int
}

// Runner executes one ingestion job at a time per call.
type Runner struct {
	statements StatementStore
	expenses   ExpenseStore
	categories CategoryStore
	partners   PartnerStore
	parser     Parser
	metrics    *telemetry.Metrics
	flushEvery int
}

// NewRunner creates a Runner.
func NewRunner(deps RunnerDeps) *Runner {
	flush := deps.FlushEvery
	if flush <= 0 {
		flush = DefaultFlushEvery
	}
	return &Runner{
		statements: deps.Statements,
		expenses:   deps.Expenses,
		categories: deps.Categories,
		partners:   deps.Partners,
		parser:     deps.Parser,
		metrics:    deps.Metrics,
		flushEvery: flush,
	}
}

// progress is what a job has achieved so far. It survives a panic so the
// final record reflects the work actually done.
type progress struct {
	totalKnown bool
	processed  int
	issues     []models.LineIssue
}

func (p *progress) processedCount() *int {
	if !p.totalKnown {
		return nil
	}
	n := p.processed
	return &n
}

// Run drives a statement from pending to a terminal status. It never returns
// an error: every failure ends up on the statement record.
func (r *Runner) Run(ctx context.Context, job Job) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "ingest.Run",
		trace.WithAttributes(attribute.String("statement.id", job.StatementID)))
	defer span.End()

	log := logger.Log.With().Str("statement_id", job.StatementID).Logger()

	if ctx.Err() != nil {
		// Cancelled while queued.
		r.finish(ctx, job.StatementID, repository.Outcome{
			Status:       models.StatementStatusCancelled,
			ErrorMessage: cancelledMessage,
		}, started, log)
		return
	}

	if err := r.statements.MarkProcessing(ctx, job.StatementID); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			log.Info().Err(err).Msg("Statement is no longer pending, skipping ingestion")
			return
		}
		log.Error().Err(err).Msg("Failed to start ingestion")
		r.finish(ctx, job.StatementID, repository.Outcome{
			Status:       models.StatementStatusFailed,
			ErrorMessage: fmt.Sprintf("failed to start ingestion: %v", err),
		}, started, log)
		return
	}

	p := &progress{}
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("Ingestion panicked")
			span.SetStatus(codes.Error, "panic")
			r.finish(ctx, job.StatementID, repository.Outcome{
				Status:         models.StatementStatusFailed,
				ProcessedCount: p.processedCount(),
				ErrorMessage:   fmt.Sprintf("ingestion panicked: %v", rec),
				Issues:         p.issues,
			}, started, log)
		}
	}()

	outcome := r.process(ctx, job, p, log)
	if outcome.Status == models.StatementStatusFailed {
		span.SetStatus(codes.Error, outcome.ErrorMessage)
	}
	r.finish(ctx, job.StatementID, outcome, started, log)
}

func (r *Runner) process(ctx context.Context, job Job, p *progress, log zerolog.Logger) repository.Outcome {
	failed := func(msg string) repository.Outcome {
		return repository.Outcome{
			Status:         models.StatementStatusFailed,
			ProcessedCount: p.processedCount(),
			ErrorMessage:   msg,
			Issues:         p.issues,
		}
	}
	cancelled := func() repository.Outcome {
		return repository.Outcome{
			Status:         models.StatementStatusCancelled,
			ProcessedCount: p.processedCount(),
			ErrorMessage:   cancelledMessage,
			Issues:         p.issues,
		}
	}

	categories, err := r.categories.GetAll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled()
		}
		return failed(fmt.Sprintf("failed to load categories: %v", err))
	}
	if len(categories) == 0 {
		return failed("no categories configured")
	}

	partnerID, err := r.resolvePartner(ctx, job.PartnerID)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled()
		}
		return failed(err.Error())
	}

	parsed, err := r.parser.Parse(ctx, job.Text, statement.ProfileFor(job.Source), categories)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled()
		}
		return failed(fmt.Sprintf("failed to parse statement: %v", err))
	}
	p.issues = append(p.issues, parsed.Issues...)

	if err := r.statements.SetTotal(ctx, job.StatementID, len(parsed.Transactions)); err != nil {
		if ctx.Err() != nil {
			return cancelled()
		}
		return failed(fmt.Sprintf("failed to record statement total: %v", err))
	}
	p.totalKnown = true

	log.Info().
		Int("transactions", len(parsed.Transactions)).
		Int("issues", len(parsed.Issues)).
		Msg("Persisting statement transactions")

	for _, tx := range parsed.Transactions {
		if ctx.Err() != nil {
			return cancelled()
		}

		expense := &models.Expense{
			Amount:             tx.Amount,
			Description:        tx.Description,
			CategoryID:         tx.CategoryID,
			PartnerID:          partnerID,
			Date:               tx.Date,
			StatementID:        &job.StatementID,
			VerificationStatus: models.VerificationPending,
			OriginalAmount:     tx.OriginalAmount,
			Confidence:         tx.Confidence,
			ClassifiedBy:       tx.ClassifiedBy,
		}
		if err := r.expenses.Create(ctx, expense); err != nil {
			if ctx.Err() != nil {
				return cancelled()
			}
			log.Warn().Err(err).Int("line", tx.Line).Msg("Failed to persist transaction")
			p.issues = append(p.issues, models.LineIssue{
				Line:   tx.Line,
				Kind:   models.IssueFailed,
				Reason: err.Error(),
			})
			continue
		}

		p.processed++
		r.metrics.ExpenseCreated(ctx)
		if p.processed%r.flushEvery == 0 {
			if err := r.statements.UpdateProgress(ctx, job.StatementID, p.processed); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Int("processed", p.processed).Msg("Failed to update progress")
			}
		}
	}

	errCount := 0
	for _, issue := range p.issues {
		if issue.Kind == models.IssueFailed {
			errCount++
		}
	}
	if errCount > 0 {
		return repository.Outcome{
			Status:         models.StatementStatusCompletedWithErrors,
			ProcessedCount: p.processedCount(),
			ErrorMessage:   fmt.Sprintf("%d errors occurred", errCount),
			Issues:         p.issues,
		}
	}
	return repository.Outcome{
		Status:         models.StatementStatusCompleted,
		ProcessedCount: p.processedCount(),
		Issues:         p.issues,
	}
}

func (r *Runner) resolvePartner(ctx context.Context, requested *int) (int, error) {
	if requested != nil {
		partner, err := r.partners.GetByID(ctx, *requested)
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("partner %d not found", *requested)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to load partner: %w", err)
		}
		return partner.ID, nil
	}

	partners, err := r.partners.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load partners: %w", err)
	}
	if len(partners) == 0 {
		return 0, errors.New("no partners configured")
	}
	return partners[0].ID, nil
}

// finish writes the outcome on a context that outlives cancellation.
func (r *Runner) finish(ctx context.Context, id string, o repository.Outcome, started time.Time, log zerolog.Logger) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if err := r.statements.Finish(fctx, id, o); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			log.Debug().Err(err).Msg("Statement already finished")
			return
		}
		log.Error().Err(err).Str("status", string(o.Status)).Msg("Failed to record statement outcome")
		return
	}

	for _, issue := range o.Issues {
		r.metrics.LineIssue(fctx, string(issue.Kind))
	}
	r.metrics.StatementFinished(fctx, string(o.Status), time.Since(started))

	event := log.Info()
	if o.Status == models.StatementStatusFailed {
		event = log.Warn().Str("error", o.ErrorMessage)
	}
	processed := -1
	if o.ProcessedCount != nil {
		processed = *o.ProcessedCount
	}
	event.
		Str("status", string(o.Status)).
		Int("processed", processed).
		Int("issues", len(o.Issues)).
		Dur("elapsed", time.Since(started)).
		Msg("Statement ingestion finished")
}
