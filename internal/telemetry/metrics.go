package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for the importer's instruments.
const MeterName = "gitlab.com/yelinaung/expense-importer"

// Metrics holds the importer's instruments. A nil *Metrics records nothing.
type Metrics struct {
	statements      metric.Int64Counter
	expenses        metric.Int64Counter
	lineIssues      metric.Int64Counter
	classifications metric.Int64Counter
	jobDuration     metric.Float64Histogram
	queueRejections metric.Int64Counter
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(MeterName))
}

// NewMetricsWithMeter creates the instruments on meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.statements, err = meter.Int64Counter("importer.statements.finished",
		metric.WithDescription("Statements that reached a terminal status")); err != nil {
		return nil, fmt.Errorf("failed to create statements counter: %w", err)
	}
	if m.expenses, err = meter.Int64Counter("importer.expenses.created",
		metric.WithDescription("Expenses persisted from statements")); err != nil {
		return nil, fmt.Errorf("failed to create expenses counter: %w", err)
	}
	if m.lineIssues, err = meter.Int64Counter("importer.line_issues",
		metric.WithDescription("Statement lines that were skipped, warned about or failed")); err != nil {
		return nil, fmt.Errorf("failed to create line issues counter: %w", err)
	}
	if m.classifications, err = meter.Int64Counter("importer.classifications",
		metric.WithDescription("Transactions classified, by method")); err != nil {
		return nil, fmt.Errorf("failed to create classifications counter: %w", err)
	}
	if m.jobDuration, err = meter.Float64Histogram("importer.job.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall time of one ingestion job")); err != nil {
		return nil, fmt.Errorf("failed to create job duration histogram: %w", err)
	}
	if m.queueRejections, err = meter.Int64Counter("importer.queue.rejections",
		metric.WithDescription("Uploads rejected because the ingestion queue was full")); err != nil {
		return nil, fmt.Errorf("failed to create queue rejections counter: %w", err)
	}

	return &m, nil
}

// StatementFinished records a terminal status and how long the job ran.
func (m *Metrics) StatementFinished(ctx context.Context, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.statements.Add(ctx, 1, attrs)
	m.jobDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// ExpenseCreated counts one persisted expense.
func (m *Metrics) ExpenseCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.expenses.Add(ctx, 1)
}

// LineIssue counts one issue of the given kind.
func (m *Metrics) LineIssue(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.lineIssues.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// Classified counts one classification by method.
func (m *Metrics) Classified(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.classifications.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// QueueRejected counts one upload turned away by a full queue.
func (m *Metrics) QueueRejected(ctx context.Context) {
	if m == nil {
		return
	}
	m.queueRejections.Add(ctx, 1)
}
