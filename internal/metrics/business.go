package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics defines the interface for recording business operation metrics.
// Implementations track operation counts and durations for observability across
// the lifecycle engine, the EDI codec and the intake watcher.
type BusinessMetrics interface {
	// RecordOperation records a business operation with its status.
	// Domain examples: "transaction", "edi", "intake"
	// Operation examples: "create", "send", "recover_stuck"
	// Status examples: "success", "error"
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the duration of a business operation with its status.
	// Duration is recorded in seconds as a histogram for percentile calculations.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordStageEntry counts a transaction arriving in a lifecycle folder.
	RecordStageEntry(ctx context.Context, stage string)

	// RecordContentSize observes the size in bytes of stored interchange content.
	RecordContentSize(ctx context.Context, documentType string, size int64)
}

// businessMetrics implements BusinessMetrics using OpenTelemetry metrics.
type businessMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	stageCounter     metric.Int64Counter
	contentHisto     metric.Int64Histogram
}

// NewBusinessMetrics creates a new BusinessMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names (e.g., "edibox").
// Returns error if meters cannot be initialized.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	// Create counter for total operations
	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of business operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	// Create histogram for operation durations
	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of business operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	stageCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_stage_entries_total", namespace),
		metric.WithDescription("Transactions entering each lifecycle stage"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage counter: %w", err)
	}

	contentHisto, err := meter.Int64Histogram(
		fmt.Sprintf("%s_content_size_bytes", namespace),
		metric.WithDescription("Size of stored interchange content"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(1<<10, 8<<10, 64<<10, 512<<10, 4<<20, 32<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create content size histogram: %w", err)
	}

	return &businessMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		stageCounter:     stageCounter,
		contentHisto:     contentHisto,
	}, nil
}

// RecordOperation increments the operation counter with domain, operation, and status labels.
func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordDuration records the operation duration in seconds with domain, operation, and status labels.
func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordStageEntry increments the stage counter for stage.
func (b *businessMetrics) RecordStageEntry(ctx context.Context, stage string) {
	b.stageCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordContentSize records size under the document_type label. Unknown types share one series.
func (b *businessMetrics) RecordContentSize(ctx context.Context, documentType string, size int64) {
	if documentType == "" {
		documentType = "unknown"
	}
	b.contentHisto.Record(ctx, size, metric.WithAttributes(attribute.String("document_type", documentType)))
}

// NoOpBusinessMetrics is a no-op implementation of BusinessMetrics for when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

// RecordOperation does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	// No-op
}

// RecordDuration does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	// No-op
}

// RecordStageEntry does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordStageEntry(ctx context.Context, stage string) {}

// RecordContentSize does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordContentSize(ctx context.Context, documentType string, size int64) {}
