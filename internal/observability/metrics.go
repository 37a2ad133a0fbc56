// Package observability holds the relation engine's custom metrics, built on
// the OpenTelemetry metric API. A nil *RelationMetrics is a valid no-op
// receiver so callers can leave instrumentation unconfigured.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RelationMetrics holds custom metrics for relation queries and eager loads.
type RelationMetrics struct {
	eagerLoads     metric.Int64Counter
	ownerCount     metric.Int64Histogram
	resultRows     metric.Int64Histogram
	queriesSaved   metric.Int64Counter
	droppedRows    metric.Int64Counter
	mutationRows   metric.Int64Histogram
	mutationErrors metric.Int64Counter
}

// InitRelationMetrics initializes relation-specific metrics.
func InitRelationMetrics() (*RelationMetrics, error) {
	meter := otel.Meter("throughline")

	eagerLoads, err := meter.Int64Counter(
		"relation.eager_loads.total",
		metric.WithDescription("Total number of batched eager loads executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create eager loads counter: %w", err)
	}

	ownerCount, err := meter.Int64Histogram(
		"relation.eager_load.owner_count",
		metric.WithDescription("Number of owner records included in one eager load"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create owner count histogram: %w", err)
	}

	resultRows, err := meter.Int64Histogram(
		"relation.eager_load.result_rows",
		metric.WithDescription("Number of related rows returned by one eager load"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create result rows histogram: %w", err)
	}

	queriesSaved, err := meter.Int64Counter(
		"relation.eager_load.queries_saved",
		metric.WithDescription("Number of per-owner queries avoided by batching"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create queries saved counter: %w", err)
	}

	droppedRows, err := meter.Int64Counter(
		"relation.eager_load.dropped_rows",
		metric.WithDescription("Number of fetched rows matching no owner record"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dropped rows counter: %w", err)
	}

	mutationRows, err := meter.Int64Histogram(
		"relation.mutation.rows_affected",
		metric.WithDescription("Number of rows affected by bulk relation mutations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mutation rows histogram: %w", err)
	}

	mutationErrors, err := meter.Int64Counter(
		"relation.mutation.errors",
		metric.WithDescription("Total number of failed bulk relation mutations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mutation errors counter: %w", err)
	}

	return &RelationMetrics{
		eagerLoads:     eagerLoads,
		ownerCount:     ownerCount,
		resultRows:     resultRows,
		queriesSaved:   queriesSaved,
		droppedRows:    droppedRows,
		mutationRows:   mutationRows,
		mutationErrors: mutationErrors,
	}, nil
}

// RecordEagerLoad records one completed eager load for a relation.
func (m *RelationMetrics) RecordEagerLoad(ctx context.Context, relation string, owners, rows int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("relation", relation))
	m.eagerLoads.Add(ctx, 1, attrs)
	m.ownerCount.Record(ctx, owners, attrs)
	m.resultRows.Record(ctx, rows, attrs)
}

// RecordQueriesSaved records how many per-owner queries one batch replaced.
func (m *RelationMetrics) RecordQueriesSaved(ctx context.Context, relation string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.queriesSaved.Add(ctx, count, metric.WithAttributes(
		attribute.String("relation", relation),
	))
}

// RecordDroppedRows records eager-load rows that matched no owner.
func (m *RelationMetrics) RecordDroppedRows(ctx context.Context, relation string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.droppedRows.Add(ctx, count, metric.WithAttributes(
		attribute.String("relation", relation),
	))
}

// RecordMutation records a bulk UPDATE or DELETE outcome.
func (m *RelationMetrics) RecordMutation(ctx context.Context, relation, kind string, rowsAffected int64, failed bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("relation", relation),
		attribute.String("kind", kind),
	)
	if failed {
		m.mutationErrors.Add(ctx, 1, attrs)
		return
	}
	m.mutationRows.Record(ctx, rowsAffected, attrs)
}

// InitMetrics initializes all custom metrics and returns the RelationMetrics
// instance.
func InitMetrics(logger *slog.Logger) (*RelationMetrics, error) {
	metrics, err := InitRelationMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize relation metrics: %w", err)
	}

	logger.Info("custom relation metrics initialized")
	return metrics, nil
}
