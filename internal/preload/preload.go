// Package preload runs batched eager loads: one query (or a handful of
// chunked queries) hydrates a relation for a whole set of owner records,
// replacing the per-owner query storm.
package preload

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"throughline/internal/dbexec"
	"throughline/internal/logging"
	"throughline/internal/observability"
	"throughline/internal/record"
	"throughline/internal/relation"
)

// DefaultMaxInClause caps how many key values one IN clause carries before the
// batch splits into multiple queries.
const DefaultMaxInClause = 1000

// Refine adjusts an eager-load builder before execution, typically to add
// ordering or extra predicates. It runs once per chunk.
type Refine func(*relation.Builder)

// Preloader executes eager loads against one client.
type Preloader struct {
	client  *dbexec.Client
	metrics *observability.RelationMetrics
	maxIn   int
}

// NewPreloader creates a preloader. metrics may be nil; maxIn values below 1
// fall back to DefaultMaxInClause.
func NewPreloader(client *dbexec.Client, metrics *observability.RelationMetrics, maxIn int) *Preloader {
	if maxIn <= 0 {
		maxIn = DefaultMaxInClause
	}
	return &Preloader{client: client, metrics: metrics, maxIn: maxIn}
}

// Preload boots the relation, fetches all related rows for owners in one
// batched query per chunk, and attaches the grouped results to each owner.
// Owners without matches receive empty collections. Execution errors propagate
// unchanged; on error no owner is modified.
func (p *Preloader) Preload(ctx context.Context, rel *relation.HasManyThrough, owners []*record.Record, refine ...Refine) error {
	if err := rel.Boot(); err != nil {
		return err
	}
	if len(owners) == 0 {
		return nil
	}

	batchID := uuid.NewString()
	ctx, span := startPreloadSpan(ctx, "relation.eager_load",
		attribute.String("relation.name", rel.Relation()),
		attribute.String("relation.batch_id", batchID),
		attribute.Int("relation.owner_count", len(owners)),
	)
	var err error
	defer func() { finishPreloadSpan(span, err) }()

	logger := logging.FromContext(ctx).WithRelation(rel.Relation())

	values := rel.LocalKeyValues(owners)
	if len(values) == 0 {
		// No owner carries a usable key value; every collection is empty.
		rel.GroupOntoOwners(owners, nil)
		return nil
	}

	chunks := chunkValues(values, p.maxIn)
	span.SetAttributes(attribute.Int("relation.chunk_count", len(chunks)))
	p.metrics.RecordQueriesSaved(ctx, rel.Relation(), int64(len(values)-len(chunks)))

	var rows []*record.Record
	for _, chunk := range chunks {
		var b *relation.Builder
		b, err = rel.EagerQueryValues(chunk, p.client)
		if err != nil {
			return err
		}
		for _, fn := range refine {
			fn(b)
		}

		var fetched []*record.Record
		fetched, err = b.Fetch(ctx)
		if err != nil {
			return err
		}
		rows = append(rows, fetched...)
	}

	dropped := rel.GroupOntoOwners(owners, rows)
	p.metrics.RecordEagerLoad(ctx, rel.Relation(), int64(len(owners)), int64(len(rows)))
	p.metrics.RecordDroppedRows(ctx, rel.Relation(), int64(dropped))

	if dropped > 0 {
		logger.Warn("eager load dropped rows matching no owner",
			"batch_id", batchID, "dropped", dropped)
	}
	logger.Debug("eager load complete",
		"batch_id", batchID,
		"owners", len(owners),
		"key_values", len(values),
		"chunks", len(chunks),
		"rows", len(rows))
	return nil
}

// chunkValues splits values into slices of at most max entries.
func chunkValues(values []any, max int) [][]any {
	if len(values) == 0 {
		return nil
	}
	if max <= 0 || len(values) <= max {
		return [][]any{values}
	}
	chunks := make([][]any, 0, (len(values)+max-1)/max)
	for start := 0; start < len(values); start += max {
		end := start + max
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}
