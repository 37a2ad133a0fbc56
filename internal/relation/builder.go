package relation

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"throughline/internal/dbexec"
	"throughline/internal/record"
)

// ErrNoKeyValues is returned when an eager query is requested for a set of
// records none of which carries a usable local-key value.
var ErrNoKeyValues = errors.New("no local key values to load")

// Builder is a relation-scoped query builder. It wraps a squirrel SELECT over
// the related table and applies the relation constraints (the through-table
// join plus the key filter) lazily and exactly once, so callers can refine the
// query with Where/OrderBy/Limit before constraints merge in.
//
// Builders are single-use, non-shared objects; construct a fresh one per call.
type Builder struct {
	rel       *HasManyThrough
	client    *dbexec.Client
	keyValues []any
	eager     bool
	applied   bool
	sel       sq.SelectBuilder
}

// Query builds the fetch query for one local record: related rows reachable
// from that record's local-key value. The relation must be booted.
func (r *HasManyThrough) Query(rec *record.Record, client *dbexec.Client) (*Builder, error) {
	r.mustBeBooted("Query")

	value, ok := rec.Get(r.resolved.Local.Field)
	if !ok || value == nil {
		return nil, fmt.Errorf("relation %s: record has no %s value", r.Relation(), r.resolved.Local.Field)
	}
	return r.newBuilder(client, []any{value}, false), nil
}

// EagerQuery builds one batched fetch query for a set of local records, using
// an IN filter over their deduplicated, order-preserved local-key values.
// The relation must be booted.
func (r *HasManyThrough) EagerQuery(recs []*record.Record, client *dbexec.Client) (*Builder, error) {
	r.mustBeBooted("EagerQuery")
	return r.EagerQueryValues(r.LocalKeyValues(recs), client)
}

// EagerQueryValues builds a batched fetch query for an explicit slice of
// local-key values. Callers chunking a large batch across several queries use
// this directly. The relation must be booted.
func (r *HasManyThrough) EagerQueryValues(values []any, client *dbexec.Client) (*Builder, error) {
	r.mustBeBooted("EagerQueryValues")

	if len(values) == 0 {
		return nil, ErrNoKeyValues
	}
	return r.newBuilder(client, values, true), nil
}

// LocalKeyValues collects the distinct non-nil local-key values of recs,
// preserving first-seen order. The relation must be booted.
func (r *HasManyThrough) LocalKeyValues(recs []*record.Record) []any {
	r.mustBeBooted("LocalKeyValues")
	return dedupKeyValues(recs, r.resolved.Local.Field)
}

func (r *HasManyThrough) newBuilder(client *dbexec.Client, values []any, eager bool) *Builder {
	d := client.Dialect()

	cols := make([]string, 0, len(r.related.Fields)+1)
	for _, f := range r.related.Fields {
		cols = append(cols, d.Qualify(r.related.Table, f.Column))
	}
	cols = append(cols, fmt.Sprintf(
		"%s AS %s",
		d.Qualify(r.through.Table, r.resolved.Foreign.Column),
		d.QuoteIdentifier(r.pivotAlias),
	))

	sel := sq.Select(cols...).
		From(d.QuoteIdentifier(r.related.Table)).
		PlaceholderFormat(d.Placeholder())

	return &Builder{
		rel:       r,
		client:    client,
		keyValues: values,
		eager:     eager,
		sel:       sel,
	}
}

// ApplyConstraints merges the relation constraints into the query: the inner
// join from related to through, and the key filter on the through table's
// foreign key. Idempotent; ToSQL and Fetch call it implicitly.
func (b *Builder) ApplyConstraints() *Builder {
	if b.applied {
		return b
	}
	b.applied = true

	rel := b.rel
	d := b.client.Dialect()

	join := fmt.Sprintf(
		"%s ON %s = %s",
		d.QuoteIdentifier(rel.through.Table),
		d.Qualify(rel.through.Table, rel.resolved.ThroughLocal.Column),
		d.Qualify(rel.related.Table, rel.resolved.ThroughForeign.Column),
	)
	b.sel = b.sel.InnerJoin(join)

	fk := d.Qualify(rel.through.Table, rel.resolved.Foreign.Column)
	if b.eager {
		b.sel = b.sel.Where(sq.Eq{fk: b.keyValues})
	} else {
		b.sel = b.sel.Where(sq.Eq{fk: b.keyValues[0]})
	}
	return b
}

// Where adds a predicate to the query. Arguments pass through to squirrel.
func (b *Builder) Where(pred any, args ...any) *Builder {
	b.sel = b.sel.Where(pred, args...)
	return b
}

// OrderBy adds ORDER BY clauses. Callers needing deterministic per-owner
// ordering of eager results must set one before execution.
func (b *Builder) OrderBy(clauses ...string) *Builder {
	b.sel = b.sel.OrderBy(clauses...)
	return b
}

// Limit adds a LIMIT clause.
func (b *Builder) Limit(n uint64) *Builder {
	b.sel = b.sel.Limit(n)
	return b
}

// Offset adds an OFFSET clause.
func (b *Builder) Offset(n uint64) *Builder {
	b.sel = b.sel.Offset(n)
	return b
}

// ToSQL compiles the fetch query, applying relation constraints first.
func (b *Builder) ToSQL() (string, []any, error) {
	b.ApplyConstraints()
	return b.sel.ToSql()
}

// Fetch executes the query on the read connection and hydrates the related
// rows, each carrying the pivot alias value in its extras bag. Execution
// errors propagate unchanged.
func (b *Builder) Fetch(ctx context.Context) ([]*record.Record, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := b.client.Reader().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return record.ScanRecords(rows, b.rel.related, []string{b.rel.pivotAlias})
}

// dedupKeyValues collects the distinct non-nil values of field across recs,
// preserving first-seen order.
func dedupKeyValues(recs []*record.Record, field string) []any {
	seen := make(map[string]struct{})
	values := make([]any, 0, len(recs))

	for _, rec := range recs {
		raw, ok := rec.Get(field)
		if !ok || raw == nil {
			continue
		}
		normalized := fmt.Sprint(raw)
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		values = append(values, raw)
	}

	return values
}
