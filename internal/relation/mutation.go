package relation

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// ErrEagerMutation is returned when Del or Update is invoked on a builder
// constructed for a batch of records; bulk mutations are scoped to exactly one
// local record.
var ErrEagerMutation = errors.New("bulk mutations require a single-record builder")

// keySubquery builds the correlated-subquery filter shared by Del and Update:
//
//	related.throughForeignKey IN (SELECT throughLocalKey FROM through WHERE through.foreignKey = ?)
//
// A subquery rather than a join, because UPDATE/DELETE in the supported
// dialects cannot reference a joined table in their filter.
func (b *Builder) keySubquery() string {
	rel := b.rel
	d := b.client.Dialect()
	return fmt.Sprintf(
		"%s IN (SELECT %s FROM %s WHERE %s = ?)",
		d.Qualify(rel.related.Table, rel.resolved.ThroughForeign.Column),
		d.QuoteIdentifier(rel.resolved.ThroughLocal.Column),
		d.QuoteIdentifier(rel.through.Table),
		d.Qualify(rel.through.Table, rel.resolved.Foreign.Column),
	)
}

// ToDeleteSQL compiles the bulk DELETE scoped to the builder's local record.
func (b *Builder) ToDeleteSQL() (string, []any, error) {
	if b.eager {
		return "", nil, ErrEagerMutation
	}
	d := b.client.Dialect()

	del := sq.Delete(d.QuoteIdentifier(b.rel.related.Table)).
		Where(sq.Expr(b.keySubquery(), b.keyValues[0])).
		PlaceholderFormat(d.Placeholder())
	return del.ToSql()
}

// Del executes the bulk DELETE on the write connection and returns the number
// of affected rows. No related rows are fetched before or after.
func (b *Builder) Del(ctx context.Context) (int64, error) {
	query, args, err := b.ToDeleteSQL()
	if err != nil {
		return 0, err
	}

	res, err := b.client.Writer().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ToUpdateSQL compiles the bulk UPDATE scoped to the builder's local record.
// attrs maps logical related-entity field names to values.
func (b *Builder) ToUpdateSQL(attrs map[string]any) (string, []any, error) {
	if b.eager {
		return "", nil, ErrEagerMutation
	}
	if len(attrs) == 0 {
		return "", nil, fmt.Errorf("relation %s: update requires at least one attribute", b.rel.Relation())
	}
	d := b.client.Dialect()

	setMap := make(map[string]any, len(attrs))
	for field, value := range attrs {
		col, ok := b.rel.related.ColumnFor(field)
		if !ok {
			return "", nil, fmt.Errorf("relation %s: unknown field %s on %s", b.rel.Relation(), field, b.rel.related.Name)
		}
		setMap[d.QuoteIdentifier(col)] = value
	}

	upd := sq.Update(d.QuoteIdentifier(b.rel.related.Table)).
		SetMap(setMap).
		Where(sq.Expr(b.keySubquery(), b.keyValues[0])).
		PlaceholderFormat(d.Placeholder())
	return upd.ToSql()
}

// Update executes the bulk UPDATE on the write connection and returns the
// number of affected rows.
func (b *Builder) Update(ctx context.Context, attrs map[string]any) (int64, error) {
	query, args, err := b.ToUpdateSQL(attrs)
	if err != nil {
		return 0, err
	}

	res, err := b.client.Writer().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
