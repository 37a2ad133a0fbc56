// Package schema describes entity metadata consumed read-only by the relation
// engine: a named table with an ordered mapping from logical field names to
// physical columns, and a primary-key flag.
package schema

import (
	"fmt"

	"throughline/internal/naming"
)

// Field maps a logical field name to its physical column.
type Field struct {
	Name       string
	Column     string
	PrimaryKey bool
}

// Entity represents one mapped table.
type Entity struct {
	// Name is the logical entity name, e.g. "User".
	Name string
	// Table is the physical table name, e.g. "users".
	Table string
	// Fields holds the mapped fields in declaration order.
	Fields []Field
}

// NewEntity builds a validated Entity. When table is empty, the conventional
// table name is derived from the entity name (snake_case, pluralized).
// Composite primary keys are unsupported: declaring more than one primary-key
// field is a configuration error.
func NewEntity(name, table string, fields []Field) (*Entity, error) {
	if name == "" {
		return nil, fmt.Errorf("entity name cannot be empty")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("entity %s declares no fields", name)
	}
	if table == "" {
		table = naming.Default().TableName(name)
	}

	seen := make(map[string]struct{}, len(fields))
	pkCount := 0
	for i := range fields {
		f := &fields[i]
		if f.Name == "" {
			return nil, fmt.Errorf("entity %s declares a field with no name", name)
		}
		if f.Column == "" {
			f.Column = naming.ToSnakeCase(f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("entity %s declares duplicate field %s", name, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.PrimaryKey {
			pkCount++
		}
	}
	if pkCount > 1 {
		return nil, fmt.Errorf("entity %s declares a composite primary key; composite keys are unsupported", name)
	}

	return &Entity{Name: name, Table: table, Fields: fields}, nil
}

// MustNewEntity is NewEntity, panicking on configuration errors. Intended for
// package-level entity definitions.
func MustNewEntity(name, table string, fields []Field) *Entity {
	e, err := NewEntity(name, table, fields)
	if err != nil {
		panic(err)
	}
	return e
}

// PrimaryField returns the primary-key field, if the entity declares one.
func (e *Entity) PrimaryField() *Field {
	for i := range e.Fields {
		if e.Fields[i].PrimaryKey {
			return &e.Fields[i]
		}
	}
	return nil
}

// FieldByName looks up a field by its logical name.
func (e *Entity) FieldByName(name string) (*Field, bool) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i], true
		}
	}
	return nil, false
}

// ColumnFor returns the physical column for a logical field name.
func (e *Entity) ColumnFor(fieldName string) (string, bool) {
	f, ok := e.FieldByName(fieldName)
	if !ok {
		return "", false
	}
	return f.Column, true
}

// Columns returns the physical column names in field declaration order.
func (e *Entity) Columns() []string {
	cols := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		cols[i] = f.Column
	}
	return cols
}
