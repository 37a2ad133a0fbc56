// Package record represents hydrated entity rows: a typed attribute bag keyed
// by logical field name, an extras side-channel carrying synthetic columns
// (such as the pivot alias projected by eager loads), and per-relation
// collections attached after grouping.
package record

import (
	"throughline/internal/schema"
)

// Record is one hydrated row of an entity.
type Record struct {
	entity  *schema.Entity
	attrs   map[string]any
	extras  map[string]any
	related map[string][]*Record
}

// New creates an empty record bound to an entity definition.
func New(entity *schema.Entity) *Record {
	return &Record{
		entity: entity,
		attrs:  make(map[string]any),
		extras: make(map[string]any),
	}
}

// NewWithAttrs creates a record pre-populated with attribute values.
func NewWithAttrs(entity *schema.Entity, attrs map[string]any) *Record {
	r := New(entity)
	for k, v := range attrs {
		r.attrs[k] = v
	}
	return r
}

// Entity returns the entity definition this record belongs to.
func (r *Record) Entity() *schema.Entity { return r.entity }

// Get returns an attribute value by logical field name.
func (r *Record) Get(field string) (any, bool) {
	v, ok := r.attrs[field]
	return v, ok
}

// Set stores an attribute value.
func (r *Record) Set(field string, value any) {
	r.attrs[field] = value
}

// Extra returns a synthetic side-channel value by key.
func (r *Record) Extra(key string) (any, bool) {
	v, ok := r.extras[key]
	return v, ok
}

// SetExtra stores a synthetic side-channel value.
func (r *Record) SetExtra(key string, value any) {
	r.extras[key] = value
}

// Related returns the loaded collection for a relation name. The second return
// reports whether the relation has been loaded at all: a loaded-but-empty
// relation returns (nil, true).
func (r *Record) Related(name string) ([]*Record, bool) {
	if r.related == nil {
		return nil, false
	}
	rows, ok := r.related[name]
	return rows, ok
}

// SetRelated attaches a loaded collection under a relation name.
func (r *Record) SetRelated(name string, rows []*Record) {
	if r.related == nil {
		r.related = make(map[string][]*Record)
	}
	r.related[name] = rows
}
