// Package relation implements the has-many-through relation engine: a
// declarative descriptor resolving the join chain local -> through -> related,
// plus the builders that turn it into single-row queries, batched eager-load
// queries, and correlated-subquery bulk mutations.
package relation

import (
	"fmt"
	"sync"

	"throughline/internal/keys"
	"throughline/internal/naming"
	"throughline/internal/schema"
)

// Definition declares one has-many-through relation on a local entity.
type Definition struct {
	// Name is the relation field name on the local entity, e.g. "posts".
	Name string
	// Local is the entity owning the declaration.
	Local *schema.Entity
	// Related lazily resolves the entity ultimately being fetched.
	Related schema.Factory
	// Through lazily resolves the intermediate entity.
	Through schema.Factory
	// Keys optionally overrides the conventional key fields.
	Keys keys.Overrides
}

// HasManyThrough is an immutable, lazily-initialized relation descriptor.
// Construction is cheap and performs no I/O; Boot resolves the lazy entity
// references and validates the join keys exactly once. After a successful
// boot the descriptor is read-only and safe to share.
type HasManyThrough struct {
	name      string
	local     *schema.Entity
	relatedFn schema.Factory
	throughFn schema.Factory
	overrides keys.Overrides

	// Populated by Boot.
	bootMu     sync.Mutex
	related    *schema.Entity
	through    *schema.Entity
	resolved   keys.Resolved
	pivotAlias string
	booted     bool
}

// NewHasManyThrough constructs a descriptor from a definition. The related and
// through factories are not invoked until Boot.
func NewHasManyThrough(def Definition) (*HasManyThrough, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("relation requires a name")
	}
	if def.Local == nil {
		return nil, fmt.Errorf("relation %s requires a local entity", def.Name)
	}
	if def.Related == nil || def.Through == nil {
		return nil, fmt.Errorf("relation %s.%s requires related and through entity factories", def.Local.Name, def.Name)
	}
	return &HasManyThrough{
		name:      def.Name,
		local:     def.Local,
		relatedFn: def.Related,
		throughFn: def.Through,
		overrides: def.Keys,
	}, nil
}

// Relation returns the qualified relation identifier, e.g. "Country.posts".
func (r *HasManyThrough) Relation() string {
	return r.local.Name + "." + r.name
}

// Name returns the relation field name on the local entity.
func (r *HasManyThrough) Name() string { return r.name }

// Local returns the entity owning the relation.
func (r *HasManyThrough) Local() *schema.Entity { return r.local }

// Booted reports whether Boot has completed.
func (r *HasManyThrough) Booted() bool { return r.booted }

// Boot resolves the lazy entity references and the four join keys. It is
// idempotent: the second and later calls are no-ops. A returned error is a
// configuration error; no SQL is ever built for a relation that failed to
// boot.
func (r *HasManyThrough) Boot() error {
	r.bootMu.Lock()
	defer r.bootMu.Unlock()
	if r.booted {
		return nil
	}

	related := r.relatedFn()
	if related == nil {
		return fmt.Errorf("relation %s: related entity factory returned nil", r.Relation())
	}
	through := r.throughFn()
	if through == nil {
		return fmt.Errorf("relation %s: through entity factory returned nil", r.Relation())
	}

	resolved, err := keys.Resolve(r.local, through, related, r.overrides, r.Relation())
	if err != nil {
		return err
	}

	r.related = related
	r.through = through
	r.resolved = resolved
	r.pivotAlias = naming.PivotAlias(r.local.Name, resolved.Local.Field)
	r.booted = true
	return nil
}

// RelatedEntity returns the resolved related entity. Boot must have run.
func (r *HasManyThrough) RelatedEntity() *schema.Entity {
	r.mustBeBooted("RelatedEntity")
	return r.related
}

// ThroughEntity returns the resolved through entity. Boot must have run.
func (r *HasManyThrough) ThroughEntity() *schema.Entity {
	r.mustBeBooted("ThroughEntity")
	return r.through
}

// Keys returns the resolved join keys. Boot must have run.
func (r *HasManyThrough) Keys() keys.Resolved {
	r.mustBeBooted("Keys")
	return r.resolved
}

// PivotAlias returns the column alias carrying the through table's foreign-key
// value on fetched rows, e.g. "through_country_id". Boot must have run.
func (r *HasManyThrough) PivotAlias() string {
	r.mustBeBooted("PivotAlias")
	return r.pivotAlias
}

// mustBeBooted guards operations that are programming errors before boot.
func (r *HasManyThrough) mustBeBooted(op string) {
	if !r.booted {
		panic(fmt.Sprintf("relation %s: %s called before boot", r.Relation(), op))
	}
}
