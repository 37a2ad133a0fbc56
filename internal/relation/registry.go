package relation

import (
	"fmt"
	"sync"

	"throughline/internal/dbexec"
	"throughline/internal/record"
)

// Registry holds relation descriptors keyed by local entity name and relation
// name. Definitions are registered at startup; lookup is safe for concurrent
// use afterwards.
type Registry struct {
	mu        sync.RWMutex
	relations map[string]map[string]*HasManyThrough
}

// NewRegistry creates an empty relation registry.
func NewRegistry() *Registry {
	return &Registry{relations: make(map[string]map[string]*HasManyThrough)}
}

// Define registers a has-many-through relation. Redefining an existing
// relation name on the same entity is an error.
func (g *Registry) Define(def Definition) (*HasManyThrough, error) {
	rel, err := NewHasManyThrough(def)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	byName := g.relations[def.Local.Name]
	if byName == nil {
		byName = make(map[string]*HasManyThrough)
		g.relations[def.Local.Name] = byName
	}
	if _, dup := byName[def.Name]; dup {
		return nil, fmt.Errorf("relation %s.%s already defined", def.Local.Name, def.Name)
	}
	byName[def.Name] = rel
	return rel, nil
}

// Get returns the relation declared on an entity under the given name.
func (g *Registry) Get(entityName, relationName string) (*HasManyThrough, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rel, ok := g.relations[entityName][relationName]
	return rel, ok
}

// Related boots the named relation on the record's entity and returns a
// builder scoped to that record, supporting Fetch, Update, and Del.
func (g *Registry) Related(rec *record.Record, name string, client *dbexec.Client) (*Builder, error) {
	rel, ok := g.Get(rec.Entity().Name, name)
	if !ok {
		return nil, fmt.Errorf("relation %s.%s is not defined", rec.Entity().Name, name)
	}
	if err := rel.Boot(); err != nil {
		return nil, err
	}
	return rel.Query(rec, client)
}
