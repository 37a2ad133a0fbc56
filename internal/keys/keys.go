// Package keys resolves the four join keys a has-many-through relation needs:
// the local primary key, the through table's foreign key referencing the local
// entity, the through table's primary key, and the related table's foreign key
// referencing the through entity. Resolution runs in that fixed order and
// stops at the first missing key.
package keys

import (
	"fmt"

	"throughline/internal/naming"
	"throughline/internal/schema"
)

// Stable error identifiers surfaced to callers for branching and logging.
const (
	CodeMissingRelatedLocalKey   = "E_MISSING_RELATED_LOCAL_KEY"
	CodeMissingRelatedForeignKey = "E_MISSING_RELATED_FOREIGN_KEY"
	CodeMissingThroughLocalKey   = "E_MISSING_THROUGH_LOCAL_KEY"
	CodeMissingThroughForeignKey = "E_MISSING_THROUGH_FOREIGN_KEY"
)

// defaultPrimaryKeyField is the conventional primary-key field name reported
// when an entity declares no primary key and no override was given.
const defaultPrimaryKeyField = "id"

// ConfigurationError reports a missing key detected at relation boot.
// It is fatal and non-retryable; no SQL is built once one is raised.
type ConfigurationError struct {
	// Code is one of the E_MISSING_* identifiers above.
	Code string
	// Entity is the entity the key was expected on.
	Entity string
	// Key is the missing field name.
	Key string
	// Relation identifies the owning relation, e.g. "Country.posts".
	Relation string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s.%s required by %s relation is missing", e.Code, e.Entity, e.Key, e.Relation)
}

// Overrides carries explicit key field names declared on the relation.
// Empty values fall back to convention.
type Overrides struct {
	LocalKey          string
	ForeignKey        string
	ThroughLocalKey   string
	ThroughForeignKey string
}

// Key pairs a logical field name with its physical column.
type Key struct {
	Field  string
	Column string
}

// Resolved holds all four keys with physical columns attached. SQL generation
// uses the columns; value extraction from records uses the field names.
type Resolved struct {
	// Local is the key on the local entity the through table points back to.
	Local Key
	// Foreign is the through-table key referencing the local entity.
	Foreign Key
	// ThroughLocal is the through-table key the related table points back to.
	ThroughLocal Key
	// ThroughForeign is the related-table key referencing the through entity.
	ThroughForeign Key
}

// Resolve validates and resolves the join-chain keys for one relation.
// relation names the owning declaration ("Local.field") for error messages.
// Checks run local key -> foreign key -> through-local key -> through-foreign
// key, and only the first missing key is ever reported.
func Resolve(local, through, related *schema.Entity, ov Overrides, relation string) (Resolved, error) {
	localKey, err := resolvePrimary(local, ov.LocalKey, CodeMissingRelatedLocalKey, relation)
	if err != nil {
		return Resolved{}, err
	}

	foreign, err := resolveForeign(through, local.Name, ov.ForeignKey, CodeMissingRelatedForeignKey, relation)
	if err != nil {
		return Resolved{}, err
	}

	throughLocal, err := resolvePrimary(through, ov.ThroughLocalKey, CodeMissingThroughLocalKey, relation)
	if err != nil {
		return Resolved{}, err
	}

	throughForeign, err := resolveForeign(related, through.Name, ov.ThroughForeignKey, CodeMissingThroughForeignKey, relation)
	if err != nil {
		return Resolved{}, err
	}

	return Resolved{
		Local:          localKey,
		Foreign:        foreign,
		ThroughLocal:   throughLocal,
		ThroughForeign: throughForeign,
	}, nil
}

// resolvePrimary resolves an overridden field or falls back to the entity's
// primary key.
func resolvePrimary(entity *schema.Entity, override, code, relation string) (Key, error) {
	if override != "" {
		if f, ok := entity.FieldByName(override); ok {
			return Key{Field: f.Name, Column: f.Column}, nil
		}
		return Key{}, &ConfigurationError{Code: code, Entity: entity.Name, Key: override, Relation: relation}
	}
	if pk := entity.PrimaryField(); pk != nil {
		return Key{Field: pk.Name, Column: pk.Column}, nil
	}
	return Key{}, &ConfigurationError{Code: code, Entity: entity.Name, Key: defaultPrimaryKeyField, Relation: relation}
}

// resolveForeign resolves an overridden field or the conventional
// "<lowerCamel referenced entity>Id" foreign key on holder.
func resolveForeign(holder *schema.Entity, referencedEntity, override, code, relation string) (Key, error) {
	candidate := override
	if candidate == "" {
		candidate = naming.ForeignKeyField(referencedEntity)
	}
	if f, ok := holder.FieldByName(candidate); ok {
		return Key{Field: f.Name, Column: f.Column}, nil
	}
	return Key{}, &ConfigurationError{Code: code, Entity: holder.Name, Key: candidate, Relation: relation}
}
