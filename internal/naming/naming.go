// Package naming derives the conventional names the relation engine relies on:
// foreign-key field names, default table names, and the synthetic pivot alias
// projected onto eager-loaded rows.
package naming

import (
	"strings"
	"unicode"
)

// Namer provides name derivation with optional pluralization overrides.
type Namer struct {
	config Config
}

// Config holds custom overrides for irregular words.
type Config struct {
	PluralOverrides   map[string]string
	SingularOverrides map[string]string
}

// DefaultConfig returns a Config with no overrides.
func DefaultConfig() Config {
	return Config{
		PluralOverrides:   map[string]string{},
		SingularOverrides: map[string]string{},
	}
}

// New creates a Namer with the given configuration.
func New(cfg Config) *Namer {
	return &Namer{config: cfg}
}

// Default returns a Namer with default configuration.
func Default() *Namer {
	return New(DefaultConfig())
}

// TableName derives the default table name for an entity.
// Example: "UserProfile" -> "user_profiles"
func (n *Namer) TableName(entityName string) string {
	return n.Pluralize(ToSnakeCase(entityName))
}

// ForeignKeyField derives the conventional foreign-key field name referencing
// an entity. Example: "User" -> "userId", "BlogPost" -> "blogPostId"
func ForeignKeyField(entityName string) string {
	return LowerCamel(entityName) + "Id"
}

// PivotAlias computes the column alias under which the through table's
// foreign-key value is projected onto fetched related rows.
// Example: ("Country", "id") -> "through_country_id"
func PivotAlias(entityName, keyField string) string {
	return "through_" + ToSnakeCase(entityName) + "_" + ToSnakeCase(keyField)
}

// LowerCamel lowercases the leading run of a PascalCase name.
// Example: "User" -> "user", "APIToken" -> "apiToken"
func LowerCamel(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	// Lowercase the leading uppercase run, leaving the last of it intact when
	// it starts a new word ("APIToken" -> "apiToken", not "aPIToken").
	i := 0
	for i < len(runes) && unicode.IsUpper(runes[i]) {
		i++
	}
	if i == 0 {
		return s
	}
	if i < len(runes) && i > 1 {
		i--
	}
	for j := 0; j < i; j++ {
		runes[j] = unicode.ToLower(runes[j])
	}
	return string(runes)
}

// ToSnakeCase converts a PascalCase or camelCase name to snake_case.
// Example: "BlogPost" -> "blog_post", "userId" -> "user_id"
func ToSnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && !unicode.IsUpper(runes[i-1]) && runes[i-1] != '_'
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) && runes[i-1] != '_' {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToCamelCase converts snake_case to camelCase.
// Example: "user_name" -> "userName"
func ToCamelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

// ToPascalCase converts snake_case to PascalCase.
// Example: "user_profiles" -> "UserProfiles"
func ToPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}
