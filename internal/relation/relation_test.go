package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"throughline/internal/keys"
	"throughline/internal/schema"
)

func countryEntity() *schema.Entity {
	return schema.MustNewEntity("Country", "", []schema.Field{
		{Name: "id", PrimaryKey: true},
		{Name: "name"},
	})
}

func userEntity() *schema.Entity {
	return schema.MustNewEntity("User", "", []schema.Field{
		{Name: "id", PrimaryKey: true},
		{Name: "countryId"},
	})
}

func postEntity() *schema.Entity {
	return schema.MustNewEntity("Post", "", []schema.Field{
		{Name: "id", PrimaryKey: true},
		{Name: "userId"},
		{Name: "title"},
	})
}

func countryPostsRelation(t *testing.T) *HasManyThrough {
	t.Helper()
	rel, err := NewHasManyThrough(Definition{
		Name:    "posts",
		Local:   countryEntity(),
		Related: func() *schema.Entity { return postEntity() },
		Through: func() *schema.Entity { return userEntity() },
	})
	require.NoError(t, err)
	return rel
}

func TestNewHasManyThrough_Validation(t *testing.T) {
	_, err := NewHasManyThrough(Definition{Local: countryEntity()})
	require.ErrorContains(t, err, "requires a name")

	_, err = NewHasManyThrough(Definition{Name: "posts"})
	require.ErrorContains(t, err, "requires a local entity")

	_, err = NewHasManyThrough(Definition{Name: "posts", Local: countryEntity()})
	require.ErrorContains(t, err, "related and through entity factories")
}

func TestBoot_ResolvesConventionalKeys(t *testing.T) {
	rel := countryPostsRelation(t)
	assert.False(t, rel.Booted())

	require.NoError(t, rel.Boot())
	assert.True(t, rel.Booted())

	resolved := rel.Keys()
	assert.Equal(t, keys.Key{Field: "id", Column: "id"}, resolved.Local)
	assert.Equal(t, keys.Key{Field: "countryId", Column: "country_id"}, resolved.Foreign)
	assert.Equal(t, keys.Key{Field: "id", Column: "id"}, resolved.ThroughLocal)
	assert.Equal(t, keys.Key{Field: "userId", Column: "user_id"}, resolved.ThroughForeign)

	assert.Equal(t, "through_country_id", rel.PivotAlias())
	assert.Equal(t, "posts", rel.RelatedEntity().Table)
	assert.Equal(t, "users", rel.ThroughEntity().Table)
}

func TestBoot_InvokesFactoriesLazily(t *testing.T) {
	relatedCalls := 0
	throughCalls := 0
	rel, err := NewHasManyThrough(Definition{
		Name:  "posts",
		Local: countryEntity(),
		Related: func() *schema.Entity {
			relatedCalls++
			return postEntity()
		},
		Through: func() *schema.Entity {
			throughCalls++
			return userEntity()
		},
	})
	require.NoError(t, err)
	assert.Zero(t, relatedCalls)
	assert.Zero(t, throughCalls)

	require.NoError(t, rel.Boot())
	require.NoError(t, rel.Boot())
	assert.Equal(t, 1, relatedCalls)
	assert.Equal(t, 1, throughCalls)
}

func TestBoot_NilFactoryResult(t *testing.T) {
	rel, err := NewHasManyThrough(Definition{
		Name:    "posts",
		Local:   countryEntity(),
		Related: func() *schema.Entity { return nil },
		Through: func() *schema.Entity { return userEntity() },
	})
	require.NoError(t, err)

	err = rel.Boot()
	require.ErrorContains(t, err, "related entity factory returned nil")
	assert.False(t, rel.Booted())
}

func TestBoot_MissingKeys(t *testing.T) {
	noPK := schema.MustNewEntity("Country", "", []schema.Field{{Name: "name"}})
	userNoFK := schema.MustNewEntity("User", "", []schema.Field{{Name: "id", PrimaryKey: true}})

	tests := []struct {
		name    string
		local   *schema.Entity
		through *schema.Entity
		related *schema.Entity
		wantErr string
	}{
		{
			name:    "missing local primary key",
			local:   noPK,
			through: userEntity(),
			related: postEntity(),
			wantErr: "E_MISSING_RELATED_LOCAL_KEY: Country.id required by Country.posts relation is missing",
		},
		{
			name:    "missing through foreign key",
			local:   countryEntity(),
			through: userNoFK,
			related: postEntity(),
			wantErr: "E_MISSING_RELATED_FOREIGN_KEY: User.countryId required by Country.posts relation is missing",
		},
		{
			name:    "missing related foreign key",
			local:   countryEntity(),
			through: userEntity(),
			related: schema.MustNewEntity("Post", "", []schema.Field{{Name: "id", PrimaryKey: true}, {Name: "title"}}),
			wantErr: "E_MISSING_THROUGH_FOREIGN_KEY: Post.userId required by Country.posts relation is missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, err := NewHasManyThrough(Definition{
				Name:    "posts",
				Local:   tt.local,
				Related: func() *schema.Entity { return tt.related },
				Through: func() *schema.Entity { return tt.through },
			})
			require.NoError(t, err)

			err = rel.Boot()
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)
			assert.False(t, rel.Booted())
		})
	}
}

func TestBoot_KeyOverrides(t *testing.T) {
	local := schema.MustNewEntity("Country", "", []schema.Field{
		{Name: "code", Column: "iso_code"},
		{Name: "name"},
	})
	through := schema.MustNewEntity("User", "", []schema.Field{
		{Name: "id", PrimaryKey: true},
		{Name: "countryCode"},
	})

	rel, err := NewHasManyThrough(Definition{
		Name:    "posts",
		Local:   local,
		Related: func() *schema.Entity { return postEntity() },
		Through: func() *schema.Entity { return through },
		Keys: keys.Overrides{
			LocalKey:   "code",
			ForeignKey: "countryCode",
		},
	})
	require.NoError(t, err)
	require.NoError(t, rel.Boot())

	resolved := rel.Keys()
	assert.Equal(t, keys.Key{Field: "code", Column: "iso_code"}, resolved.Local)
	assert.Equal(t, keys.Key{Field: "countryCode", Column: "country_code"}, resolved.Foreign)
	assert.Equal(t, "through_country_code", rel.PivotAlias())
}

func TestAccessorsPanicBeforeBoot(t *testing.T) {
	rel := countryPostsRelation(t)

	assert.PanicsWithValue(t, "relation Country.posts: Keys called before boot", func() {
		rel.Keys()
	})
	assert.PanicsWithValue(t, "relation Country.posts: PivotAlias called before boot", func() {
		rel.PivotAlias()
	})
}
