package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"throughline/internal/record"
)

func post(t *testing.T, id int64, pivot any) *record.Record {
	t.Helper()
	rec := record.NewWithAttrs(postEntity(), map[string]any{"id": id})
	if pivot != nil {
		rec.SetExtra("through_country_id", pivot)
	}
	return rec
}

func TestGroupOntoOwners_SingleOwner(t *testing.T) {
	rel := bootedCountryPosts(t)
	owner := record.NewWithAttrs(countryEntity(), map[string]any{"id": int64(1)})
	rows := []*record.Record{
		post(t, 10, int64(1)),
		post(t, 11, int64(1)),
	}

	dropped := rel.GroupOntoOwners([]*record.Record{owner}, rows)
	assert.Zero(t, dropped)

	loaded, ok := owner.Related("posts")
	require.True(t, ok)
	assert.Len(t, loaded, 2)
}

func TestGroupOntoOwners_NoCrossContamination(t *testing.T) {
	rel := bootedCountryPosts(t)
	entity := countryEntity()
	a := record.NewWithAttrs(entity, map[string]any{"id": int64(1)})
	b := record.NewWithAttrs(entity, map[string]any{"id": int64(2)})
	rows := []*record.Record{
		post(t, 10, int64(1)),
		post(t, 20, int64(2)),
		post(t, 21, int64(2)),
	}

	dropped := rel.GroupOntoOwners([]*record.Record{a, b}, rows)
	assert.Zero(t, dropped)

	aPosts, ok := a.Related("posts")
	require.True(t, ok)
	require.Len(t, aPosts, 1)
	id, _ := aPosts[0].Get("id")
	assert.Equal(t, int64(10), id)

	bPosts, ok := b.Related("posts")
	require.True(t, ok)
	assert.Len(t, bPosts, 2)
}

func TestGroupOntoOwners_EmptyCollectionForUnmatchedOwner(t *testing.T) {
	rel := bootedCountryPosts(t)
	owner := record.NewWithAttrs(countryEntity(), map[string]any{"id": int64(5)})

	dropped := rel.GroupOntoOwners([]*record.Record{owner}, nil)
	assert.Zero(t, dropped)

	loaded, ok := owner.Related("posts")
	require.True(t, ok)
	assert.Empty(t, loaded)
}

func TestGroupOntoOwners_NormalizesKeyTypes(t *testing.T) {
	rel := bootedCountryPosts(t)
	// Owner key scanned as int64, pivot delivered as string by the driver.
	owner := record.NewWithAttrs(countryEntity(), map[string]any{"id": int64(1)})
	rows := []*record.Record{post(t, 10, "1")}

	dropped := rel.GroupOntoOwners([]*record.Record{owner}, rows)
	assert.Zero(t, dropped)

	loaded, ok := owner.Related("posts")
	require.True(t, ok)
	assert.Len(t, loaded, 1)
}

func TestGroupOntoOwners_DropsUnclaimedRows(t *testing.T) {
	rel := bootedCountryPosts(t)
	owner := record.NewWithAttrs(countryEntity(), map[string]any{"id": int64(1)})
	rows := []*record.Record{
		post(t, 10, int64(1)),
		post(t, 11, int64(99)),
		post(t, 12, nil),
	}

	dropped := rel.GroupOntoOwners([]*record.Record{owner}, rows)
	assert.Equal(t, 2, dropped)

	loaded, ok := owner.Related("posts")
	require.True(t, ok)
	assert.Len(t, loaded, 1)
}

func TestGroupOntoOwners_OwnerWithoutKeyValue(t *testing.T) {
	rel := bootedCountryPosts(t)
	owner := record.New(countryEntity())
	rows := []*record.Record{post(t, 10, int64(1))}

	dropped := rel.GroupOntoOwners([]*record.Record{owner}, rows)
	assert.Equal(t, 1, dropped)

	loaded, ok := owner.Related("posts")
	require.True(t, ok)
	assert.Empty(t, loaded)
}
