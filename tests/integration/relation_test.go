//go:build integration
// +build integration

package integration

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"throughline/internal/dbexec"
	"throughline/internal/preload"
	"throughline/internal/record"
	"throughline/internal/relation"
	"throughline/internal/schema"
	"throughline/internal/sqlutil"
)

// testClient connects to the database named by THROUGHLINE_TEST_DSN, skipping
// the test when the variable is unset.
func testClient(t *testing.T) *dbexec.Client {
	t.Helper()
	dsn := os.Getenv("THROUGHLINE_TEST_DSN")
	if dsn == "" {
		t.Skip("THROUGHLINE_TEST_DSN not set; skipping integration test")
	}

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())

	return dbexec.NewClient("integration", sqlutil.MySQL, nil, dbexec.NewStandardExecutor(db))
}

func setupSchema(t *testing.T, client *dbexec.Client) {
	t.Helper()
	ctx := context.Background()
	stmts := []string{
		"DROP TABLE IF EXISTS posts",
		"DROP TABLE IF EXISTS users",
		"DROP TABLE IF EXISTS countries",
		"CREATE TABLE countries (id BIGINT PRIMARY KEY, name VARCHAR(64))",
		"CREATE TABLE users (id BIGINT PRIMARY KEY, country_id BIGINT)",
		"CREATE TABLE posts (id BIGINT PRIMARY KEY, user_id BIGINT, title VARCHAR(128))",
		"INSERT INTO countries VALUES (1, 'Iceland'), (2, 'Norway'), (3, 'Chile')",
		"INSERT INTO users VALUES (100, 1), (101, 1), (200, 2)",
		"INSERT INTO posts VALUES (10, 100, 'aurora'), (11, 101, 'glacier'), (20, 200, 'fjord'), (99, 999, 'orphan')",
	}
	for _, stmt := range stmts {
		_, err := client.Writer().ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	t.Cleanup(func() {
		for _, table := range []string{"posts", "users", "countries"} {
			_, _ = client.Writer().ExecContext(ctx, "DROP TABLE IF EXISTS "+table)
		}
	})
}

func countryPosts(t *testing.T) *relation.HasManyThrough {
	t.Helper()
	rel, err := relation.NewHasManyThrough(relation.Definition{
		Name: "posts",
		Local: schema.MustNewEntity("Country", "", []schema.Field{
			{Name: "id", PrimaryKey: true},
			{Name: "name"},
		}),
		Related: func() *schema.Entity {
			return schema.MustNewEntity("Post", "", []schema.Field{
				{Name: "id", PrimaryKey: true},
				{Name: "userId"},
				{Name: "title"},
			})
		},
		Through: func() *schema.Entity {
			return schema.MustNewEntity("User", "", []schema.Field{
				{Name: "id", PrimaryKey: true},
				{Name: "countryId"},
			})
		},
	})
	require.NoError(t, err)
	require.NoError(t, rel.Boot())
	return rel
}

func TestSingleFetch(t *testing.T) {
	client := testClient(t)
	setupSchema(t, client)
	rel := countryPosts(t)

	iceland := record.NewWithAttrs(rel.Local(), map[string]any{"id": int64(1)})
	b, err := rel.Query(iceland, client)
	require.NoError(t, err)

	posts, err := b.OrderBy("`posts`.`id`").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)

	title, _ := posts[0].Get("title")
	assert.Equal(t, "aurora", title)
}

func TestEagerLoad(t *testing.T) {
	client := testClient(t)
	setupSchema(t, client)
	rel := countryPosts(t)

	owners := []*record.Record{
		record.NewWithAttrs(rel.Local(), map[string]any{"id": int64(1)}),
		record.NewWithAttrs(rel.Local(), map[string]any{"id": int64(2)}),
		record.NewWithAttrs(rel.Local(), map[string]any{"id": int64(3)}),
	}

	p := preload.NewPreloader(client, nil, 0)
	require.NoError(t, p.Preload(context.Background(), rel, owners))

	for i, want := range []int{2, 1, 0} {
		posts, loaded := owners[i].Related("posts")
		require.True(t, loaded)
		assert.Len(t, posts, want)
	}
}

func TestBulkUpdateAndDelete(t *testing.T) {
	client := testClient(t)
	setupSchema(t, client)
	rel := countryPosts(t)
	ctx := context.Background()

	iceland := record.NewWithAttrs(rel.Local(), map[string]any{"id": int64(1)})

	b, err := rel.Query(iceland, client)
	require.NoError(t, err)
	affected, err := b.Update(ctx, map[string]any{"title": "archived"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	b, err = rel.Query(iceland, client)
	require.NoError(t, err)
	affected, err = b.Del(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	// The other country's posts and the orphan row are untouched.
	b, err = rel.Query(record.NewWithAttrs(rel.Local(), map[string]any{"id": int64(2)}), client)
	require.NoError(t, err)
	posts, err := b.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}
