package fixtures

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPostgresCollection(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	f := NewFixtures(FixturesLogger(log))
	defer f.RecoverTearDown(ctx)
	require.NoError(t, f.Add(ctx, NewDocker(DockerLogger(log))))
	require.NoError(t, f.Add(ctx, NewPostgres(f.Docker(), PostgresLogger(log))))
	defer func() { assert.NoError(t, f.TearDown(ctx)) }()

	pool, err := f.Postgres().Connect(ctx)
	require.NoError(t, err)
	defer pool.Close()

	coll, err := f.Postgres().Collection(ctx, pool, "books")
	require.NoError(t, err)
	exists, err := f.Postgres().TableExists(ctx, "", "public", "books")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, coll.Insert(ctx, Document{ID: "keep", Name: "The Go Programming Language"}))

	l := NewLifecycle(coll, LifecycleLogger(log))
	require.NoError(t, l.SetUp(ctx, 100, "Thinking in Java"))
	n, err := l.Count(ctx, "Thinking in Java")
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)

	docs, err := coll.Find(ctx, Contains(FieldName, "Thinking in Java 42"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Thinking in Java 42", docs[0].Name)
	assert.NotEmpty(t, docs[0].ID)

	removed, err := l.TearDown(ctx, "Thinking in Java")
	require.NoError(t, err)
	assert.Equal(t, int64(100), removed)
	removed, err = l.TearDown(ctx, "Thinking in Java")
	require.NoError(t, err)
	assert.Zero(t, removed)

	n, err = coll.Count(ctx, Contains(FieldName, ""))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPostgresDatabases(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	f := NewFixtures(FixturesLogger(log))
	defer f.RecoverTearDown(ctx)
	require.NoError(t, f.Add(ctx, NewDocker(DockerLogger(log))))
	require.NoError(t, f.Add(ctx, NewPostgres(f.Docker(), PostgresLogger(log))))
	defer func() { assert.NoError(t, f.TearDown(ctx)) }()

	require.NoError(t, f.Postgres().Ping(ctx))
	require.NoError(t, f.Postgres().CreateDatabase(ctx, "library"))
	conn, err := f.Postgres().GetConnection(ctx, "library")
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))
	assert.NoError(t, f.Postgres().DropDatabase(ctx, "library"))
	assert.Error(t, f.Postgres().DropDatabase(ctx, f.Postgres().GetSettings().Database))
}

func TestPostgresCollectionTableName(t *testing.T) {
	_, err := NewPostgresCollection(nil, "books; drop table x")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	c, err := NewPostgresCollection(nil, "books_2")
	require.NoError(t, err)
	assert.Equal(t, `"books_2"`, c.ident())
}
