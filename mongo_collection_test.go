package fixtures

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tryvium-travels/memongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap/zaptest"
)

const memongoVersion = "6.0.16"

func newMemongoCollection(t *testing.T, name string) *MongoCollection {
	t.Helper()
	if testing.Short() {
		t.Skip("downloads a mongod binary")
	}
	server, err := memongo.StartWithOptions(&memongo.Options{
		MongoVersion:   memongoVersion,
		StartupTimeout: time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(server.Stop)

	ctx := context.Background()
	settings := &MongoSettings{Host: "localhost", Port: fmt.Sprint(server.Port()), Database: memongo.RandomDatabase()}
	client, err := settings.Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })
	return NewMongoCollection(client.Database(settings.Database).Collection(name))
}

func TestMongoCollection(t *testing.T) {
	ctx := context.Background()
	coll := newMemongoCollection(t, "books")
	assert.Contains(t, coll.Name(), ".books")

	require.NoError(t, coll.Insert(ctx, Document{ID: "keep", Name: "The Go Programming Language"}))

	l := NewLifecycle(coll, LifecycleLogger(zaptest.NewLogger(t)), LifecycleIDs(ObjectIDs))
	require.NoError(t, l.SetUp(ctx, 100, "Thinking in Java"))

	n, err := l.Count(ctx, "Thinking in Java")
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)

	p, err := Matches(FieldName, `^Thinking in Java (\d+)$`)
	require.NoError(t, err)
	docs, err := coll.Find(ctx, p)
	require.NoError(t, err)
	require.Len(t, docs, 100)
	seen := map[string]bool{}
	for _, doc := range docs {
		seen[doc.Name] = true
	}
	for i := 1; i <= 100; i++ {
		assert.True(t, seen[fmt.Sprintf("Thinking in Java %v", i)])
	}

	// The raw shape written to mongo is {_id, name}.
	var raw bson.M
	require.NoError(t, coll.Unwrap().FindOne(ctx, bson.M{"name": "Thinking in Java 1"}).Decode(&raw))
	assert.Len(t, raw, 2)
	assert.IsType(t, "", raw["_id"])

	removed, err := l.TearDown(ctx, "Thinking in Java")
	require.NoError(t, err)
	assert.Equal(t, int64(100), removed)

	removed, err = l.TearDown(ctx, "Thinking in Java")
	require.NoError(t, err)
	assert.Zero(t, removed)

	total, err := coll.Count(ctx, Contains(FieldName, ""))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestMongoCollectionLiteralPrefix(t *testing.T) {
	ctx := context.Background()
	coll := newMemongoCollection(t, "books")
	require.NoError(t, coll.InsertMany(ctx, []Document{
		{ID: "a", Name: "C++ Primer 1"},
		{ID: "b", Name: "CCC Primer 1"},
	}))

	removed, err := coll.RemoveWhere(ctx, Contains(FieldName, "C++"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.NoError(t, coll.InsertMany(ctx, nil))
}

func TestMongoCollectionDuplicateID(t *testing.T) {
	ctx := context.Background()
	coll := newMemongoCollection(t, "books")
	l := NewLifecycle(coll, LifecycleLogger(zaptest.NewLogger(t)), LifecycleIDs(func() string { return "same" }))

	err := l.SetUp(ctx, 2, "Thinking in Java")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	n, err := l.Count(ctx, "Thinking in Java")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
