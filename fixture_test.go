package fixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type DummyFixture struct {
	BaseFixture
	DummyMember int
	torn        *[]string
	name        string
	failTear    error
}

func (df *DummyFixture) SetUp(context.Context) error {
	df.DummyMember = 123
	return nil
}

func (df *DummyFixture) TearDown(context.Context) error {
	df.DummyMember = 0
	if df.torn != nil {
		*df.torn = append(*df.torn, df.name)
	}
	return df.failTear
}

type failingFixture struct {
	BaseFixture
}

func (f *failingFixture) SetUp(context.Context) error    { return errors.New("boom") }
func (f *failingFixture) TearDown(context.Context) error { return nil }

func TestGetType(t *testing.T) {
	f := DummyFixture{}
	assert.Equal(t, "fixtures.BaseFixture", f.Type())
	assert.Equal(t, "fixtures.DummyFixture", fixtureType(&f))
}

func TestFixtures(t *testing.T) {
	ctx := context.Background()
	fixtures := NewFixtures(FixturesLogger(zaptest.NewLogger(t)))
	df := DummyFixture{}
	df2 := DummyFixture{}

	assert.NoError(t, fixtures.Add(ctx, &df))
	assert.NoError(t, fixtures.AddByName(ctx, "foobar", &df2))
	assert.Error(t, fixtures.AddByName(ctx, "foobar", &DummyFixture{}))

	f := fixtures.Get("foobar").(*DummyFixture)
	assert.Equal(t, 123, f.DummyMember)
	assert.Equal(t, 123, df.DummyMember)

	assert.NoError(t, fixtures.TearDown(ctx))
	assert.Equal(t, 0, f.DummyMember)
	assert.Equal(t, 0, df.DummyMember)
}

func TestFixturesTearDownOrder(t *testing.T) {
	ctx := context.Background()
	fixtures := NewFixtures(FixturesLogger(zaptest.NewLogger(t)))
	torn := []string{}
	first := errors.New("first")

	require.NoError(t, fixtures.AddByName(ctx, "a", &DummyFixture{torn: &torn, name: "a"}))
	require.NoError(t, fixtures.AddByName(ctx, "b", &DummyFixture{torn: &torn, name: "b", failTear: errors.New("second")}))
	require.NoError(t, fixtures.AddByName(ctx, "c", &DummyFixture{torn: &torn, name: "c", failTear: first}))

	err := fixtures.TearDown(ctx)
	assert.Equal(t, []string{"c", "b", "a"}, torn)
	assert.ErrorIs(t, err, first)
}

func TestFixturesSetUpFailure(t *testing.T) {
	ctx := context.Background()
	fixtures := NewFixtures(FixturesLogger(zaptest.NewLogger(t)))
	err := fixtures.AddByName(ctx, "broken", &failingFixture{})
	assert.ErrorContains(t, err, "failed to setup fixture 'broken'")
}

func TestFixturesRecoverTearDown(t *testing.T) {
	ctx := context.Background()
	fixtures := NewFixtures(FixturesLogger(zaptest.NewLogger(t)))
	df := DummyFixture{}
	require.NoError(t, fixtures.Add(ctx, &df))

	assert.PanicsWithValue(t, "oops", func() {
		defer fixtures.RecoverTearDown(ctx)
		panic("oops")
	})
	assert.Equal(t, 0, df.DummyMember)
}

func TestFixturesAccessors(t *testing.T) {
	ctx := context.Background()
	fixtures := NewFixtures(FixturesLogger(zaptest.NewLogger(t)))
	coll := NewMemoryCollection("books")
	seed := Seed(coll, 3, "Thinking in Go", LifecycleLogger(zaptest.NewLogger(t)))
	require.NoError(t, fixtures.Add(ctx, seed))

	assert.Equal(t, []*SeedFixture{seed}, fixtures.Seeds())
	assert.Panics(t, func() { fixtures.Mongo() })
	assert.Panics(t, func() { fixtures.Postgres() })
	assert.Panics(t, func() { fixtures.Docker() })
}
