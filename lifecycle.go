package fixtures

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

type LifecycleOpt func(*Lifecycle)

func NewLifecycle(coll Collection, opts ...LifecycleOpt) *Lifecycle {
	l := &Lifecycle{
		coll:  coll,
		ids:   UUIDs,
		field: FieldName,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger()
	}
	return l
}

func LifecycleLogger(logger *zap.Logger) LifecycleOpt {
	return func(l *Lifecycle) {
		l.log = logger
	}
}

func LifecycleIDs(ids IDFunc) LifecycleOpt {
	return func(l *Lifecycle) {
		l.ids = ids
	}
}

// LifecycleField changes the field teardown matches the prefix against. Defaults to "name".
func LifecycleField(field string) LifecycleOpt {
	return func(l *Lifecycle) {
		l.field = field
	}
}

// Lifecycle seeds a collection with numbered documents and removes them again.
// Concurrent tests sharing a collection must use disjoint prefixes.
type Lifecycle struct {
	log   *zap.Logger
	coll  Collection
	ids   IDFunc
	field string
}

func (l *Lifecycle) Collection() Collection {
	return l.coll
}

// SetUp inserts count documents named "<prefix> 1" through "<prefix> <count>". It is not idempotent.
// On a storage error documents inserted so far are left in place.
func (l *Lifecycle) SetUp(ctx context.Context, count int, prefix string) error {
	if count <= 0 {
		return invalidArgument("count must be positive, got %v", count)
	}
	if prefix == "" {
		return invalidArgument("prefix must not be empty")
	}

	docs := make([]Document, count)
	for i := range docs {
		docs[i] = Document{
			ID:   l.ids(),
			Name: prefix + " " + strconv.Itoa(i+1),
		}
	}

	if b, ok := l.coll.(BatchInserter); ok {
		if err := b.InsertMany(ctx, docs); err != nil {
			return l.storageError("insert", err)
		}
	} else {
		for _, doc := range docs {
			if err := l.coll.Insert(ctx, doc); err != nil {
				return l.storageError("insert", err)
			}
		}
	}
	l.log.Debug("setup", zap.String("collection", l.coll.Name()), zap.String("prefix", prefix), zap.Int("count", count))
	return nil
}

// TearDown removes every document whose field contains prefix and returns how many were removed.
func (l *Lifecycle) TearDown(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		return 0, invalidArgument("prefix must not be empty")
	}
	removed, err := l.coll.RemoveWhere(ctx, Contains(l.field, prefix))
	if err != nil {
		return 0, l.storageError("remove", err)
	}
	l.log.Debug("teardown", zap.String("collection", l.coll.Name()), zap.String("prefix", prefix), zap.Int64("removed", removed))
	return removed, nil
}

func (l *Lifecycle) Count(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		return 0, invalidArgument("prefix must not be empty")
	}
	c, ok := l.coll.(Counter)
	if !ok {
		return 0, fmt.Errorf("collection %v cannot count documents", l.coll.Name())
	}
	n, err := c.Count(ctx, Contains(l.field, prefix))
	if err != nil {
		return 0, l.storageError("count", err)
	}
	return n, nil
}

func (l *Lifecycle) storageError(op string, err error) error {
	return &StorageError{Op: op, Collection: l.coll.Name(), Err: err}
}

// Seed adapts a lifecycle to the Fixture interface so it can be registered with Fixtures.
func Seed(coll Collection, count int, prefix string, opts ...LifecycleOpt) *SeedFixture {
	return &SeedFixture{
		Lifecycle: NewLifecycle(coll, opts...),
		count:     count,
		prefix:    prefix,
	}
}

type SeedFixture struct {
	BaseFixture
	*Lifecycle
	count  int
	prefix string
}

func (f *SeedFixture) Prefix() string {
	return f.prefix
}

func (f *SeedFixture) SetUp(ctx context.Context) error {
	return f.Lifecycle.SetUp(ctx, f.count, f.prefix)
}

func (f *SeedFixture) TearDown(ctx context.Context) error {
	_, err := f.Lifecycle.TearDown(ctx, f.prefix)
	return err
}
