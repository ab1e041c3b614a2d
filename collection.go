package fixtures

import "context"

// Collection is the external document store a lifecycle writes to. The lifecycle never creates or drops it.
type Collection interface {
	Name() string
	Insert(ctx context.Context, doc Document) error
	RemoveWhere(ctx context.Context, p Predicate) (int64, error)
}

type BatchInserter interface {
	InsertMany(ctx context.Context, docs []Document) error
}

type Counter interface {
	Count(ctx context.Context, p Predicate) (int64, error)
}
