package fixtures

import (
	"context"
	"fmt"
	"sync"
)

// MemoryCollection is an in-process Collection. FailWith makes every subsequent call fail, simulating a lost store.
type MemoryCollection struct {
	name string
	mu   sync.Mutex
	docs []Document
	ids  map[string]struct{}
	fail error
}

func NewMemoryCollection(name string, docs ...Document) *MemoryCollection {
	c := &MemoryCollection{name: name, ids: map[string]struct{}{}}
	for _, doc := range docs {
		c.docs = append(c.docs, doc)
		c.ids[doc.ID] = struct{}{}
	}
	return c
}

func (c *MemoryCollection) Name() string {
	return c.name
}

func (c *MemoryCollection) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = err
}

func (c *MemoryCollection) Insert(ctx context.Context, doc Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insert(ctx, doc)
}

func (c *MemoryCollection) InsertMany(ctx context.Context, docs []Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range docs {
		if err := c.insert(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func (c *MemoryCollection) insert(ctx context.Context, doc Document) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	if _, ok := c.ids[doc.ID]; ok {
		return fmt.Errorf("duplicate id %q", doc.ID)
	}
	c.ids[doc.ID] = struct{}{}
	c.docs = append(c.docs, doc)
	return nil
}

func (c *MemoryCollection) RemoveWhere(ctx context.Context, p Predicate) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	kept := c.docs[:0]
	var removed int64
	for _, doc := range c.docs {
		if p.Match(doc) {
			delete(c.ids, doc.ID)
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return removed, nil
}

func (c *MemoryCollection) Count(ctx context.Context, p Predicate) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	var n int64
	for _, doc := range c.docs {
		if p.Match(doc) {
			n++
		}
	}
	return n, nil
}

func (c *MemoryCollection) Find(p Predicate) []Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []Document{}
	for _, doc := range c.docs {
		if p.Match(doc) {
			out = append(out, doc)
		}
	}
	return out
}

func (c *MemoryCollection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

func (c *MemoryCollection) check(ctx context.Context) error {
	if c.fail != nil {
		return c.fail
	}
	return ctx.Err()
}
