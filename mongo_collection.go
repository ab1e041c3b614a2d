package fixtures

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollection adapts a driver collection to Collection, BatchInserter and Counter.
type MongoCollection struct {
	coll *mongo.Collection
}

func NewMongoCollection(coll *mongo.Collection) *MongoCollection {
	return &MongoCollection{coll: coll}
}

func (c *MongoCollection) Name() string {
	return c.coll.Database().Name() + "." + c.coll.Name()
}

func (c *MongoCollection) Unwrap() *mongo.Collection {
	return c.coll
}

func (c *MongoCollection) Insert(ctx context.Context, doc Document) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return err
}

func (c *MongoCollection) InsertMany(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]interface{}, len(docs))
	for i := range docs {
		batch[i] = docs[i]
	}
	_, err := c.coll.InsertMany(ctx, batch, options.InsertMany().SetOrdered(true))
	return err
}

func (c *MongoCollection) RemoveWhere(ctx context.Context, p Predicate) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, mongoFilter(p))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *MongoCollection) Count(ctx context.Context, p Predicate) (int64, error) {
	return c.coll.CountDocuments(ctx, mongoFilter(p))
}

func (c *MongoCollection) Find(ctx context.Context, p Predicate) ([]Document, error) {
	cur, err := c.coll.Find(ctx, mongoFilter(p))
	if err != nil {
		return nil, err
	}
	docs := []Document{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func mongoFilter(p Predicate) bson.M {
	return bson.M{p.Field: bson.M{"$regex": primitive.Regex{Pattern: p.Regexp()}}}
}
