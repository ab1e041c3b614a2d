package script

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const systemJS = "system.js"

// Executor runs scripts server side with the eval command, which mongod removed in 4.2.
type Executor struct {
	log *zap.Logger
	db  *mongo.Database
}

func NewExecutor(db *mongo.Database, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{db: db, log: log}
}

func (e *Executor) Execute(ctx context.Context, s NamedScript) (bson.Raw, error) {
	if s.Code == "" {
		return nil, fmt.Errorf("script %q has no code", s.Name)
	}
	res, err := e.eval(ctx, s.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to execute script %v: %w", s.Name, err)
	}
	e.log.Debug("executed script", zap.String("script", s.Name), zap.String("database", e.db.Name()))
	return res, nil
}

// Call runs a function previously stored with Register.
func (e *Executor) Call(ctx context.Context, name string) (bson.Raw, error) {
	if name == "" {
		return nil, fmt.Errorf("script name must not be empty")
	}
	res, err := e.eval(ctx, name+"()")
	if err != nil {
		return nil, fmt.Errorf("failed to call script %v: %w", name, err)
	}
	e.log.Debug("called script", zap.String("script", name), zap.String("database", e.db.Name()))
	return res, nil
}

// Register stores s in system.js so that it can be invoked by name.
func (e *Executor) Register(ctx context.Context, s NamedScript) error {
	_, err := e.db.Collection(systemJS).ReplaceOne(ctx,
		bson.M{"_id": s.Name},
		bson.M{"_id": s.Name, "value": primitive.JavaScript(s.Code)},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to register script %v: %w", s.Name, err)
	}
	return nil
}

func (e *Executor) eval(ctx context.Context, code string) (bson.Raw, error) {
	return e.db.RunCommand(ctx, bson.D{{Key: "eval", Value: primitive.JavaScript(code)}}).Raw()
}
