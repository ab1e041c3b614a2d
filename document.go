package fixtures

import (
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	FieldID   = "_id"
	FieldName = "name"
)

type Document struct {
	ID   string `bson:"_id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// Field returns the value of a document field by its stored name. Unknown fields are empty.
func (d Document) Field(name string) string {
	switch name {
	case FieldID, "id":
		return d.ID
	case FieldName:
		return d.Name
	}
	return ""
}

// IDFunc produces a fresh, globally unique document id on every call.
type IDFunc func() string

func UUIDs() string {
	return uuid.NewString()
}

func ObjectIDs() string {
	return primitive.NewObjectID().Hex()
}
