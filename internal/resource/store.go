package resource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// Query is a fully shaped read against a collection.
type Query struct {
	Filter     bson.M
	Sort       bson.D
	Projection bson.M
	Skip       int64
	Limit      int64 // 0 means no limit
	Page       int64
}

// Store is the persistence contract the controller and the feature builder
// work against. Implementations own id assignment and timestamps.
type Store[T any] interface {
	// Insert assigns _id, createdAt and updatedAt, persists doc and writes
	// the stored values back into it.
	Insert(ctx context.Context, doc *T) error
	FindOne(ctx context.Context, filter bson.M) (*T, error)
	Find(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	// UpdateOne applies set (plus updatedAt) to the first match and returns
	// the document after the update.
	UpdateOne(ctx context.Context, filter, set bson.M) (*T, error)
	UpdateMany(ctx context.Context, filter, set bson.M) (int64, error)
}

// toDoc converts v to a bson.M through the bson codec, so the result holds the
// same value types a round trip through the database would.
func toDoc(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return m, nil
}

func fromDoc[T any](m bson.M) (*T, error) {
	raw, err := bson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &out, nil
}

func clone[T any](v *T) (*T, error) {
	m, err := toDoc(v)
	if err != nil {
		return nil, err
	}
	return fromDoc[T](m)
}

// prepareInsert fills the store-owned keys of a new document.
func prepareInsert(m bson.M) {
	now := primitive.NewDateTimeFromTime(time.Now())
	if id, ok := m["_id"].(primitive.ObjectID); !ok || id.IsZero() {
		m["_id"] = primitive.NewObjectID()
	}
	m["createdAt"] = now
	m["updatedAt"] = now
}

func withUpdatedAt(set bson.M) bson.M {
	out := make(bson.M, len(set)+1)
	for k, v := range set {
		out[k] = v
	}
	out["updatedAt"] = primitive.NewDateTimeFromTime(time.Now())
	return out
}
