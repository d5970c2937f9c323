package resource

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on a MongoDB collection.
type MongoStore[T any] struct {
	col *mongo.Collection
}

// NewMongoStore ensures the list index and one sparse unique index per
// uniqueFields entry exist on col.
func NewMongoStore[T any](ctx context.Context, col *mongo.Collection, uniqueFields ...string) (*MongoStore[T], error) {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	for _, f := range uniqueFields {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: f, Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		})
	}
	if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
		return nil, fmt.Errorf("create indexes on %s: %w", col.Name(), err)
	}
	return &MongoStore[T]{col: col}, nil
}

func (s *MongoStore[T]) Insert(ctx context.Context, doc *T) error {
	d, err := toDoc(doc)
	if err != nil {
		return err
	}
	prepareInsert(d)
	if _, err := s.col.InsertOne(ctx, d); err != nil {
		return mapWriteErr(err)
	}
	stored, err := fromDoc[T](d)
	if err != nil {
		return err
	}
	*doc = *stored
	return nil
}

func (s *MongoStore[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	var out T
	if err := s.col.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (s *MongoStore[T]) Find(ctx context.Context, q Query) ([]T, error) {
	opts := options.Find()
	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}
	if len(q.Projection) > 0 {
		opts.SetProjection(q.Projection)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := s.col.Find(ctx, q.Filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.col.CountDocuments(ctx, filter)
}

func (s *MongoStore[T]) UpdateOne(ctx context.Context, filter, set bson.M) (*T, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out T
	err := s.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": withUpdatedAt(set)}, opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, mapWriteErr(err)
	}
	return &out, nil
}

func (s *MongoStore[T]) UpdateMany(ctx context.Context, filter, set bson.M) (int64, error) {
	res, err := s.col.UpdateMany(ctx, filter, bson.M{"$set": withUpdatedAt(set)})
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return res.ModifiedCount, nil
}

func mapWriteErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}
