package users

import (
	"context"

	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
	"go.mongodb.org/mongo-driver/mongo"
)

const collection = "users"

// NewMongoStore opens the users collection with a unique email index.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*resource.MongoStore[models.User], error) {
	return resource.NewMongoStore[models.User](ctx, db.Collection(collection), "email")
}

// NewMemoryStore returns an in-process user store with the same email
// uniqueness as the Mongo one.
func NewMemoryStore() *resource.MemoryStore[models.User] {
	return resource.NewMemoryStore[models.User]("email")
}
