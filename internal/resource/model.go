package resource

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base carries the persisted-document fields shared by every resource.
// Embed it with `bson:",inline"` so the fields sit at the top level.
type Base struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Meta gives generic code access to the embedded Base.
func (b *Base) Meta() *Base { return b }

// Model is satisfied by a pointer to any struct embedding Base.
type Model interface {
	Meta() *Base
}

// bson keys owned by the store and the soft-delete flow; never written by a client update.
var systemKeys = []string{"_id", "isActive", "createdAt", "updatedAt"}
