package resource

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	ID    primitive.ObjectID
	Email string
	Role  string
}

// ActorFrom reads the claims the auth middleware stored on c. It returns nil
// for anonymous requests.
func ActorFrom(c *gin.Context) *Actor {
	v, ok := c.Get("claims")
	if !ok {
		return nil
	}
	claims, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	a := &Actor{}
	if s, ok := claims["id"].(string); ok {
		if id, err := primitive.ObjectIDFromHex(s); err == nil {
			a.ID = id
		}
	}
	a.Email, _ = claims["email"].(string)
	a.Role, _ = claims["role"].(string)
	if a.ID.IsZero() {
		return nil
	}
	return a
}
