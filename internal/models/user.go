package models

import (
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account that can sign in to the API. Password holds the bcrypt
// hash and never leaves the service.
type User struct {
	resource.Base `bson:",inline"`
	Name          string `bson:"name" json:"name" validate:"required,min=2,max=100"`
	Email         string `bson:"email" json:"email" validate:"required,email,max=254"`
	Password      string `bson:"password" json:"-"`
	Role          string `bson:"role" json:"role" validate:"required,oneof=user admin"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

var (
	UserSearchFields = []string{"name", "email"}
	UserSchema       = resource.Schema{
		"name":  resource.String,
		"email": resource.String,
		"role":  resource.String,
	}
)
