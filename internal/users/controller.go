package users

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
	"go.uber.org/zap"
)

type Controller = resource.Controller[models.User, *models.User]

// NewController builds the admin user resource. Passwords change only
// through the auth endpoints.
func NewController(store resource.Store[models.User], log *zap.Logger) *Controller {
	return resource.NewController[models.User](store, resource.Options[models.User]{
		Name:         "User",
		SearchFields: models.UserSearchFields,
		Schema:       models.UserSchema,
		ReadOnly:     []string{"password"},
		Logger:       log,
		Hooks: resource.Hooks[models.User]{
			BeforeUpdate: func(_ *resource.Actor, u *models.User) error {
				u.Name = strings.TrimSpace(u.Name)
				u.Email = normalizeEmail(u.Email)
				return nil
			},
		},
	})
}

// Register mounts the admin user routes; every handler in admin runs first.
func Register(rg *gin.RouterGroup, ctl *Controller, admin ...gin.HandlerFunc) {
	rg.Use(admin...)
	rg.GET("", ctl.GetAll)
	rg.GET("/:id", ctl.GetByID)
	rg.PATCH("/:id", ctl.Update)
	rg.DELETE("/:id", ctl.Delete)
}
