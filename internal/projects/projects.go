package projects

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
	"github.com/portfolio/portfolio/backend/go-services/internal/validation"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Controller = resource.Controller[models.Project, *models.Project]

// NewValidator returns a validator that also enforces the project date range.
func NewValidator() *validation.Validator {
	v := validation.NewValidator()
	v.RegisterStructValidation(validateDates, models.Project{})
	return v
}

// NewController wires the generic resource controller for projects.
func NewController(store resource.Store[models.Project], log *zap.Logger) *Controller {
	return resource.NewController[models.Project](store, resource.Options[models.Project]{
		Name:         "Project",
		SearchFields: models.ProjectSearchFields,
		Schema:       models.ProjectSchema,
		ReadOnly:     []string{"createdBy", "updatedBy"},
		Validator:    NewValidator(),
		Logger:       log,
		Hooks: resource.Hooks[models.Project]{
			BeforeCreate: beforeCreate,
			BeforeUpdate: beforeUpdate,
		},
	})
}

// NewMongoStore opens the projects collection and its lookup indexes.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*resource.MongoStore[models.Project], error) {
	col := db.Collection("projects")
	store, err := resource.NewMongoStore[models.Project](ctx, col, "slug")
	if err != nil {
		return nil, err
	}
	_, err = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "technologies", Value: 1}}},
		{Keys: bson.D{{Key: "priority", Value: 1}}},
		{Keys: bson.D{{Key: "createdBy", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create project indexes: %w", err)
	}
	return store, nil
}

// Register mounts the project routes. Reads are public; admin guards writes.
func Register(rg *gin.RouterGroup, ctl *Controller, h *Handler, admin ...gin.HandlerFunc) {
	with := func(last gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, admin...), last)
	}
	rg.GET("", ctl.GetAll)
	rg.GET("/slug/:slug", h.GetBySlug)
	rg.GET("/:id", ctl.GetByID)
	rg.POST("", with(ctl.Create)...)
	rg.PATCH("/bulk", with(h.BulkUpdate)...)
	rg.PATCH("/:id", with(ctl.Update)...)
	rg.DELETE("/:id", with(ctl.Delete)...)
}
