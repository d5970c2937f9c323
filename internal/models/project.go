package models

import (
	"time"

	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusCompleted = "Completed"
	StatusOngoing   = "Ongoing"
	StatusPlanned   = "Planned"
)

type ProjectImage struct {
	Src     string `bson:"src" json:"src" validate:"required,url"`
	Alt     string `bson:"alt" json:"alt,omitempty"`
	Caption string `bson:"caption" json:"caption,omitempty"`
}

// Project is a portfolio entry.
type Project struct {
	resource.Base    `bson:",inline"`
	Slug             string              `bson:"slug" json:"slug" validate:"required,min=3,max=100,slug"`
	Title            string              `bson:"title" json:"title" validate:"required,min=5,max=200"`
	Description      string              `bson:"description" json:"description" validate:"required,min=10,max=2000"`
	ShortDescription string              `bson:"shortDescription" json:"shortDescription,omitempty" validate:"max=500"`
	Images           []ProjectImage      `bson:"images" json:"images" validate:"dive"`
	Technologies     []string            `bson:"technologies" json:"technologies" validate:"dive,min=1,max=50"`
	Github           string              `bson:"github" json:"github" validate:"required,github_url"`
	LiveLink         string              `bson:"liveLink" json:"liveLink,omitempty" validate:"omitempty,url"`
	Status           string              `bson:"status" json:"status" validate:"required,oneof=Completed Ongoing Planned"`
	Features         []string            `bson:"features" json:"features" validate:"dive,min=1,max=200"`
	Goal             string              `bson:"goal" json:"goal,omitempty" validate:"max=1000"`
	Category         []string            `bson:"category" json:"category" validate:"dive,min=1,max=50"`
	Priority         int                 `bson:"priority" json:"priority" validate:"gte=0,lte=10"`
	StartDate        *time.Time          `bson:"startDate" json:"startDate,omitempty"`
	EndDate          *time.Time          `bson:"endDate" json:"endDate,omitempty"`
	CreatedBy        *primitive.ObjectID `bson:"createdBy" json:"createdBy,omitempty"`
	UpdatedBy        *primitive.ObjectID `bson:"updatedBy" json:"updatedBy,omitempty"`
}

var (
	ProjectSearchFields = []string{"title", "description", "technologies", "category"}
	ProjectSchema       = resource.Schema{
		"slug":         resource.String,
		"title":        resource.String,
		"description":  resource.String,
		"technologies": resource.String,
		"github":       resource.String,
		"liveLink":     resource.String,
		"status":       resource.String,
		"features":     resource.String,
		"goal":         resource.String,
		"category":     resource.String,
		"priority":     resource.Int,
		"startDate":    resource.Time,
		"endDate":      resource.Time,
		"createdBy":    resource.ObjectID,
		"updatedBy":    resource.ObjectID,
	}
)
