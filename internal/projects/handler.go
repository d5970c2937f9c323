package projects

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
	"github.com/portfolio/portfolio/backend/go-services/internal/validation"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the project endpoints that sit outside the generic CRUD set.
type Handler struct {
	store     resource.Store[models.Project]
	validator *validation.Validator
	log       *zap.Logger
}

func NewHandler(store resource.Store[models.Project], log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: store, validator: NewValidator(), log: log.With(zap.String("resource", "Project"))}
}

// GetBySlug handles GET /projects/slug/:slug.
func (h *Handler) GetBySlug(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		resource.Fail(c, http.StatusBadRequest, "Slug parameter is missing")
		return
	}
	if err := h.validator.Var("slug", slug, "slug"); err != nil {
		resource.Fail(c, http.StatusBadRequest, "Invalid slug format")
		return
	}
	p, err := h.store.FindOne(c.Request.Context(), bson.M{"slug": slug, "isActive": true})
	if errors.Is(err, resource.ErrNotFound) {
		resource.Fail(c, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		h.log.Error("fetch by slug failed", zap.String("slug", slug), zap.Error(err))
		resource.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	resource.Success(c, http.StatusOK, "Project retrieved successfully", p)
}

// BulkFields are the project fields a bulk update may set.
type BulkFields struct {
	Status       *string   `json:"status" validate:"omitempty,oneof=Completed Ongoing Planned"`
	Priority     *int      `json:"priority" validate:"omitempty,gte=0,lte=10"`
	Category     *[]string `json:"category" validate:"omitempty,dive,min=1,max=50"`
	Technologies *[]string `json:"technologies" validate:"omitempty,dive,min=1,max=50"`
	Goal         *string   `json:"goal" validate:"omitempty,max=1000"`
}

func (f BulkFields) set() bson.M {
	set := bson.M{}
	if f.Status != nil {
		set["status"] = *f.Status
	}
	if f.Priority != nil {
		set["priority"] = *f.Priority
	}
	if f.Category != nil {
		set["category"] = trimAll(*f.Category)
	}
	if f.Technologies != nil {
		set["technologies"] = trimAll(*f.Technologies)
	}
	if f.Goal != nil {
		set["goal"] = strings.TrimSpace(*f.Goal)
	}
	return set
}

type BulkUpdateRequest struct {
	IDs        []string   `json:"ids"`
	UpdateData BulkFields `json:"updateData"`
}

// BulkUpdate handles PATCH /projects/bulk.
func (h *Handler) BulkUpdate(c *gin.Context) {
	var req BulkUpdateRequest
	if err := resource.DecodeStrict(c.Request.Body, &req); err != nil {
		resource.Fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.IDs) == 0 {
		resource.Fail(c, http.StatusBadRequest, "Invalid project IDs")
		return
	}
	ids := make([]primitive.ObjectID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			resource.Fail(c, http.StatusBadRequest, "Invalid project IDs")
			return
		}
		ids = append(ids, id)
	}
	if err := h.validator.Struct(req.UpdateData); err != nil {
		msgs, _ := validation.Messages(err)
		resource.Fail(c, http.StatusBadRequest, resource.MsgValidationFailed, msgs...)
		return
	}
	set := req.UpdateData.set()
	if len(set) == 0 {
		resource.Fail(c, http.StatusBadRequest, "No update fields provided")
		return
	}
	if actor := resource.ActorFrom(c); actor != nil {
		set["updatedBy"] = actor.ID
	}

	n, err := h.store.UpdateMany(c.Request.Context(), bson.M{"_id": bson.M{"$in": ids}, "isActive": true}, set)
	if err != nil {
		h.log.Error("bulk update failed", zap.Error(err))
		resource.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if n == 0 {
		resource.Fail(c, http.StatusNotFound, "No projects were updated")
		return
	}
	h.log.Info("bulk updated", zap.Int64("count", n))
	resource.Success(c, http.StatusOK, fmt.Sprintf("%d projects updated successfully", n), gin.H{"modifiedCount": n})
}
