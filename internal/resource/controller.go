package resource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/portfolio/backend/go-services/internal/validation"
	"github.com/portfolio/portfolio/backend/go-services/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Envelope messages shared by every resource handler.
const (
	MsgValidationFailed = "Validation failed"
	MsgDuplicate        = "Duplicate field value entered"
	MsgInvalidQuery     = "Invalid query"
)

// ErrEmptyBody is returned by DecodeStrict when the body holds no JSON value.
var ErrEmptyBody = errors.New("request body is required")

// Hooks customise a controller without overriding its handlers. Both run on
// the decoded entity before validation; actor is nil for anonymous callers.
// Returning a *validation.Errors reports a validation failure.
type Hooks[T any] struct {
	BeforeCreate func(actor *Actor, doc *T) error
	BeforeUpdate func(actor *Actor, doc *T) error
}

type Options[T any] struct {
	// Name is the display name used in messages, e.g. "Project".
	Name string
	// Plural defaults to Name + "s".
	Plural       string
	SearchFields []string
	Schema       Schema
	// ReadOnly lists extra json keys an update body may not contain.
	ReadOnly  []string
	Validator *validation.Validator
	Logger    *zap.Logger
	Hooks     Hooks[T]
}

// Controller exposes create, list, get, update and soft delete over one
// entity type. P is the pointer type of T, which must embed Base.
type Controller[T any, P interface {
	*T
	Model
}] struct {
	store     Store[T]
	name      string
	plural    string
	search    []string
	schema    Schema
	readOnly  map[string]bool
	validator *validation.Validator
	log       *zap.Logger
	hooks     Hooks[T]
}

func NewController[T any, P interface {
	*T
	Model
}](store Store[T], opts Options[T]) *Controller[T, P] {
	if opts.Validator == nil {
		opts.Validator = validation.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Plural == "" {
		opts.Plural = opts.Name + "s"
	}
	readOnly := map[string]bool{"id": true, "_id": true, "isActive": true, "createdAt": true, "updatedAt": true}
	for _, k := range opts.ReadOnly {
		readOnly[k] = true
	}
	return &Controller[T, P]{
		store:     store,
		readOnly:  readOnly,
		name:      opts.Name,
		plural:    opts.Plural,
		search:    opts.SearchFields,
		schema:    opts.Schema.WithBase(),
		validator: opts.Validator,
		log:       opts.Logger.With(zap.String("resource", opts.Name)),
		hooks:     opts.Hooks,
	}
}

func (ctl *Controller[T, P]) Store() Store[T] { return ctl.store }

func (ctl *Controller[T, P]) observe(op, outcome string) {
	metrics.ObserveResource(ctl.name, op, outcome)
}

// failWrite renders a create/update failure. Validation and duplicate errors
// get their own messages; anything else is reported verbatim.
func (ctl *Controller[T, P]) failWrite(c *gin.Context, op string, err error) {
	if msgs, ok := validation.Messages(err); ok {
		ctl.log.Warn(op+" validation failed", zap.Strings("errors", msgs))
		ctl.observe(op, "invalid")
		Fail(c, http.StatusBadRequest, MsgValidationFailed, msgs...)
		return
	}
	if errors.Is(err, ErrDuplicateKey) {
		ctl.log.Warn(op+" duplicate key", zap.Error(err))
		ctl.observe(op, "duplicate")
		Fail(c, http.StatusBadRequest, MsgDuplicate)
		return
	}
	ctl.log.Error(op+" failed", zap.Error(err))
	ctl.observe(op, "error")
	Fail(c, http.StatusBadRequest, err.Error())
}

func (ctl *Controller[T, P]) notFound(c *gin.Context, op, id string) {
	ctl.log.Info(op+" not found", zap.String("id", id))
	ctl.observe(op, "not_found")
	Fail(c, http.StatusNotFound, ctl.name+" not found")
}

// activeFilter scopes an id to active documents. A malformed id cannot match
// any document and is reported as not found.
func activeFilter(raw string) (bson.M, bool) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": id, "isActive": true}, true
}

// Create handles POST /.
func (ctl *Controller[T, P]) Create(c *gin.Context) {
	var doc T
	if err := DecodeStrict(c.Request.Body, &doc); err != nil {
		ctl.failWrite(c, "create", err)
		return
	}
	meta := P(&doc).Meta()
	*meta = Base{IsActive: true}

	if ctl.hooks.BeforeCreate != nil {
		if err := ctl.hooks.BeforeCreate(ActorFrom(c), &doc); err != nil {
			ctl.failWrite(c, "create", err)
			return
		}
	}
	if err := ctl.validator.Struct(&doc); err != nil {
		ctl.failWrite(c, "create", err)
		return
	}
	if err := ctl.store.Insert(c.Request.Context(), &doc); err != nil {
		ctl.failWrite(c, "create", err)
		return
	}

	ctl.log.Info("created", zap.String("id", meta.ID.Hex()))
	ctl.observe("create", "success")
	Success(c, http.StatusCreated, ctl.name+" created successfully", doc)
}

// GetAll handles GET / with filtering, search, sort, projection and paging.
func (ctl *Controller[T, P]) GetAll(c *gin.Context) {
	q, err := NewFeatures(bson.M{"isActive": true}, c.Request.URL.Query(), ctl.schema).
		Filter().
		Search(ctl.search).
		Sort().
		LimitFields().
		Paginate().
		Query()
	if err != nil {
		var qe *QueryError
		if errors.As(err, &qe) {
			ctl.log.Warn("list rejected query", zap.Strings("errors", qe.Errors))
			ctl.observe("list", "invalid")
			Fail(c, http.StatusBadRequest, MsgInvalidQuery, qe.Errors...)
			return
		}
		ctl.failRead(c, "list", err)
		return
	}

	res, err := GetResults(c.Request.Context(), ctl.store, q)
	if err != nil {
		ctl.failRead(c, "list", err)
		return
	}
	ctl.log.Debug("listed", zap.Int("count", len(res.Items)), zap.Int64("total", res.Pagination.Total))
	shaped, ok, err := shapeItems(res.Items, q.Projection)
	if err != nil {
		ctl.failRead(c, "list", err)
		return
	}
	ctl.observe("list", "success")
	if ok {
		Success(c, http.StatusOK, ctl.plural+" retrieved successfully",
			Results[map[string]json.RawMessage]{Items: shaped, Pagination: res.Pagination})
		return
	}
	Success(c, http.StatusOK, ctl.plural+" retrieved successfully", res)
}

func (ctl *Controller[T, P]) failRead(c *gin.Context, op string, err error) {
	ctl.log.Error(op+" failed", zap.Error(err))
	ctl.observe(op, "error")
	Fail(c, http.StatusInternalServerError, err.Error())
}

// GetByID handles GET /:id.
func (ctl *Controller[T, P]) GetByID(c *gin.Context) {
	id := c.Param("id")
	filter, ok := activeFilter(id)
	if !ok {
		ctl.notFound(c, "get", id)
		return
	}
	doc, err := ctl.store.FindOne(c.Request.Context(), filter)
	if errors.Is(err, ErrNotFound) {
		ctl.notFound(c, "get", id)
		return
	}
	if err != nil {
		ctl.failRead(c, "get", err)
		return
	}
	ctl.observe("get", "success")
	Success(c, http.StatusOK, ctl.name+" retrieved successfully", doc)
}

// Update handles PATCH /:id. The body is merged onto the stored entity, the
// result is validated as a whole and only the changed fields are written.
func (ctl *Controller[T, P]) Update(c *gin.Context) {
	id := c.Param("id")
	filter, ok := activeFilter(id)
	if !ok {
		ctl.notFound(c, "update", id)
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		ctl.failWrite(c, "update", err)
		return
	}
	if err := checkPatch(body, ctl.readOnly); err != nil {
		ctl.failWrite(c, "update", err)
		return
	}

	ctx := c.Request.Context()
	existing, err := ctl.store.FindOne(ctx, filter)
	if errors.Is(err, ErrNotFound) {
		ctl.notFound(c, "update", id)
		return
	}
	if err != nil {
		ctl.failWrite(c, "update", err)
		return
	}

	// decode onto a deep copy; json reuses slice backing arrays and pointers
	copied, err := clone(existing)
	if err != nil {
		ctl.failWrite(c, "update", err)
		return
	}
	merged := *copied
	if err := DecodeStrict(bytes.NewReader(body), &merged); err != nil {
		ctl.failWrite(c, "update", err)
		return
	}
	// store-owned fields always come from the stored entity
	*P(&merged).Meta() = *P(existing).Meta()

	if ctl.hooks.BeforeUpdate != nil {
		if err := ctl.hooks.BeforeUpdate(ActorFrom(c), &merged); err != nil {
			ctl.failWrite(c, "update", err)
			return
		}
		*P(&merged).Meta() = *P(existing).Meta()
	}
	if err := ctl.validator.Struct(&merged); err != nil {
		ctl.failWrite(c, "update", err)
		return
	}

	set, err := changedFields(existing, &merged)
	if err != nil {
		ctl.failWrite(c, "update", err)
		return
	}
	updated, err := ctl.store.UpdateOne(ctx, filter, set)
	if errors.Is(err, ErrNotFound) {
		ctl.notFound(c, "update", id)
		return
	}
	if err != nil {
		ctl.failWrite(c, "update", err)
		return
	}

	ctl.log.Info("updated", zap.String("id", id), zap.Int("fields", len(set)))
	ctl.observe("update", "success")
	Success(c, http.StatusOK, ctl.name+" updated successfully", updated)
}

// Delete handles DELETE /:id by clearing isActive.
func (ctl *Controller[T, P]) Delete(c *gin.Context) {
	id := c.Param("id")
	filter, ok := activeFilter(id)
	if !ok {
		ctl.notFound(c, "delete", id)
		return
	}
	doc, err := ctl.store.UpdateOne(c.Request.Context(), filter, bson.M{"isActive": false})
	if errors.Is(err, ErrNotFound) {
		ctl.notFound(c, "delete", id)
		return
	}
	if err != nil {
		ctl.failRead(c, "delete", err)
		return
	}
	ctl.log.Info("deleted", zap.String("id", id))
	ctl.observe("delete", "success")
	Success(c, http.StatusOK, ctl.name+" deleted successfully", doc)
}

// Register mounts the five handlers on rg. Extra handlers in write run before
// create, update and delete.
func (ctl *Controller[T, P]) Register(rg gin.IRoutes, write ...gin.HandlerFunc) {
	rg.GET("", ctl.GetAll)
	rg.GET("/:id", ctl.GetByID)
	rg.POST("", append(append([]gin.HandlerFunc{}, write...), ctl.Create)...)
	rg.PATCH("/:id", append(append([]gin.HandlerFunc{}, write...), ctl.Update)...)
	rg.DELETE("/:id", append(append([]gin.HandlerFunc{}, write...), ctl.Delete)...)
}

// DecodeStrict decodes exactly one JSON value from r into v. Unknown fields
// and trailing data are rejected.
func DecodeStrict(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// checkPatch requires a non-empty JSON object without read-only keys.
func checkPatch(body []byte, readOnly map[string]bool) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyBody
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return err
	}
	if len(fields) == 0 {
		return validation.New("at least one field must be provided")
	}
	var msgs []string
	for k := range fields {
		if readOnly[k] {
			msgs = append(msgs, fmt.Sprintf("%s cannot be updated", k))
		}
	}
	if len(msgs) > 0 {
		sort.Strings(msgs)
		return validation.New(msgs...)
	}
	return nil
}

// changedFields returns the bson fields of after that differ from before.
func changedFields(before, after interface{}) (bson.M, error) {
	b, err := toDoc(before)
	if err != nil {
		return nil, err
	}
	a, err := toDoc(after)
	if err != nil {
		return nil, err
	}
	for _, k := range systemKeys {
		delete(a, k)
		delete(b, k)
	}
	set := bson.M{}
	for k, v := range a {
		if !reflect.DeepEqual(b[k], v) {
			set[k] = v
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			set[k] = nil
		}
	}
	return set, nil
}
