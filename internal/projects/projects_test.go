package projects

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

var adminID = primitive.NewObjectID()

func setup(t *testing.T) (*gin.Engine, *resource.MemoryStore[models.Project]) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := resource.NewMemoryStore[models.Project]("slug")
	r := gin.New()
	asAdmin := func(c *gin.Context) {
		c.Set("claims", map[string]interface{}{"id": adminID.Hex(), "email": "admin@example.com", "role": models.RoleAdmin})
		c.Next()
	}
	Register(r.Group("/api/v1/projects"), NewController(store, nil), NewHandler(store, nil), asAdmin)
	return r, store
}

func call(t *testing.T, r http.Handler, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func validProject(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":        title,
		"description":  "A project description that is long enough.",
		"github":       "https://github.com/me/" + Slugify(title),
		"technologies": []string{" Go ", "MongoDB"},
		"features":     []string{"CRUD"},
	}
}

func create(t *testing.T, r http.Handler, body map[string]interface{}) models.Project {
	t.Helper()
	code, env := call(t, r, http.MethodPost, "/api/v1/projects", body)
	require.Equal(t, http.StatusCreated, code, string(env.Data))
	require.Equal(t, "Project created successfully", env.Message)
	var p models.Project
	require.NoError(t, json.Unmarshal(env.Data, &p))
	return p
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "my-portfolio-site", Slugify("  My Portfolio: Site! "))
	assert.Equal(t, "go-2024", Slugify("Go -- 2024"))
	assert.Equal(t, "", Slugify("!!!"))
	assert.Len(t, Slugify(strings.Repeat("ab ", 80)), 100)
}

func TestShortDescription(t *testing.T) {
	assert.Equal(t, "short...", ShortDescription("short"))
	long := strings.Repeat("é", 600)
	got := ShortDescription(long)
	assert.Equal(t, 500, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestCreateDerivesFields(t *testing.T) {
	r, _ := setup(t)
	p := create(t, r, validProject("Portfolio Website"))

	assert.Equal(t, "portfolio-website", p.Slug)
	assert.Equal(t, "A project description that is long enough....", p.ShortDescription)
	assert.Equal(t, models.StatusPlanned, p.Status)
	assert.Equal(t, []string{"Go", "MongoDB"}, p.Technologies)
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, adminID, *p.CreatedBy)
	assert.True(t, p.IsActive)
}

func TestCreateIgnoresClientCreatedBy(t *testing.T) {
	r, _ := setup(t)
	body := validProject("Forged Owner")
	body["createdBy"] = primitive.NewObjectID().Hex()
	p := create(t, r, body)
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, adminID, *p.CreatedBy)
}

func TestCreateValidation(t *testing.T) {
	r, _ := setup(t)
	body := validProject("Bad")
	body["github"] = "https://gitlab.com/me/bad"
	body["status"] = "Done"
	body["startDate"] = "2024-05-01T00:00:00Z"
	body["endDate"] = "2024-04-01T00:00:00Z"

	code, env := call(t, r, http.MethodPost, "/api/v1/projects", body)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Validation failed", env.Message)
	var data resource.ErrorData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.ElementsMatch(t, []string{
		"title must be at least 5 characters",
		"github must be a valid GitHub repository URL",
		"status must be one of: Completed, Ongoing, Planned",
		"endDate must be after startDate",
	}, data.Errors)
}

func TestCreateDuplicateSlug(t *testing.T) {
	r, _ := setup(t)
	create(t, r, validProject("Same Title"))
	code, env := call(t, r, http.MethodPost, "/api/v1/projects", validProject("Same Title"))
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Duplicate field value entered", env.Message)
}

func TestGetBySlug(t *testing.T) {
	r, _ := setup(t)
	p := create(t, r, validProject("Slug Lookup"))

	code, env := call(t, r, http.MethodGet, "/api/v1/projects/slug/slug-lookup", nil)
	require.Equal(t, http.StatusOK, code)
	var got models.Project
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, p.ID, got.ID)

	code, env = call(t, r, http.MethodGet, "/api/v1/projects/slug/missing-one", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Project not found", env.Message)

	code, env = call(t, r, http.MethodGet, "/api/v1/projects/slug/Not_Valid", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid slug format", env.Message)

	code, _ = call(t, r, http.MethodDelete, "/api/v1/projects/"+p.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = call(t, r, http.MethodGet, "/api/v1/projects/slug/slug-lookup", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUpdateSetsUpdatedByAndRejectsOwnerChange(t *testing.T) {
	r, _ := setup(t)
	p := create(t, r, validProject("Update Me"))
	path := "/api/v1/projects/" + p.ID.Hex()

	code, env := call(t, r, http.MethodPatch, path, map[string]interface{}{"status": "Ongoing", "priority": 4})
	require.Equal(t, http.StatusOK, code, string(env.Data))
	var got models.Project
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Ongoing", got.Status)
	assert.Equal(t, 4, got.Priority)
	assert.Equal(t, p.Slug, got.Slug)
	require.NotNil(t, got.UpdatedBy)
	assert.Equal(t, adminID, *got.UpdatedBy)

	code, _ = call(t, r, http.MethodPatch, path, map[string]interface{}{"createdBy": primitive.NewObjectID().Hex()})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListFiltersBySchema(t *testing.T) {
	r, _ := setup(t)
	a := validProject("Alpha Project")
	a["priority"] = 2
	a["status"] = "Completed"
	b := validProject("Beta Project")
	b["priority"] = 7
	b["technologies"] = []string{"React"}
	create(t, r, a)
	create(t, r, b)

	code, env := call(t, r, http.MethodGet, "/api/v1/projects?status=Completed", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "alpha-project")
	assert.NotContains(t, string(env.Data), "beta-project")

	code, env = call(t, r, http.MethodGet, "/api/v1/projects?search=react", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "beta-project")
	assert.NotContains(t, string(env.Data), "alpha-project")

	code, _ = call(t, r, http.MethodGet, "/api/v1/projects?isActive=false", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBulkUpdate(t *testing.T) {
	r, store := setup(t)
	a := create(t, r, validProject("Bulk One"))
	b := create(t, r, validProject("Bulk Two"))
	c := create(t, r, validProject("Bulk Three"))

	code, env := call(t, r, http.MethodPatch, "/api/v1/projects/bulk", map[string]interface{}{
		"ids":        []string{a.ID.Hex(), b.ID.Hex()},
		"updateData": map[string]interface{}{"status": "Completed", "priority": 0},
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "2 projects updated successfully", env.Message)
	assert.JSONEq(t, `{"modifiedCount":2}`, string(env.Data))

	got, err := store.FindOne(t.Context(), map[string]interface{}{"_id": c.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlanned, got.Status)
	got, err = store.FindOne(t.Context(), map[string]interface{}{"_id": a.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.UpdatedBy)
}

func TestBulkUpdateErrors(t *testing.T) {
	r, _ := setup(t)
	p := create(t, r, validProject("Bulk Errors"))

	cases := []struct {
		name string
		body map[string]interface{}
		code int
		msg  string
	}{
		{"no ids", map[string]interface{}{"ids": []string{}, "updateData": map[string]interface{}{"status": "Completed"}}, http.StatusBadRequest, "Invalid project IDs"},
		{"bad id", map[string]interface{}{"ids": []string{"zzz"}, "updateData": map[string]interface{}{"status": "Completed"}}, http.StatusBadRequest, "Invalid project IDs"},
		{"no fields", map[string]interface{}{"ids": []string{p.ID.Hex()}, "updateData": map[string]interface{}{}}, http.StatusBadRequest, "No update fields provided"},
		{"invalid value", map[string]interface{}{"ids": []string{p.ID.Hex()}, "updateData": map[string]interface{}{"priority": 42}}, http.StatusBadRequest, "Validation failed"},
		{"nothing matched", map[string]interface{}{"ids": []string{primitive.NewObjectID().Hex()}, "updateData": map[string]interface{}{"goal": "x"}}, http.StatusNotFound, "No projects were updated"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := call(t, r, http.MethodPatch, "/api/v1/projects/bulk", tc.body)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.msg, env.Message)
		})
	}

	code, env := call(t, r, http.MethodPatch, "/api/v1/projects/bulk", map[string]interface{}{
		"ids": []string{p.ID.Hex()}, "updateData": map[string]interface{}{"slug": "x"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "unknown field")
}

func TestBulkUpdateRejectsTrailingData(t *testing.T) {
	r, store := setup(t)
	p := create(t, r, validProject("Bulk Trailing"))

	body := `{"ids":["` + p.ID.Hex() + `"],"updateData":{"status":"Completed"}} {"ids":[]}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/projects/bulk", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "request body must contain a single JSON value", env.Message)

	got, err := store.FindOne(t.Context(), map[string]interface{}{"_id": p.ID})
	require.NoError(t, err)
	assert.NotEqual(t, models.StatusCompleted, got.Status)
}
