package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRoutes) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>portfolio API - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "portfolio API", "version": "v1" },
  "servers": [{ "url": "/api/v1" }],
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "parameters": {
      "id": { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } },
      "page": { "name": "page", "in": "query", "schema": { "type": "integer", "minimum": 1, "default": 1 } },
      "limit": { "name": "limit", "in": "query", "schema": { "type": "integer", "minimum": 1, "maximum": 100, "default": 10 } },
      "sort": { "name": "sort", "in": "query", "description": "comma separated fields, '-' for descending", "schema": { "type": "string", "default": "-createdAt" } },
      "fields": { "name": "fields", "in": "query", "description": "comma separated projection", "schema": { "type": "string" } },
      "search": { "name": "search", "in": "query", "schema": { "type": "string" } }
    }
  },
  "paths": {
    "/auth/register": { "post": { "summary": "Register a user", "responses": { "201": { "description": "user and tokens" }, "400": { "description": "validation failed or email taken" } } } },
    "/auth/login": { "post": { "summary": "Log in with email and password", "responses": { "200": { "description": "user and tokens" }, "401": { "description": "invalid credentials" } } } },
    "/auth/refresh-token": { "post": { "summary": "Exchange a refresh token for an access token", "responses": { "200": { "description": "new access token" }, "401": { "description": "missing or invalid refresh token" } } } },
    "/auth/logout": { "post": { "summary": "Revoke the refresh session and access token", "security": [{ "bearer": [] }], "responses": { "200": { "description": "logged out" } } } },
    "/auth/profile": {
      "get": { "summary": "Current user", "security": [{ "bearer": [] }], "responses": { "200": { "description": "user" } } },
      "patch": { "summary": "Update name or email", "security": [{ "bearer": [] }], "responses": { "200": { "description": "user" }, "400": { "description": "validation failed" } } }
    },
    "/projects": {
      "get": { "summary": "List projects", "parameters": [{ "$ref": "#/components/parameters/page" }, { "$ref": "#/components/parameters/limit" }, { "$ref": "#/components/parameters/sort" }, { "$ref": "#/components/parameters/fields" }, { "$ref": "#/components/parameters/search" }], "responses": { "200": { "description": "items and pagination" }, "400": { "description": "invalid query" } } },
      "post": { "summary": "Create a project", "security": [{ "bearer": [] }], "responses": { "201": { "description": "project" }, "400": { "description": "validation failed or duplicate" } } }
    },
    "/projects/bulk": { "patch": { "summary": "Update several projects", "security": [{ "bearer": [] }], "responses": { "200": { "description": "modified count" }, "404": { "description": "nothing updated" } } } },
    "/projects/slug/{slug}": { "get": { "summary": "Project by slug", "parameters": [{ "name": "slug", "in": "path", "required": true, "schema": { "type": "string" } }], "responses": { "200": { "description": "project" }, "404": { "description": "not found" } } } },
    "/projects/{id}": {
      "get": { "summary": "Project by id", "parameters": [{ "$ref": "#/components/parameters/id" }], "responses": { "200": { "description": "project" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update a project", "security": [{ "bearer": [] }], "parameters": [{ "$ref": "#/components/parameters/id" }], "responses": { "200": { "description": "project" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Deactivate a project", "security": [{ "bearer": [] }], "parameters": [{ "$ref": "#/components/parameters/id" }], "responses": { "200": { "description": "project" }, "404": { "description": "not found" } } }
    },
    "/users": { "get": { "summary": "List users (admin)", "security": [{ "bearer": [] }], "responses": { "200": { "description": "items and pagination" } } } },
    "/users/{id}": {
      "get": { "summary": "User by id (admin)", "security": [{ "bearer": [] }], "parameters": [{ "$ref": "#/components/parameters/id" }], "responses": { "200": { "description": "user" } } },
      "patch": { "summary": "Update a user (admin)", "security": [{ "bearer": [] }], "parameters": [{ "$ref": "#/components/parameters/id" }], "responses": { "200": { "description": "user" } } },
      "delete": { "summary": "Deactivate a user (admin)", "security": [{ "bearer": [] }], "parameters": [{ "$ref": "#/components/parameters/id" }], "responses": { "200": { "description": "user" } } }
    },
    "/uploads/images": {
      "post": { "summary": "Upload up to 10 images (multipart field images)", "security": [{ "bearer": [] }], "responses": { "201": { "description": "stored images" }, "400": { "description": "rejected file" } } },
      "delete": { "summary": "Delete uploaded images by key", "security": [{ "bearer": [] }], "responses": { "200": { "description": "deleted count" } } }
    }
  }
}`
