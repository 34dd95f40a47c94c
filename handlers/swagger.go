package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>safar-local Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// OpenAPI document for the session, data, trip and blog endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "safar-local", "version": "v0.1.0" },
  "paths": {
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "session still loading" } } } },
    "/api/v1/session": { "get": { "summary": "Current session and reconciler state", "responses": { "200": { "description": "session" } } } },
    "/api/v1/session/check": { "post": { "summary": "Re-evaluate the active session", "responses": { "200": { "description": "session" } } } },
    "/api/v1/session/demo": { "post": { "summary": "Start a fresh demo session", "responses": { "201": { "description": "demo session" } } } },
    "/api/v1/session/refresh": { "post": { "summary": "Republish a stored demo session", "responses": { "200": { "description": "session" } } } },
    "/api/v1/session/signout": { "post": { "summary": "Sign out and clear legacy global records", "responses": { "200": { "description": "signed out" } } } },
    "/api/v1/auth/signin": {
      "post": {
        "summary": "Sign in with an ID token",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"id_token":{"type":"string"}}}}}},
        "responses": { "200": { "description": "session" }, "401": { "description": "invalid token" } }
      }
    },
    "/api/v1/auth/refresh": { "post": { "summary": "Extend the provider session", "responses": { "200": { "description": "session" }, "401": { "description": "no session" } } } },
    "/api/v1/data/{key}": {
      "get": { "summary": "Read a value from the active user's namespace", "responses": { "200": { "description": "JSON value" }, "404": { "description": "missing" } } },
      "put": { "summary": "Write a JSON value", "responses": { "204": { "description": "stored" } } },
      "delete": { "summary": "Remove a value", "responses": { "204": { "description": "removed" } } }
    },
    "/api/v1/data": { "delete": { "summary": "Clear the active user's namespace", "responses": { "200": { "description": "count removed" } } } },
    "/api/v1/trips": {
      "get": { "summary": "List saved trips", "responses": { "200": { "description": "trips" } } },
      "post": { "summary": "Save a new trip", "responses": { "201": { "description": "trip" }, "400": { "description": "invalid trip" } } }
    },
    "/api/v1/trips/{id}": {
      "get": { "summary": "Get a trip", "responses": { "200": { "description": "trip" }, "404": { "description": "missing" } } },
      "put": { "summary": "Replace a trip", "responses": { "200": { "description": "trip" } } },
      "delete": { "summary": "Delete a trip", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/v1/trips/{id}/checklist/{item}": { "patch": { "summary": "Mark a checklist item", "responses": { "200": { "description": "trip" } } } },
    "/api/v1/current-trip": {
      "get": { "summary": "Trip being edited", "responses": { "200": { "description": "trip" }, "404": { "description": "none" } } },
      "put": { "summary": "Store a draft", "responses": { "200": { "description": "trip" } } },
      "delete": { "summary": "Discard the draft", "responses": { "204": { "description": "cleared" } } }
    },
    "/api/v1/blog/posts": {
      "get": { "summary": "List private posts", "responses": { "200": { "description": "posts" } } },
      "post": { "summary": "Create a private post", "responses": { "201": { "description": "post" }, "400": { "description": "invalid post" } } }
    },
    "/api/v1/blog/posts/{id}": { "delete": { "summary": "Delete a private post", "responses": { "204": { "description": "deleted" } } } }
  }
}`
