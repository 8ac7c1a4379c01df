package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the HTTP
// surface (the realtime event contract lives on /ws and is not described here).
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
		c.String(http.StatusOK, swaggerJSON)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>rankboard — Swagger</title>
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

// Minimal OpenAPI document describing the non-realtime endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "rankboard", "version": "v0.1.0" },
  "paths": {
    "/api/upload": {
      "post": {
        "summary": "Upload a board image, optionally deleting a previously referenced object",
        "requestBody": { "content": { "multipart/form-data": { "schema": {"type":"object","properties":{"image":{"type":"string","format":"binary"},"previous":{"type":"string"}}}}}},
        "responses": { "200": { "description": "public URL of the stored object" }, "400": { "description": "missing or non-image upload" } }
      }
    },
    "/ws": { "get": { "summary": "Realtime event channel (WebSocket upgrade)", "responses": { "101": { "description": "switching protocols" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics exposition" } } } }
  }
}`
