package handler

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Swagger UI loaded from a CDN, pointed at /openapi.yaml.
//
//go:embed swagger.html
var swaggerHTML []byte

//go:embed openapi.yaml
var openAPISpec []byte

// RegisterDocs mounts documentation endpoints at the root:
//   - GET /openapi.yaml: the embedded OpenAPI document
//   - GET /docs: Swagger UI rendering of it
func RegisterDocs(r *gin.Engine) {
	r.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", openAPISpec)
	})
	r.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", swaggerHTML)
	})
}
