package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/revision-history-service/internal/service"
)

// Deps carries what the routes need. Metrics may be nil.
type Deps struct {
	Pinger    Pinger
	Revisions service.RevisionService
	Pages     service.PageService
	Metrics   http.Handler
}

// Register mounts all public routes on the given engine.
// Caller identity is resolved for every API route before the handlers run.
func Register(r *gin.Engine, d Deps) {
	h := NewHealthHandler(d.Pinger)

	// Health probes
	r.GET("/live", h.Liveness)
	r.GET("/ready", h.Readiness)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	RegisterDocs(r)

	api := r.Group(APIV1Prefix, CallerFromHeaders())
	{
		health := api.Group("/health")
		{
			health.GET("/live", h.Liveness)
			health.GET("/ready", h.Readiness)
		}
		if d.Revisions != nil {
			NewRevisionHandler(d.Revisions).Register(api)
		}
		if d.Pages != nil {
			NewPageHandler(d.Pages).Register(api)
		}
	}
}
