package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/revision-history-service/internal/render"
	"github.com/maxviazov/revision-history-service/internal/service"
	"github.com/maxviazov/revision-history-service/pkg/response"
)

// RevisionHandler serves the revisions listing.
type RevisionHandler struct {
	svc service.RevisionService
}

func NewRevisionHandler(svc service.RevisionService) *RevisionHandler {
	return &RevisionHandler{svc: svc}
}

// Register mounts revision routes on the given group.
func (h *RevisionHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/revisions", h.list)
}

// list handles GET /revisions. Multi-value parameters accept "|" or "," separators.
func (h *RevisionHandler) list(c *gin.Context) {
	req, err := h.parseRequest(c)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	caller := callerFrom(c)
	out, err := h.svc.ListRevisions(c.Request.Context(), caller, req)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if h.svc.CacheMode(caller, req) == render.CachePrivate {
		c.Header("Cache-Control", "private, no-store")
	} else {
		c.Header("Cache-Control", "public, max-age=60")
	}
	response.WriteData(c, http.StatusOK, out)
}

func (h *RevisionHandler) parseRequest(c *gin.Context) (service.ListRequest, error) {
	q, err := parseQuery(c)
	if err != nil {
		return service.ListRequest{}, err
	}
	props, err := render.ParseProps(splitMulti(c.Query("prop")))
	if err != nil {
		return service.ListRequest{}, err
	}
	tokens, err := h.svc.TokenKinds(splitMulti(c.Query("token")))
	if err != nil {
		return service.ListRequest{}, err
	}
	return service.ListRequest{Query: q, Props: props, Tokens: tokens}, nil
}
