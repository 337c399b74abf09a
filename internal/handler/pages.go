package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/revision-history-service/internal/service"
	"github.com/maxviazov/revision-history-service/pkg/response"
)

// PageHandler exposes page creation and the write side of history.
type PageHandler struct {
	svc service.PageService
}

func NewPageHandler(svc service.PageService) *PageHandler {
	return &PageHandler{svc: svc}
}

// Register mounts page routes on the given group.
func (h *PageHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/pages")
	g.POST("", h.create)
	g.GET("/:id", h.getByID)
	g.POST("/:id/revisions", h.appendRevision)
}

type createPageRequest struct {
	Title string `json:"title"`
}

type appendRevisionRequest struct {
	Comment      string   `json:"comment"`
	Size         int      `json:"size"`
	SHA1         string   `json:"sha1"`
	Minor        bool     `json:"minor"`
	ContentModel string   `json:"content_model"`
	Tags         []string `json:"tags"`
}

func (h *PageHandler) create(c *gin.Context) {
	var req createPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.ErrorPayload{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	page, err := h.svc.CreatePage(c.Request.Context(), req.Title)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, page)
}

func (h *PageHandler) getByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	page, err := h.svc.GetPage(c.Request.Context(), id)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, page)
}

func (h *PageHandler) appendRevision(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req appendRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.ErrorPayload{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	rev, err := h.svc.AppendRevision(c.Request.Context(), id, callerFrom(c), service.RevisionInput{
		Comment:      req.Comment,
		Size:         req.Size,
		SHA1:         req.SHA1,
		Minor:        req.Minor,
		ContentModel: req.ContentModel,
		Tags:         req.Tags,
	})
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, rev)
}

// pathID parses the :id segment and writes a 400 when it is not a positive integer.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.ErrorPayload{Error: "bad_request", Message: "id must be a positive integer"})
		return 0, false
	}
	return id, true
}
