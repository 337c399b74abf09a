package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/maxviazov/revision-history-service/internal/model"
)

// Headers set by the trusted front proxy after authenticating the user.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderUser      = "X-Wiki-User"
	HeaderUserID    = "X-Wiki-User-Id"
	HeaderGroups    = "X-Wiki-Groups"
)

const (
	ctxRequestID = "request_id"
	ctxCaller    = "caller"
)

// RequestID propagates an incoming X-Request-ID or mints a ULID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = ulid.Make().String()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger writes one line per request once it completes.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	l := logger.With().Str("module", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("request_id", c.GetString(ctxRequestID)).
			Str("caller", callerFrom(c).Name).
			Msg("request")
	}
}

// CallerFromHeaders builds the model.Caller for the request. A malformed
// user id leaves the caller without one.
func CallerFromHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := model.Caller{Name: strings.TrimSpace(c.GetHeader(HeaderUser))}
		if id, err := strconv.ParseInt(c.GetHeader(HeaderUserID), 10, 64); err == nil && id > 0 {
			caller.ID = id
		}
		caller.Groups = splitMulti(c.GetHeader(HeaderGroups))
		c.Set(ctxCaller, caller)
		c.Next()
	}
}

func callerFrom(c *gin.Context) model.Caller {
	if v, ok := c.Get(ctxCaller); ok {
		if caller, ok := v.(model.Caller); ok {
			return caller
		}
	}
	return model.Caller{}
}
