package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/revision-history-service/internal/enumerate"
	"github.com/maxviazov/revision-history-service/internal/handler"
	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/privilege"
	"github.com/maxviazov/revision-history-service/internal/render"
	"github.com/maxviazov/revision-history-service/internal/repository/memory"
	"github.com/maxviazov/revision-history-service/internal/service"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type env struct {
	r     *gin.Engine
	store *memory.Store
}

func newEnv(t *testing.T) env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := memory.New(memory.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	privs := privilege.NewGroupChecker(map[string][]string{
		"sysop": {"deletedhistory", "rollback", "apihighlimits"},
	})
	enum := enumerate.New(store.Revisions(), privs, enumerate.DefaultLimits())
	renderer := render.New(privs, render.NewTokenRegistry(render.NewRollbackIssuer("secret", privs)))
	log := zerolog.Nop()

	r := gin.New()
	r.Use(handler.RequestID())
	handler.Register(r, handler.Deps{
		Pinger:    store,
		Revisions: service.NewRevisionService(enum, renderer, nil, log),
		Pages:     service.NewPageService(store.Pages(), store.Writer(), store.Tx(), log),
	})
	return env{r: r, store: store}
}

func (e env) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

var alice = map[string]string{handler.HeaderUser: "Alice", handler.HeaderUserID: "7"}

// seedPage creates a page with n revisions through the API.
func (e env) seedPage(t *testing.T, title string, n int) int64 {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/pages", map[string]string{"title": title}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var page model.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))

	for i := 1; i <= n; i++ {
		w := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/pages/%d/revisions", page.ID),
			map[string]any{"comment": fmt.Sprintf("edit %d", i), "size": i * 10}, alice)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	return page.ID
}

func decodeListing(t *testing.T, w *httptest.ResponseRecorder) model.RevisionListing {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out model.RevisionListing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func revIDs(l model.RevisionListing) []int64 {
	var out []int64
	for _, p := range l.Pages {
		for _, r := range p.Revisions {
			out = append(out, int64(r["revid"].(float64)))
		}
	}
	return out
}

func TestRevisions_EnumerateFollowsContinuation(t *testing.T) {
	e := newEnv(t)
	pageID := e.seedPage(t, "Main Page", 5)

	var got []int64
	path := fmt.Sprintf("/api/v1/revisions?pageids=%d&limit=2", pageID)
	cont := ""
	for i := 0; i < 5; i++ {
		p := path
		if cont != "" {
			p += "&continue=" + cont
		}
		l := decodeListing(t, e.do(t, http.MethodGet, p, nil, nil))
		got = append(got, revIDs(l)...)
		if l.Continue == "" {
			break
		}
		cont = l.Continue
	}
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, got)
}

func TestRevisions_NewerWithPipeSeparatedProps(t *testing.T) {
	e := newEnv(t)
	pageID := e.seedPage(t, "Sandbox", 3)

	l := decodeListing(t, e.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/revisions?pageids=%d&dir=newer&prop=ids|size", pageID), nil, nil))
	require.Len(t, l.Pages, 1)
	assert.Equal(t, "Sandbox", l.Pages[0].Title)
	assert.Equal(t, []int64{1, 2, 3}, revIDs(l))
	first := l.Pages[0].Revisions[0]
	assert.EqualValues(t, 10, first["size"])
	assert.NotContains(t, first, "comment")
}

func TestRevisions_LatestPerPage(t *testing.T) {
	e := newEnv(t)
	a := e.seedPage(t, "A", 2)
	b := e.seedPage(t, "B", 3)

	w := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/revisions?pageids=%d,%d", a, b), nil, nil)
	l := decodeListing(t, w)
	assert.Equal(t, []int64{2, 5}, revIDs(l))
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))
}

func TestRevisions_ByIDs(t *testing.T) {
	e := newEnv(t)
	e.seedPage(t, "A", 4)

	l := decodeListing(t, e.do(t, http.MethodGet, "/api/v1/revisions?revids=3|1|99", nil, nil))
	assert.Equal(t, []int64{1, 3}, revIDs(l))
}

func TestRevisions_RollbackTokenIsPrivate(t *testing.T) {
	e := newEnv(t)
	pageID := e.seedPage(t, "A", 1)

	sysop := map[string]string{handler.HeaderUser: "Root", handler.HeaderUserID: "1", handler.HeaderGroups: "sysop"}
	w := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/revisions?pageids=%d&token=rollback", pageID), nil, sysop)
	l := decodeListing(t, w)
	require.Len(t, l.Pages, 1)
	assert.NotEmpty(t, l.Pages[0].Revisions[0]["rollbacktoken"])
	assert.Equal(t, "private, no-store", w.Header().Get("Cache-Control"))
}

func TestRevisions_UsageErrors(t *testing.T) {
	e := newEnv(t)
	a := e.seedPage(t, "A", 2)
	b := e.seedPage(t, "B", 2)

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"multiple pages with limit", fmt.Sprintf("pageids=%d|%d&limit=1", a, b), enumerate.CodeMultPages},
		{"revids with enumeration", "revids=1&limit=5", enumerate.CodeRevIDs},
		{"bad limit", fmt.Sprintf("pageids=%d&limit=zero", a), enumerate.CodeBadLimit},
		{"bad prop", fmt.Sprintf("pageids=%d&prop=bogus", a), render.CodeBadProp},
		{"bad token kind", fmt.Sprintf("pageids=%d&token=delete", a), render.CodeBadToken},
		{"bad revids", "revids=x", enumerate.CodeBadParams},
		{"bad timestamp", fmt.Sprintf("pageids=%d&start=yesterday", a), enumerate.CodeBadParams},
		{"bad continue", fmt.Sprintf("pageids=%d&limit=1&continue=abc", a), "badcontinue"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, http.MethodGet, "/api/v1/revisions?"+tc.query, nil, nil)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			var payload map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
			assert.Equal(t, tc.code, payload["code"])
		})
	}
}

func TestPages_CreateGetAndErrors(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/pages", map[string]string{"title": "Help"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/pages", map[string]string{"title": "Help"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/pages", map[string]string{"title": "a|b"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/pages/1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page model.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, "Help", page.Title)

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/v1/pages/42", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/v1/pages/abc", nil, nil).Code)
}

func TestPages_AppendRequiresCaller(t *testing.T) {
	e := newEnv(t)
	pageID := e.seedPage(t, "A", 0)

	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/pages/%d/revisions", pageID), map[string]any{"comment": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/pages/%d/revisions", pageID), map[string]any{"comment": "x"}, alice)
	require.Equal(t, http.StatusCreated, w.Code)
	var rev model.Revision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rev))
	assert.Equal(t, "Alice", rev.UserText)
	assert.EqualValues(t, 7, rev.UserID)
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		err  error
		path string
		want int
	}{
		{"live", nil, "/live", http.StatusOK},
		{"ready", nil, "/api/v1/health/ready", http.StatusOK},
		{"not ready", errors.New("db down"), "/ready", http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			handler.Register(r, handler.Deps{Pinger: stubPinger{err: tc.err}})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestDocs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler.Register(r, handler.Deps{Pinger: stubPinger{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/revisions")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/live", nil, nil)
	assert.Len(t, w.Header().Get(handler.HeaderRequestID), 26)

	w = e.do(t, http.MethodGet, "/live", nil, map[string]string{handler.HeaderRequestID: "abc"})
	assert.Equal(t, "abc", w.Header().Get(handler.HeaderRequestID))
}
