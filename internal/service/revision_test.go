package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/revision-history-service/internal/enumerate"
	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/privilege"
	"github.com/maxviazov/revision-history-service/internal/render"
	"github.com/maxviazov/revision-history-service/internal/repository"
	"github.com/maxviazov/revision-history-service/internal/repository/memory"
	"github.com/maxviazov/revision-history-service/internal/service"
)

type observation struct {
	mode, outcome string
	rows          int
}

type fakeRecorder struct{ seen []observation }

func (f *fakeRecorder) ObserveEnumeration(mode, outcome string, rows int) {
	f.seen = append(f.seen, observation{mode, outcome, rows})
}

type failingStore struct{ repository.RevisionStore }

func (failingStore) FetchOrdered(context.Context, repository.OrderedFilter) ([]model.Revision, error) {
	return nil, errors.New("connection reset")
}

var sysop = model.Caller{ID: 9, Name: "Admin", Groups: []string{"sysop"}}

func newRevisionService(store repository.RevisionStore, rec service.Recorder) service.RevisionService {
	privs := privilege.NewGroupChecker(map[string][]string{"sysop": {"deletedhistory", "rollback"}})
	enum := enumerate.New(store, privs, enumerate.Limits{})
	rn := render.New(privs, render.NewTokenRegistry(render.NewRollbackIssuer("k", privs)))
	return service.NewRevisionService(enum, rn, rec, zerolog.New(io.Discard))
}

func seeded() *memory.Store {
	s := memory.New()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 3; i++ {
		s.Seed(model.Revision{ID: i, PageID: 1, PageTitle: "Main", UserText: "Alice", Timestamp: base.Add(time.Duration(i) * time.Hour)})
	}
	return s
}

func TestListRevisions_RendersAndRecords(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newRevisionService(seeded(), rec)

	out, err := svc.ListRevisions(context.Background(), model.Caller{}, service.ListRequest{
		Query: enumerate.Query{PageIDs: []int64{1}, Limit: enumerate.Limit{N: 2}},
		Props: render.PropSet{render.PropIDs: true},
	})
	require.NoError(t, err)
	require.Len(t, out.Pages, 1)
	assert.Equal(t, "Main", out.Pages[0].Title)
	assert.Len(t, out.Pages[0].Revisions, 2)
	assert.Equal(t, "2", out.Continue)
	assert.Equal(t, []observation{{"enumerate", "ok", 2}}, rec.seen)
}

func TestListRevisions_LogsRenderedProps(t *testing.T) {
	var buf bytes.Buffer
	privs := privilege.NewGroupChecker(nil)
	enum := enumerate.New(seeded(), privs, enumerate.Limits{})
	svc := service.NewRevisionService(enum, render.New(privs, nil), nil, zerolog.New(&buf))

	_, err := svc.ListRevisions(context.Background(), model.Caller{}, service.ListRequest{
		Query: enumerate.Query{PageIDs: []int64{1}},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"props":["ids","flags","timestamp","user","comment"]`)
}

func TestListRevisions_ClassifiesFailures(t *testing.T) {
	cases := []struct {
		name    string
		store   repository.RevisionStore
		query   enumerate.Query
		outcome string
	}{
		{"usage", seeded(), enumerate.Query{PageIDs: []int64{1, 2}, Limit: enumerate.Limit{N: 1}}, "usage"},
		{"continuation", seeded(), enumerate.Query{PageIDs: []int64{1}, Limit: enumerate.Limit{N: 1}, Continue: "1|2"}, "continuation"},
		{"store", failingStore{seeded()}, enumerate.Query{PageIDs: []int64{1}, Limit: enumerate.Limit{N: 1}}, "store"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			svc := newRevisionService(tc.store, rec)
			_, err := svc.ListRevisions(context.Background(), model.Caller{}, service.ListRequest{Query: tc.query})
			require.Error(t, err)
			require.Len(t, rec.seen, 1)
			assert.Equal(t, tc.outcome, rec.seen[0].outcome)
		})
	}
}

func TestListRevisions_CanceledContext(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newRevisionService(seeded(), rec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ListRevisions(ctx, model.Caller{}, service.ListRequest{Query: enumerate.Query{PageIDs: []int64{1}}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "canceled", rec.seen[0].outcome)
}

func TestCacheModeAndTokens(t *testing.T) {
	svc := newRevisionService(seeded(), nil)

	assert.Equal(t, render.CachePublic, svc.CacheMode(model.Caller{}, service.ListRequest{}))
	assert.Equal(t, render.CachePrivate, svc.CacheMode(sysop, service.ListRequest{}))

	kinds, err := svc.TokenKinds([]string{"rollback"})
	require.NoError(t, err)
	assert.Equal(t, []render.TokenKind{render.TokenRollback}, kinds)

	_, err = svc.TokenKinds([]string{"delete"})
	assert.Error(t, err)
}
