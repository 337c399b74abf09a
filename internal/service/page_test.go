package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/repository"
	"github.com/maxviazov/revision-history-service/internal/repository/memory"
	"github.com/maxviazov/revision-history-service/internal/service"
)

// countingTx records how many units of work ran inside a transaction.
type countingTx struct{ calls int }

func (c *countingTx) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	c.calls++
	return fn(ctx)
}

func newPageService() (service.PageService, *memory.Store, *countingTx) {
	store := memory.New()
	tx := &countingTx{}
	return service.NewPageService(store.Pages(), store.Writer(), tx, zerolog.New(io.Discard)), store, tx
}

var alice = model.Caller{ID: 1, Name: "Alice"}

func TestCreatePage(t *testing.T) {
	svc, _, _ := newPageService()
	ctx := context.Background()

	p, err := svc.CreatePage(ctx, "  Main Page ")
	require.NoError(t, err)
	assert.Equal(t, "Main Page", p.Title)

	_, err = svc.CreatePage(ctx, "Main Page")
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	for _, bad := range []string{"", "   ", "a|b", strings.Repeat("x", 256)} {
		_, err := svc.CreatePage(ctx, bad)
		assert.ErrorIs(t, err, service.ErrInvalidInput, bad)
		require.Len(t, service.FieldErrors(err), 1)
		assert.Equal(t, "title", service.FieldErrors(err)[0].Field)
	}
}

func TestGetPage(t *testing.T) {
	svc, _, _ := newPageService()
	_, err := svc.GetPage(context.Background(), 0)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = svc.GetPage(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppendRevision_ChainsAndDefaults(t *testing.T) {
	svc, _, tx := newPageService()
	ctx := context.Background()
	p, err := svc.CreatePage(ctx, "History")
	require.NoError(t, err)

	first, err := svc.AppendRevision(ctx, p.ID, alice, service.RevisionInput{Comment: "create", Size: 10, Tags: []string{" a ", "a", ""}})
	require.NoError(t, err)
	second, err := svc.AppendRevision(ctx, p.ID, alice, service.RevisionInput{Comment: "fix", Minor: true})
	require.NoError(t, err)

	assert.Equal(t, "wikitext", first.ContentModel)
	assert.Equal(t, []string{"a"}, first.Tags)
	assert.Equal(t, "Alice", first.UserText)
	assert.Equal(t, int64(1), first.UserID)
	assert.Equal(t, first.ID, second.ParentID)
	assert.Equal(t, 2, tx.calls)

	page, err := svc.GetPage(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, page.LatestRevID)
}

func TestAppendRevision_Validation(t *testing.T) {
	svc, _, tx := newPageService()
	_, err := svc.AppendRevision(context.Background(), 0, model.Caller{}, service.RevisionInput{
		Size: -1, SHA1: "NOT-HEX", Comment: strings.Repeat("c", 501),
		Tags: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"},
	})
	require.ErrorIs(t, err, service.ErrInvalidInput)

	var fields []string
	for _, fe := range service.FieldErrors(err) {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"id", "user", "comment", "size", "sha1", "tags"}, fields)
	assert.Zero(t, tx.calls)
}

func TestAppendRevision_MissingPage(t *testing.T) {
	svc, _, _ := newPageService()
	_, err := svc.AppendRevision(context.Background(), 77, alice, service.RevisionInput{})
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}
