// Package service holds business logic orchestration across repositories and handlers.
// Kept intentionally lean: only use-case coordination, validation and domain error shaping.
package service

import (
	"context"
	"errors"

	"github.com/maxviazov/revision-history-service/internal/enumerate"
	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/render"
)

// ErrInvalidInput is the marker error for aggregated validation failures (maps to HTTP 400).
// Field-level details are retrieved via FieldErrors(err).
var ErrInvalidInput = errors.New("invalid input")

// FieldError describes a single invalid field in a client request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// invalidInputError aggregates multiple FieldError instances and unwraps to ErrInvalidInput.
type invalidInputError struct {
	fields []FieldError
}

func (e *invalidInputError) Error() string        { return ErrInvalidInput.Error() }
func (e *invalidInputError) Unwrap() error        { return ErrInvalidInput }
func (e *invalidInputError) Fields() []FieldError { return e.fields }

// newInvalidInput builds an aggregated validation error if any field errors are present.
func newInvalidInput(fe []FieldError) error {
	if len(fe) == 0 {
		return nil
	}
	return &invalidInputError{fields: fe}
}

// FieldErrors extracts field errors from an aggregated validation error.
func FieldErrors(err error) []FieldError {
	var fe interface{ Fields() []FieldError }
	if errors.As(err, &fe) && errors.Is(err, ErrInvalidInput) {
		return fe.Fields()
	}
	return nil
}

// ListRequest is a parsed revisions request.
type ListRequest struct {
	Query  enumerate.Query
	Props  render.PropSet
	Tokens []render.TokenKind
}

// RevisionService answers revision listings.
type RevisionService interface {
	ListRevisions(ctx context.Context, caller model.Caller, req ListRequest) (model.RevisionListing, error)
	// CacheMode reports whether the response to req may be cached publicly.
	CacheMode(caller model.Caller, req ListRequest) string
	// TokenKinds validates requested action token names.
	TokenKinds(names []string) ([]render.TokenKind, error)
}

// RevisionInput is the caller-supplied part of a new revision.
type RevisionInput struct {
	Comment      string
	Size         int
	SHA1         string
	Minor        bool
	ContentModel string
	Tags         []string
}

// PageService covers page creation and history writes.
type PageService interface {
	CreatePage(ctx context.Context, title string) (model.Page, error)
	GetPage(ctx context.Context, id int64) (model.Page, error)
	AppendRevision(ctx context.Context, pageID int64, caller model.Caller, in RevisionInput) (model.Revision, error)
}

// Recorder receives one observation per enumeration.
type Recorder interface {
	ObserveEnumeration(mode, outcome string, rows int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveEnumeration(string, string, int) {}
