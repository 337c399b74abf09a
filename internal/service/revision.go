package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/revision-history-service/internal/enumerate"
	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/render"
)

// revisionService runs the enumerator and renders its result for the caller.
type revisionService struct {
	enum     *enumerate.Enumerator
	renderer *render.Renderer
	rec      Recorder
	log      zerolog.Logger
}

// NewRevisionService wires the listing use case. A nil Recorder disables metrics.
func NewRevisionService(enum *enumerate.Enumerator, renderer *render.Renderer, rec Recorder, logger zerolog.Logger) RevisionService {
	if rec == nil {
		rec = nopRecorder{}
	}
	l := logger.With().Str("module", "service").Str("component", "revision").Logger()
	return &revisionService{enum: enum, renderer: renderer, rec: rec, log: l}
}

func (s *revisionService) ListRevisions(ctx context.Context, caller model.Caller, req ListRequest) (model.RevisionListing, error) {
	start := time.Now()
	res, err := s.enum.Enumerate(ctx, caller, req.Query)
	if err != nil {
		outcome := classify(err)
		s.rec.ObserveEnumeration(req.Query.Mode.String(), outcome, 0)
		ev := s.log.Debug()
		if outcome == "store" {
			ev = s.log.Error()
		}
		ev.Err(err).Str("outcome", outcome).Str("caller", caller.Name).Msg("list revisions failed")
		return model.RevisionListing{}, err
	}

	props := req.Props
	if props == nil {
		props = render.DefaultProps()
	}
	out := s.renderer.Render(caller, res, render.Options{Props: props, Tokens: req.Tokens})
	s.rec.ObserveEnumeration(res.Mode.String(), "ok", len(res.Revisions))
	s.log.Debug().
		Str("mode", res.Mode.String()).
		Int("rows", len(res.Revisions)).
		Strs("props", props.Names()).
		Bool("more", res.Continue != "").
		Dur("took", time.Since(start)).
		Msg("revisions listed")
	return out, nil
}

func (s *revisionService) CacheMode(caller model.Caller, req ListRequest) string {
	return s.renderer.CacheMode(caller, render.Options{Props: req.Props, Tokens: req.Tokens})
}

func (s *revisionService) TokenKinds(names []string) ([]render.TokenKind, error) {
	return s.renderer.Tokens().ParseKinds(names)
}

// classify maps an enumeration error to a metrics outcome label.
func classify(err error) string {
	var se *enumerate.StoreError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case enumerate.IsContinuation(err):
		return "continuation"
	case errors.As(err, &se):
		return "store"
	}
	if _, ok := enumerate.IsUsage(err); ok {
		return "usage"
	}
	return "error"
}
