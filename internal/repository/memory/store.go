// Package memory is an in-process implementation of the store contracts.
// It backs dev mode when no database is configured and keeps tests hermetic.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/repository"
)

// Store keeps pages and revisions in maps guarded by a single RWMutex.
type Store struct {
	mu        sync.RWMutex
	nextPage  int64
	nextRev   int64
	pages     map[int64]model.Page
	titles    map[string]int64
	revisions map[int64]model.Revision
	byPage    map[int64][]int64 // page id -> revision ids, ascending
	now       func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for page timestamps and for
// revisions appended without one.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New constructs an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		nextPage:  1,
		nextRev:   1,
		pages:     make(map[int64]model.Page),
		titles:    make(map[string]int64),
		revisions: make(map[int64]model.Revision),
		byPage:    make(map[int64][]int64),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Revisions() repository.RevisionStore { return s }
func (s *Store) Pages() repository.PageRepository    { return pageRepo{s} }
func (s *Store) Writer() repository.RevisionWriter   { return s }
func (s *Store) Tx() repository.TxManager            { return repository.DirectTx() }
func (s *Store) Ping(ctx context.Context) error      { return ctx.Err() }
func (s *Store) Close()                              {}

// FetchOrdered scans one page's history; the page's ids are already sorted so
// only the timestamp ordering needs a sort.
func (s *Store) FetchOrdered(ctx context.Context, f repository.OrderedFilter) ([]model.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Revision
	for _, id := range s.byPage[f.PageID] {
		r := s.revisions[id]
		if repository.MatchOrdered(r, f) {
			out = append(out, s.withTitle(r))
		}
	}
	repository.SortOrdered(out, f.Sort, f.Dir)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) FetchByIDs(ctx context.Context, ids []int64, f repository.IDFilter) ([]model.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Revision, 0, len(ids))
	for _, id := range ids {
		r, ok := s.revisions[id]
		if !ok || id <= f.AfterID || !repository.HasTag(r, f.Tag) {
			continue
		}
		out = append(out, s.withTitle(r))
	}
	slices.SortFunc(out, func(a, b model.Revision) int { return cmp.Compare(a.ID, b.ID) })
	return slices.CompactFunc(out, func(a, b model.Revision) bool { return a.ID == b.ID }), nil
}

func (s *Store) FetchLatest(ctx context.Context, pageIDs []int64, after *repository.PageCursor, tag string) ([]model.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Revision
	for _, pid := range pageIDs {
		p, ok := s.pages[pid]
		if !ok || p.LatestRevID == 0 {
			continue
		}
		r := s.revisions[p.LatestRevID]
		if after != nil && (r.PageID < after.PageID || (r.PageID == after.PageID && r.ID <= after.RevID)) {
			continue
		}
		if repository.HasTag(r, tag) {
			out = append(out, s.withTitle(r))
		}
	}
	slices.SortFunc(out, func(a, b model.Revision) int {
		if c := cmp.Compare(a.PageID, b.PageID); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Append stores r under the next revision id and makes it the page's latest.
func (s *Store) Append(ctx context.Context, r model.Revision) (model.Revision, error) {
	if err := ctx.Err(); err != nil {
		return model.Revision{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pages[r.PageID]
	if !ok {
		return model.Revision{}, repository.ErrNotFound
	}
	r.ID = s.nextRev
	s.nextRev++
	r.ParentID = p.LatestRevID
	r.PageTitle = p.Title
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}
	r.Tags = slices.Clone(r.Tags)
	s.revisions[r.ID] = r
	s.byPage[r.PageID] = append(s.byPage[r.PageID], r.ID)

	p.LatestRevID = r.ID
	p.UpdatedAt = s.now()
	s.pages[p.ID] = p
	return r, nil
}

// Seed inserts revisions with their ids as given, creating pages on demand.
// A page's latest pointer follows its highest seeded id. It exists for
// fixtures and imports, where ids come from elsewhere.
func (s *Store) Seed(revs ...model.Revision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range revs {
		p, ok := s.pages[r.PageID]
		if !ok {
			title := r.PageTitle
			if title == "" {
				title = "Page " + strconv.FormatInt(r.PageID, 10)
			}
			p = model.Page{ID: r.PageID, Title: title, CreatedAt: s.now(), UpdatedAt: s.now()}
			s.titles[title] = p.ID
			s.nextPage = max(s.nextPage, p.ID+1)
		}
		if _, dup := s.revisions[r.ID]; !dup {
			ids := append(s.byPage[r.PageID], r.ID)
			slices.Sort(ids)
			s.byPage[r.PageID] = ids
		}
		r.Tags = slices.Clone(r.Tags)
		s.revisions[r.ID] = r
		p.LatestRevID = max(p.LatestRevID, r.ID)
		s.pages[p.ID] = p
		s.nextRev = max(s.nextRev, r.ID+1)
	}
}

// withTitle returns a copy that callers may modify freely.
func (s *Store) withTitle(r model.Revision) model.Revision {
	r.PageTitle = s.pages[r.PageID].Title
	r.Tags = slices.Clone(r.Tags)
	return r
}

type pageRepo struct{ s *Store }

func (p pageRepo) Create(ctx context.Context, page model.Page) (model.Page, error) {
	if err := ctx.Err(); err != nil {
		return model.Page{}, err
	}
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(page.Title)
	if _, exists := s.titles[key]; exists {
		return model.Page{}, repository.ErrAlreadyExists
	}
	now := s.now()
	out := model.Page{ID: s.nextPage, Title: key, CreatedAt: now, UpdatedAt: now}
	s.nextPage++
	s.pages[out.ID] = out
	s.titles[key] = out.ID
	return out, nil
}

func (p pageRepo) GetByID(ctx context.Context, id int64) (model.Page, error) {
	if err := ctx.Err(); err != nil {
		return model.Page{}, err
	}
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	page, ok := p.s.pages[id]
	if !ok {
		return model.Page{}, repository.ErrNotFound
	}
	return page, nil
}

var (
	_ repository.Store          = (*Store)(nil)
	_ repository.RevisionStore  = (*Store)(nil)
	_ repository.RevisionWriter = (*Store)(nil)
	_ repository.PageRepository = pageRepo{}
)
