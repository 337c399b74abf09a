// Package enumerate pages through revision histories with resumable
// continuation tokens. It is stateless: every call validates its query,
// fetches one bounded window from the store and returns it together with the
// token that resumes right after it.
//
// Boundary policy: a token carries the key of the last record returned, and a
// resumed call starts strictly after it. Over integer ids this selects the same
// rows as resuming inclusively from the first record not returned.
package enumerate

import (
	"context"
	"fmt"
	"math"

	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/privilege"
	"github.com/maxviazov/revision-history-service/internal/repository"
)

// Result is one page of revisions.
type Result struct {
	Mode      Mode
	Revisions []model.Revision
	// Continue is empty when the scan is complete.
	Continue string
	Warnings []string
	// Limit is the page size that was applied; MaxRequested tells whether it
	// came from "max" so the caller can report it back.
	Limit        int
	MaxRequested bool
}

// Enumerator answers revision queries against a RevisionStore.
type Enumerator struct {
	store  repository.RevisionStore
	privs  privilege.Checker
	limits Limits
	size   SizeFunc
}

// Option customizes an Enumerator.
type Option func(*Enumerator)

// WithSizeFunc replaces the per-record size estimate used by the result budget.
func WithSizeFunc(fn SizeFunc) Option {
	return func(e *Enumerator) {
		if fn != nil {
			e.size = fn
		}
	}
}

// New wires an Enumerator. Zero fields of limits fall back to DefaultLimits.
func New(store repository.RevisionStore, privs privilege.Checker, limits Limits, opts ...Option) *Enumerator {
	e := &Enumerator{store: store, privs: privs, limits: limits.withDefaults(), size: EstimateSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enumerate runs q for caller. On error no partial result is returned.
func (e *Enumerator) Enumerate(ctx context.Context, caller model.Caller, q Query) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	pages := normalizeIDs(q.PageIDs)
	mode, err := resolveMode(q, pages)
	if err != nil {
		return Result{}, err
	}
	high := e.privs.CanUseHighLimit(caller)

	var res Result
	switch mode {
	case ModeByIDs:
		res, err = e.byIDs(ctx, q, high)
	case ModeEnumerate:
		res, err = e.enumerate(ctx, caller, q, pages, high)
	default:
		res, err = e.latest(ctx, q, pages, high)
	}
	if err != nil {
		return Result{}, err
	}
	res.Mode = mode
	return res, nil
}

func (e *Enumerator) enumerate(ctx context.Context, caller model.Caller, q Query, pages []int64, high bool) (Result, error) {
	if q.StartID != nil && q.Start != nil {
		return Result{}, usage(CodeBadParams, "start and startid cannot be used together")
	}
	if q.EndID != nil && q.End != nil {
		return Result{}, usage(CodeBadParams, "end and endid cannot be used together")
	}
	if q.User != "" && q.ExcludeUser != "" {
		return Result{}, usage(CodeBadParams, "user and excludeuser cannot be used together")
	}
	limit, warning, err := e.limits.resolve(q.Limit, high)
	if err != nil {
		return Result{}, err
	}
	res := Result{Limit: limit, MaxRequested: q.Limit.Max}
	if warning != "" {
		res.Warnings = append(res.Warnings, warning)
	}
	if len(pages) == 0 {
		return res, nil
	}

	dir := q.Dir
	if dir == "" {
		dir = model.DirOlder
	}
	f := repository.OrderedFilter{
		PageID:      pages[0],
		Dir:         dir,
		StartID:     q.StartID,
		EndID:       q.EndID,
		Start:       q.Start,
		End:         q.End,
		User:        q.User,
		ExcludeUser: q.ExcludeUser,
		Tag:         q.Tag,
		Limit:       limit + 1,
	}
	if q.Continue != "" {
		tok, err := ParseToken(q.Continue, false)
		if err != nil {
			return Result{}, err
		}
		// The token supersedes any start bound; ids are integers, so "after
		// the token" is the inclusive bound one step further.
		next := tok.RevID - 1
		if dir == model.DirNewer {
			if tok.RevID == math.MaxInt64 {
				return Result{}, &ContinuationError{Token: q.Continue, Reason: "no revision id follows the token"}
			}
			next = tok.RevID + 1
		}
		f.StartID, f.Start = &next, nil
	}
	// Timestamps and ids are assumed to sort alike, so a scan that starts by
	// time can continue by id without reordering.
	f.Sort = repository.SortByTimestamp
	if f.StartID != nil || f.EndID != nil {
		f.Sort = repository.SortByID
	}
	if q.User != "" || q.ExcludeUser != "" {
		f.HiddenMask = e.hiddenUserMask(caller)
	}

	rows, err := e.store.FetchOrdered(ctx, f)
	if err != nil {
		return Result{}, &StoreError{Op: "fetch ordered", Err: err}
	}
	res.Revisions, res.Continue = e.paginate(rows, limit, singleToken)
	return res, nil
}

func (e *Enumerator) byIDs(ctx context.Context, q Query, high bool) (Result, error) {
	var res Result
	ids := normalizeIDs(q.RevIDs)
	if ceiling := e.limits.ceiling(high); len(ids) > ceiling {
		ids = ids[:ceiling]
		res.Warnings = append(res.Warnings, fmt.Sprintf("Too many values supplied for parameter 'revids': the limit is %d", ceiling))
	}
	if len(ids) == 0 {
		return res, nil
	}
	filter := repository.IDFilter{Tag: q.Tag}
	if q.Continue != "" {
		tok, err := ParseToken(q.Continue, false)
		if err != nil {
			return Result{}, err
		}
		filter.AfterID = tok.RevID
	}
	rows, err := e.store.FetchByIDs(ctx, ids, filter)
	if err != nil {
		return Result{}, &StoreError{Op: "fetch by ids", Err: err}
	}
	res.Limit = len(ids)
	res.Revisions, res.Continue = e.paginate(rows, len(ids), singleToken)
	return res, nil
}

func (e *Enumerator) latest(ctx context.Context, q Query, pages []int64, high bool) (Result, error) {
	var res Result
	if ceiling := e.limits.ceiling(high); len(pages) > ceiling {
		pages = pages[:ceiling]
		res.Warnings = append(res.Warnings, fmt.Sprintf("Too many values supplied for parameter 'pageids': the limit is %d", ceiling))
	}
	if len(pages) == 0 {
		return res, nil
	}
	var after *repository.PageCursor
	if q.Continue != "" {
		tok, err := ParseToken(q.Continue, true)
		if err != nil {
			return Result{}, err
		}
		after = &repository.PageCursor{PageID: tok.PageID, RevID: tok.RevID}
	}
	rows, err := e.store.FetchLatest(ctx, pages, after, q.Tag)
	if err != nil {
		return Result{}, &StoreError{Op: "fetch latest", Err: err}
	}
	res.Limit = len(pages)
	res.Revisions, res.Continue = e.paginate(rows, len(pages), compositeToken)
	return res, nil
}

// paginate keeps at most limit rows and stops early once the size budget is
// spent. The first row is always kept so a resumed scan makes progress.
// A non-empty token means more rows remain after the last one returned.
func (e *Enumerator) paginate(rows []model.Revision, limit int, tokenOf func(model.Revision) Token) ([]model.Revision, string) {
	out := make([]model.Revision, 0, min(len(rows), limit))
	used := 0
	for i, r := range rows {
		if i == limit {
			return out, tokenOf(out[len(out)-1]).String()
		}
		sz := e.size(r)
		if budget := e.limits.MaxResultSize; budget > 0 && len(out) > 0 && used+sz > budget {
			return out, tokenOf(out[len(out)-1]).String()
		}
		used += sz
		out = append(out, r)
	}
	return out, ""
}

// hiddenUserMask keeps user-filtered scans from probing for hidden user names.
func (e *Enumerator) hiddenUserMask(c model.Caller) int {
	if !e.privs.Can(c, privilege.RightDeletedHistory) {
		return model.DeletedUser
	}
	if !e.privs.Can(c, privilege.RightSuppressRevision) && !e.privs.Can(c, privilege.RightViewSuppressed) {
		return model.DeletedUser | model.DeletedRestricted
	}
	return 0
}

func singleToken(r model.Revision) Token { return Token{RevID: r.ID} }

func compositeToken(r model.Revision) Token {
	return Token{PageID: r.PageID, RevID: r.ID, Composite: true}
}
