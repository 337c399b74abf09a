package repository

import (
	"context"
	"time"

	"github.com/maxviazov/revision-history-service/internal/model"
)

// Pinger represents a minimal readiness probe capability.
// I use it to decouple health checks from storage implementation details.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TxFunc is the unit of work executed within a transaction boundary.
// I pass context through so nested calls can honor cancellations and deadlines.
type TxFunc func(ctx context.Context) error

// TxManager abstracts transactional execution for repositories that support it.
// I prefer a single entry point to keep transaction boundaries explicit and testable.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// SortKey selects the column an ordered fetch walks.
type SortKey int

const (
	SortByTimestamp SortKey = iota
	SortByID
)

// OrderedFilter describes a single-page range scan.
// Bounds are inclusive. For DirOlder the start bound is the newer edge and
// the end bound the older one; for DirNewer it is the other way round.
type OrderedFilter struct {
	PageID  int64
	Sort    SortKey
	Dir     model.Direction
	StartID *int64
	EndID   *int64
	Start   *time.Time
	End     *time.Time
	// User keeps only revisions by this user name; ExcludeUser drops them.
	User        string
	ExcludeUser string
	Tag         string
	// HiddenMask drops revisions whose deletion bits include every bit of the mask.
	HiddenMask int
	Limit      int
}

// IDFilter narrows a lookup by explicit revision ids.
type IDFilter struct {
	// AfterID keeps only ids strictly greater than it; zero disables the bound.
	AfterID int64
	Tag     string
}

// PageCursor is a composite (page, revision) position in latest-revision scans.
type PageCursor struct {
	PageID int64
	RevID  int64
}

// RevisionStore is the read side used by the enumerator.
// Implementations own indexing and return rows in the documented order.
type RevisionStore interface {
	// FetchOrdered returns at most f.Limit revisions of one page ordered by
	// f.Sort in direction f.Dir, with id as the tiebreaker.
	FetchOrdered(ctx context.Context, f OrderedFilter) ([]model.Revision, error)
	// FetchByIDs returns the existing revisions among ids, ascending by id.
	FetchByIDs(ctx context.Context, ids []int64, f IDFilter) ([]model.Revision, error)
	// FetchLatest returns the latest revision of each page in pageIDs ordered
	// by (page id, revision id), skipping positions at or before after.
	FetchLatest(ctx context.Context, pageIDs []int64, after *PageCursor, tag string) ([]model.Revision, error)
}

// PageRepository declares persistence operations for pages.
// I return domain models and surface domain errors from errors.go rather than driver codes.
type PageRepository interface {
	Create(ctx context.Context, p model.Page) (model.Page, error)
	GetByID(ctx context.Context, id int64) (model.Page, error)
}

// RevisionWriter appends revisions. Append assigns the id, links ParentID to
// the page's current latest revision and advances the page's latest pointer.
type RevisionWriter interface {
	Append(ctx context.Context, r model.Revision) (model.Revision, error)
}

// Store bundles everything a backend provides so wiring can pick one by name.
type Store interface {
	Revisions() RevisionStore
	Pages() PageRepository
	Writer() RevisionWriter
	Tx() TxManager
	Pinger
	Close()
}

type directTx struct{}

// DirectTx returns a TxManager that runs fn without a transaction. Backends
// whose single-item writes are already atomic use it.
func DirectTx() TxManager { return directTx{} }

func (directTx) WithinTx(ctx context.Context, fn TxFunc) error { return fn(ctx) }
