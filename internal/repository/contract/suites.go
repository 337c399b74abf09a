// Package contract holds behaviour suites every store backend must pass.
// Backends wire them from their own tests with a factory that hands out an
// empty store and a cleanup func.
package contract

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/repository"
)

type StoreFactory func(t *testing.T) (repository.Store, func())

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// seed creates a page and appends n revisions one minute apart. Authors
// alternate between Alice and Bob; every third revision is tagged "bot".
func seed(t *testing.T, s repository.Store, title string, n int) (model.Page, []model.Revision) {
	t.Helper()
	ctx := context.Background()
	page, err := s.Pages().Create(ctx, model.Page{Title: title})
	if err != nil {
		t.Fatalf("create page: %v", err)
	}
	revs := make([]model.Revision, 0, n)
	for i := 1; i <= n; i++ {
		in := model.Revision{
			PageID:    page.ID,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			UserID:    int64(1 + i%2),
			UserText:  []string{"Bob", "Alice"}[i%2],
			Comment:   "edit",
			Size:      100 * i,
		}
		if i%3 == 0 {
			in.Tags = []string{"bot"}
		}
		r, err := s.Writer().Append(ctx, in)
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		revs = append(revs, r)
	}
	return page, revs
}

func idsOf(revs []model.Revision) []int64 {
	out := make([]int64, 0, len(revs))
	for _, r := range revs {
		out = append(out, r.ID)
	}
	return out
}

func reversed(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Reverse(out)
	return out
}

func RunPageRepositoryContract(t *testing.T, makeStore StoreFactory) {
	t.Helper()

	t.Run("create_and_get", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, err := s.Pages().Create(ctx, model.Page{Title: "  Main Page "})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if created.Title != "Main Page" || created.LatestRevID != 0 {
			t.Fatalf("unexpected page: %+v", created)
		}
		got, err := s.Pages().GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.ID != created.ID || got.Title != created.Title {
			t.Fatalf("mismatch: %+v", got)
		}
	})

	t.Run("duplicate_title", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		if _, err := s.Pages().Create(ctx, model.Page{Title: "Dup"}); err != nil {
			t.Fatalf("create: %v", err)
		}
		_, err := s.Pages().Create(ctx, model.Page{Title: "Dup"})
		if !errors.Is(err, repository.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("get_not_found", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		_, err := s.Pages().GetByID(context.Background(), 999999)
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func RunRevisionWriterContract(t *testing.T, makeStore StoreFactory) {
	t.Helper()

	t.Run("append_links_parents", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		page, revs := seed(t, s, "Chain", 3)
		if revs[0].ParentID != 0 {
			t.Fatalf("first revision has parent %d", revs[0].ParentID)
		}
		for i := 1; i < len(revs); i++ {
			if revs[i].ParentID != revs[i-1].ID || revs[i].ID <= revs[i-1].ID {
				t.Fatalf("revision %d not chained: %+v", i, revs[i])
			}
		}
		if revs[2].PageTitle != "Chain" {
			t.Fatalf("title not set: %q", revs[2].PageTitle)
		}
		got, err := s.Pages().GetByID(context.Background(), page.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.LatestRevID != revs[2].ID {
			t.Fatalf("latest = %d, want %d", got.LatestRevID, revs[2].ID)
		}
	})

	t.Run("append_missing_page", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		_, err := s.Writer().Append(context.Background(), model.Revision{PageID: 424242, UserText: "X"})
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("append_within_tx", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		page, err := s.Pages().Create(ctx, model.Page{Title: "Tx"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		err = s.Tx().WithinTx(ctx, func(ctx context.Context) error {
			_, err := s.Writer().Append(ctx, model.Revision{PageID: page.ID, UserText: "Alice", Timestamp: base})
			return err
		})
		if err != nil {
			t.Fatalf("tx: %v", err)
		}
		got, _ := s.Pages().GetByID(ctx, page.ID)
		if got.LatestRevID == 0 {
			t.Fatalf("append inside tx was not committed")
		}
	})
}

func RunRevisionStoreContract(t *testing.T, makeStore StoreFactory) {
	t.Helper()
	ctx := context.Background()

	t.Run("ordered_by_direction", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		page, revs := seed(t, s, "Ordered", 5)
		all := idsOf(revs)
		for _, sortKey := range []repository.SortKey{repository.SortByTimestamp, repository.SortByID} {
			older, err := s.Revisions().FetchOrdered(ctx, repository.OrderedFilter{PageID: page.ID, Sort: sortKey, Dir: model.DirOlder})
			if err != nil {
				t.Fatalf("fetch older: %v", err)
			}
			if !slices.Equal(idsOf(older), reversed(all)) {
				t.Fatalf("older = %v, want %v", idsOf(older), reversed(all))
			}
			newer, err := s.Revisions().FetchOrdered(ctx, repository.OrderedFilter{PageID: page.ID, Sort: sortKey, Dir: model.DirNewer, Limit: 2})
			if err != nil {
				t.Fatalf("fetch newer: %v", err)
			}
			if !slices.Equal(idsOf(newer), all[:2]) {
				t.Fatalf("newer = %v, want %v", idsOf(newer), all[:2])
			}
		}
	})

	t.Run("ordered_bounds_inclusive", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		page, revs := seed(t, s, "Bounds", 5)
		all := idsOf(revs)
		start, end := all[3], all[1]
		got, err := s.Revisions().FetchOrdered(ctx, repository.OrderedFilter{
			PageID: page.ID, Sort: repository.SortByID, Dir: model.DirOlder, StartID: &start, EndID: &end,
		})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if want := []int64{all[3], all[2], all[1]}; !slices.Equal(idsOf(got), want) {
			t.Fatalf("got %v, want %v", idsOf(got), want)
		}

		from, to := revs[1].Timestamp, revs[2].Timestamp
		got, err = s.Revisions().FetchOrdered(ctx, repository.OrderedFilter{
			PageID: page.ID, Sort: repository.SortByTimestamp, Dir: model.DirNewer, Start: &from, End: &to,
		})
		if err != nil {
			t.Fatalf("fetch by time: %v", err)
		}
		if want := all[1:3]; !slices.Equal(idsOf(got), want) {
			t.Fatalf("got %v, want %v", idsOf(got), want)
		}
	})

	t.Run("ordered_inverted_range", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		page, revs := seed(t, s, "Inverted", 5)
		all := idsOf(revs)
		// For DirOlder the start bound is the newer edge, so start < end selects nothing.
		start, end := all[1], all[4]
		for _, sortKey := range []repository.SortKey{repository.SortByID, repository.SortByTimestamp} {
			got, err := s.Revisions().FetchOrdered(ctx, repository.OrderedFilter{
				PageID: page.ID, Sort: sortKey, Dir: model.DirOlder, StartID: &start, EndID: &end, Limit: 10,
			})
			if err != nil {
				t.Fatalf("fetch (sort %d): %v", sortKey, err)
			}
			if len(got) != 0 {
				t.Fatalf("sort %d: got %v, want no revisions", sortKey, idsOf(got))
			}
		}

		huge := int64(math.MaxInt64 - 1)
		got, err := s.Revisions().FetchOrdered(ctx, repository.OrderedFilter{
			PageID: page.ID, Sort: repository.SortByID, Dir: model.DirNewer, StartID: &huge, Limit: 10,
		})
		if err != nil {
			t.Fatalf("fetch past last id: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("past last id: got %v, want no revisions", idsOf(got))
		}
	})

	t.Run("ordered_filters", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		page, revs := seed(t, s, "Filters", 6)
		f := repository.OrderedFilter{PageID: page.ID, Sort: repository.SortByID, Dir: model.DirNewer}

		f.User = "Alice"
		got, err := s.Revisions().FetchOrdered(ctx, f)
		if err != nil {
			t.Fatalf("fetch user: %v", err)
		}
		for _, r := range got {
			if r.UserText != "Alice" {
				t.Fatalf("user filter leaked %+v", r)
			}
		}
		if len(got) != 3 {
			t.Fatalf("user filter returned %d rows", len(got))
		}

		f.User, f.ExcludeUser = "", "Alice"
		got, err = s.Revisions().FetchOrdered(ctx, f)
		if err != nil {
			t.Fatalf("fetch excludeuser: %v", err)
		}
		if len(got) != 3 || got[0].UserText != "Bob" {
			t.Fatalf("excludeuser filter returned %v", idsOf(got))
		}

		f.ExcludeUser, f.Tag = "", "bot"
		got, err = s.Revisions().FetchOrdered(ctx, f)
		if err != nil {
			t.Fatalf("fetch tag: %v", err)
		}
		if want := []int64{revs[2].ID, revs[5].ID}; !slices.Equal(idsOf(got), want) {
			t.Fatalf("tag filter got %v, want %v", idsOf(got), want)
		}
		if got[0].PageTitle != "Filters" || !slices.Equal(got[0].Tags, []string{"bot"}) {
			t.Fatalf("row not fully populated: %+v", got[0])
		}
	})

	t.Run("ordered_hidden_mask", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		page, err := s.Pages().Create(ctx, model.Page{Title: "Hidden"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		visible, _ := s.Writer().Append(ctx, model.Revision{PageID: page.ID, UserText: "Alice", Timestamp: base})
		_, _ = s.Writer().Append(ctx, model.Revision{PageID: page.ID, UserText: "Alice", Timestamp: base.Add(time.Minute), Deleted: model.DeletedUser})
		got, err := s.Revisions().FetchOrdered(ctx, repository.OrderedFilter{
			PageID: page.ID, Dir: model.DirNewer, User: "Alice", HiddenMask: model.DeletedUser,
		})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if !slices.Equal(idsOf(got), []int64{visible.ID}) {
			t.Fatalf("hidden mask got %v", idsOf(got))
		}
	})

	t.Run("by_ids", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		_, a := seed(t, s, "A", 2)
		_, b := seed(t, s, "B", 2)
		ids := []int64{b[1].ID, a[0].ID, 999999, b[0].ID}
		got, err := s.Revisions().FetchByIDs(ctx, ids, repository.IDFilter{})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if want := []int64{a[0].ID, b[0].ID, b[1].ID}; !slices.Equal(idsOf(got), want) {
			t.Fatalf("got %v, want %v", idsOf(got), want)
		}

		got, err = s.Revisions().FetchByIDs(ctx, ids, repository.IDFilter{AfterID: b[0].ID})
		if err != nil {
			t.Fatalf("fetch after: %v", err)
		}
		if want := []int64{b[1].ID}; !slices.Equal(idsOf(got), want) {
			t.Fatalf("after got %v, want %v", idsOf(got), want)
		}
	})

	t.Run("latest_per_page", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		pa, a := seed(t, s, "A", 3)
		pb, b := seed(t, s, "B", 1)
		empty, err := s.Pages().Create(ctx, model.Page{Title: "Empty"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		pages := []int64{pb.ID, empty.ID, pa.ID}
		got, err := s.Revisions().FetchLatest(ctx, pages, nil, "")
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if want := []int64{a[2].ID, b[0].ID}; !slices.Equal(idsOf(got), want) {
			t.Fatalf("got %v, want %v", idsOf(got), want)
		}

		got, err = s.Revisions().FetchLatest(ctx, pages, &repository.PageCursor{PageID: pa.ID, RevID: a[2].ID}, "")
		if err != nil {
			t.Fatalf("fetch after: %v", err)
		}
		if want := []int64{b[0].ID}; !slices.Equal(idsOf(got), want) {
			t.Fatalf("after got %v, want %v", idsOf(got), want)
		}

		got, err = s.Revisions().FetchLatest(ctx, pages, nil, "bot")
		if err != nil {
			t.Fatalf("fetch tag: %v", err)
		}
		if want := []int64{a[2].ID}; !slices.Equal(idsOf(got), want) {
			t.Fatalf("tag got %v, want %v", idsOf(got), want)
		}
	})

	t.Run("canceled_context", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := s.Revisions().FetchByIDs(cctx, []int64{1}, repository.IDFilter{}); err == nil {
			t.Fatalf("expected error on canceled context")
		}
	})
}

func RunPingerContract(t *testing.T, makeStore StoreFactory) {
	t.Helper()
	t.Run("ping_ok", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		if err := s.Ping(context.Background()); err != nil {
			t.Fatalf("ping: %v", err)
		}
	})
}
