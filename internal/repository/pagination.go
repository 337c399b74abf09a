package repository

import (
	"cmp"
	"slices"
	"time"

	"github.com/maxviazov/revision-history-service/internal/model"
)

// MatchOrdered reports whether r passes every non-key predicate of f.
// Stores that cannot push a predicate down to their engine filter with it in memory.
func MatchOrdered(r model.Revision, f OrderedFilter) bool {
	if r.PageID != f.PageID {
		return false
	}
	if !inIDRange(r.ID, f) || !inTimeRange(r.Timestamp, f) {
		return false
	}
	if f.User != "" && r.UserText != f.User {
		return false
	}
	if f.ExcludeUser != "" && r.UserText == f.ExcludeUser {
		return false
	}
	if f.HiddenMask != 0 && r.Deleted&f.HiddenMask == f.HiddenMask {
		return false
	}
	return HasTag(r, f.Tag)
}

// HasTag reports whether r carries tag; an empty tag matches everything.
func HasTag(r model.Revision, tag string) bool {
	return tag == "" || slices.Contains(r.Tags, tag)
}

// SortOrdered orders revisions the way FetchOrdered must return them.
func SortOrdered(revs []model.Revision, sortKey SortKey, dir model.Direction) {
	slices.SortFunc(revs, func(a, b model.Revision) int {
		c := 0
		if sortKey == SortByTimestamp {
			c = a.Timestamp.Compare(b.Timestamp)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if dir == model.DirOlder {
			return -c
		}
		return c
	})
}

func inIDRange(id int64, f OrderedFilter) bool {
	lo, hi := f.Bounds()
	if lo != nil && id < *lo {
		return false
	}
	if hi != nil && id > *hi {
		return false
	}
	return true
}

func inTimeRange(ts time.Time, f OrderedFilter) bool {
	lo, hi := f.TimeBounds()
	if lo != nil && ts.Before(*lo) {
		return false
	}
	if hi != nil && ts.After(*hi) {
		return false
	}
	return true
}

// Bounds returns the inclusive lower and upper id bounds of f regardless of direction.
func (f OrderedFilter) Bounds() (lo, hi *int64) {
	if f.Dir == model.DirNewer {
		return f.StartID, f.EndID
	}
	return f.EndID, f.StartID
}

// TimeBounds returns the inclusive lower and upper timestamp bounds of f regardless of direction.
func (f OrderedFilter) TimeBounds() (lo, hi *time.Time) {
	if f.Dir == model.DirNewer {
		return f.Start, f.End
	}
	return f.End, f.Start
}
