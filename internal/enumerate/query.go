package enumerate

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/maxviazov/revision-history-service/internal/model"
)

// Mode selects how a query is answered.
type Mode int

const (
	// ModeAuto derives the mode from the parameters present.
	ModeAuto Mode = iota
	// ModeByIDs looks up an explicit set of revision ids.
	ModeByIDs
	// ModeEnumerate scans a range of one page's history.
	ModeEnumerate
	// ModeLatest returns the latest revision of each requested page.
	ModeLatest
)

func (m Mode) String() string {
	switch m {
	case ModeByIDs:
		return "byids"
	case ModeEnumerate:
		return "enumerate"
	case ModeLatest:
		return "latest"
	default:
		return "auto"
	}
}

// Limit is a requested page size: unset, a number, or "max".
type Limit struct {
	N   int
	Max bool
}

// IsSet reports whether the caller asked for any limit.
func (l Limit) IsSet() bool { return l.Max || l.N != 0 }

// ParseLimit reads "", "max" or a decimal integer.
func ParseLimit(s string) (Limit, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return Limit{}, nil
	case "max":
		return Limit{Max: true}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Limit{}, usage(CodeBadLimit, "limit must be an integer or \"max\", got %q", s)
	}
	if n < 1 {
		return Limit{}, usage(CodeBadLimit, "limit must be at least 1, got %d", n)
	}
	return Limit{N: n}, nil
}

// Query is one revisions request. Zero values mean "not supplied".
type Query struct {
	Mode    Mode
	PageIDs []int64
	RevIDs  []int64

	StartID *int64
	EndID   *int64
	Start   *time.Time
	End     *time.Time
	Dir     model.Direction
	Limit   Limit

	User        string
	ExcludeUser string
	Tag         string

	Continue string
}

// enumerationRequested reports whether any parameter that only makes sense
// when scanning a single page's history is present.
func (q Query) enumerationRequested() bool {
	return q.StartID != nil || q.EndID != nil || q.Start != nil || q.End != nil ||
		q.Limit.IsSet() || q.Dir == model.DirNewer || q.User != "" || q.ExcludeUser != ""
}

// resolveMode validates the mode against the parameters and fills in ModeAuto.
func resolveMode(q Query, pages []int64) (Mode, error) {
	if len(q.RevIDs) > 0 && len(pages) > 0 {
		return 0, usage(CodeBadParams, "revids and pageids cannot be used together")
	}
	enum := q.enumerationRequested()
	if q.Dir != "" && !q.Dir.Valid() {
		return 0, usage(CodeBadParams, "dir must be %q or %q", model.DirOlder, model.DirNewer)
	}

	switch q.Mode {
	case ModeAuto:
		if len(q.RevIDs) > 0 {
			return resolveMode(withMode(q, ModeByIDs), pages)
		}
		if enum {
			return resolveMode(withMode(q, ModeEnumerate), pages)
		}
		return ModeLatest, nil
	case ModeByIDs:
		if enum {
			return 0, usage(CodeRevIDs, "the revids parameter may not be used with the list options (limit, startid, endid, dir=newer, start, end, user, excludeuser)")
		}
		return ModeByIDs, nil
	case ModeEnumerate:
		if len(q.RevIDs) > 0 {
			return 0, usage(CodeRevIDs, "the revids parameter may not be used in enumeration mode")
		}
		if len(pages) > 1 {
			return 0, usage(CodeMultPages, "multiple pages were supplied, but the list options may only be used on a single page")
		}
		return ModeEnumerate, nil
	case ModeLatest:
		if len(q.RevIDs) > 0 {
			return 0, usage(CodeBadParams, "the revids parameter may not be used in latest mode")
		}
		if enum {
			if len(pages) > 1 {
				return 0, usage(CodeMultPages, "multiple pages were supplied, but the list options may only be used on a single page")
			}
			return 0, usage(CodeBadParams, "the list options may only be used in enumeration mode")
		}
		return ModeLatest, nil
	default:
		return 0, usage(CodeBadParams, "unknown mode %d", int(q.Mode))
	}
}

func withMode(q Query, m Mode) Query {
	q.Mode = m
	return q
}

// normalizeIDs drops non-positive ids and duplicates and sorts the rest ascending.
func normalizeIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
