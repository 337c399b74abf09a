package enumerate

import (
	"fmt"

	"github.com/maxviazov/revision-history-service/internal/model"
)

// Limits holds the page-size tiers and the result-size budget.
type Limits struct {
	// Default applies in enumeration mode when no limit is given.
	Default int
	// UserMax is the ceiling for ordinary callers, HighMax for privileged ones.
	UserMax int
	HighMax int
	// MaxResultSize caps the estimated size of one page in bytes; 0 disables it.
	MaxResultSize int
}

// DefaultLimits mirrors the classic API tiers: 10 by default, 500 for users, 5000 for bots.
func DefaultLimits() Limits {
	return Limits{Default: 10, UserMax: 500, HighMax: 5000, MaxResultSize: 8 << 20}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.Default <= 0 {
		l.Default = d.Default
	}
	if l.UserMax <= 0 {
		l.UserMax = d.UserMax
	}
	if l.HighMax < l.UserMax {
		l.HighMax = l.UserMax
	}
	if l.MaxResultSize < 0 {
		l.MaxResultSize = 0
	}
	return l
}

func (l Limits) ceiling(high bool) int {
	if high {
		return l.HighMax
	}
	return l.UserMax
}

// resolve turns a requested limit into a concrete one for the caller's tier.
// Over-the-ceiling requests are clamped and reported as a warning.
func (l Limits) resolve(req Limit, high bool) (limit int, warning string, err error) {
	ceiling := l.ceiling(high)
	switch {
	case req.Max:
		return ceiling, "", nil
	case !req.IsSet():
		return min(l.Default, ceiling), "", nil
	case req.N < 1:
		return 0, "", usage(CodeBadLimit, "limit must be at least 1, got %d", req.N)
	case req.N > ceiling:
		who := "users"
		if high {
			who = "bots"
		}
		return ceiling, fmt.Sprintf("limit may not be over %d (set to %d) for %s", ceiling, ceiling, who), nil
	default:
		return req.N, "", nil
	}
}

// SizeFunc estimates how many bytes a revision adds to a response.
type SizeFunc func(model.Revision) int

// EstimateSize is the default SizeFunc: the variable-length fields plus a
// fixed allowance for numbers, flags and field names.
func EstimateSize(r model.Revision) int {
	n := 96 + len(r.PageTitle) + len(r.UserText) + len(r.Comment) + len(r.SHA1) + len(r.ContentModel)
	for _, t := range r.Tags {
		n += len(t) + 3
	}
	return n
}
