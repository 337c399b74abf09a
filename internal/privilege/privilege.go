// Package privilege answers what a caller may do. Rights come from the groups a
// caller belongs to, resolved against a group -> rights table loaded from config.
package privilege

import (
	"slices"

	"github.com/maxviazov/revision-history-service/internal/model"
)

// Right is a named permission.
type Right string

const (
	RightHighLimits       Right = "apihighlimits"
	RightDeletedHistory   Right = "deletedhistory"
	RightSuppressRevision Right = "suppressrevision"
	RightViewSuppressed   Right = "viewsuppressed"
	RightRollback         Right = "rollback"
)

// AllGroup is the implicit group every caller belongs to, anonymous ones included.
const AllGroup = "*"

// UserGroup is the implicit group of every caller that has a name.
const UserGroup = "user"

// Checker is consulted by the enumerator and the renderer.
type Checker interface {
	// CanUseHighLimit selects the higher limit tier for the caller.
	CanUseHighLimit(c model.Caller) bool
	// Can reports whether the caller holds right r.
	Can(c model.Caller, r Right) bool
}

// GroupChecker grants rights by group membership.
type GroupChecker struct {
	groups map[string][]Right
}

// NewGroupChecker builds a checker from a group -> right names table.
// Unknown right names are kept as-is so new rights need no code change here.
func NewGroupChecker(table map[string][]string) *GroupChecker {
	groups := make(map[string][]Right, len(table))
	for g, names := range table {
		rights := make([]Right, 0, len(names))
		for _, n := range names {
			rights = append(rights, Right(n))
		}
		groups[g] = rights
	}
	return &GroupChecker{groups: groups}
}

func (g *GroupChecker) CanUseHighLimit(c model.Caller) bool {
	return g.Can(c, RightHighLimits)
}

func (g *GroupChecker) Can(c model.Caller, r Right) bool {
	for _, group := range effectiveGroups(c) {
		if slices.Contains(g.groups[group], r) {
			return true
		}
	}
	return false
}

func effectiveGroups(c model.Caller) []string {
	groups := make([]string, 0, len(c.Groups)+2)
	groups = append(groups, AllGroup)
	if !c.Anonymous() {
		groups = append(groups, UserGroup)
	}
	return append(groups, c.Groups...)
}

var _ Checker = (*GroupChecker)(nil)
