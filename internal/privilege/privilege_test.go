package privilege_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/privilege"
)

func newChecker() *privilege.GroupChecker {
	return privilege.NewGroupChecker(map[string][]string{
		"*":     {"read"},
		"user":  {"edit"},
		"bot":   {"apihighlimits"},
		"sysop": {"apihighlimits", "deletedhistory", "rollback"},
	})
}

func TestGroupChecker_Tiers(t *testing.T) {
	c := newChecker()

	cases := []struct {
		name   string
		caller model.Caller
		high   bool
	}{
		{"anonymous", model.Caller{}, false},
		{"plain user", model.Caller{ID: 7, Name: "Alice"}, false},
		{"bot", model.Caller{ID: 8, Name: "Crawler", Groups: []string{"bot"}}, true},
		{"sysop", model.Caller{ID: 9, Name: "Admin", Groups: []string{"sysop"}}, true},
		{"unknown group", model.Caller{ID: 10, Name: "Eve", Groups: []string{"nope"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.high, c.CanUseHighLimit(tc.caller))
		})
	}
}

func TestGroupChecker_ImplicitGroups(t *testing.T) {
	c := newChecker()

	assert.True(t, c.Can(model.Caller{}, "read"))
	assert.False(t, c.Can(model.Caller{}, "edit"), "anonymous callers are not in the user group")
	assert.True(t, c.Can(model.Caller{Name: "Alice"}, "edit"))
	assert.False(t, c.Can(model.Caller{Name: "Alice"}, privilege.RightRollback))
}

func TestGroupChecker_MergesGroups(t *testing.T) {
	c := newChecker()
	admin := model.Caller{Name: "Admin", Groups: []string{"sysop", "bot"}}

	for _, r := range []privilege.Right{
		"read", "edit",
		privilege.RightHighLimits, privilege.RightDeletedHistory, privilege.RightRollback,
	} {
		assert.True(t, c.Can(admin, r), "right %s", r)
	}
	assert.False(t, c.Can(admin, privilege.RightViewSuppressed))
}
