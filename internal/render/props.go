// Package render turns enumerated revisions into response objects: it applies
// the requested field set, withholds deleted fields from callers who may not
// see them, groups revisions by page and attaches action tokens.
package render

import (
	"slices"
	"strings"

	"github.com/maxviazov/revision-history-service/internal/enumerate"
)

// Prop names one optional output field group.
type Prop string

const (
	PropIDs          Prop = "ids"
	PropFlags        Prop = "flags"
	PropTimestamp    Prop = "timestamp"
	PropUser         Prop = "user"
	PropUserID       Prop = "userid"
	PropSize         Prop = "size"
	PropSHA1         Prop = "sha1"
	PropContentModel Prop = "contentmodel"
	PropComment      Prop = "comment"
	PropTags         Prop = "tags"
)

// CodeBadProp is the UsageError code for an unknown prop or token name.
const (
	CodeBadProp  = "badprop"
	CodeBadToken = "badtoken"
)

var knownProps = []Prop{
	PropIDs, PropFlags, PropTimestamp, PropUser, PropUserID,
	PropSize, PropSHA1, PropContentModel, PropComment, PropTags,
}

// PropSet is the set of fields a response includes.
type PropSet map[Prop]bool

// DefaultProps is used when the request names no props.
func DefaultProps() PropSet {
	return PropSet{PropIDs: true, PropTimestamp: true, PropFlags: true, PropComment: true, PropUser: true}
}

// ParseProps builds a PropSet from names; an empty list yields DefaultProps.
func ParseProps(names []string) (PropSet, error) {
	if len(names) == 0 {
		return DefaultProps(), nil
	}
	set := make(PropSet, len(names))
	for _, n := range names {
		p := Prop(strings.ToLower(strings.TrimSpace(n)))
		if p == "" {
			continue
		}
		if !slices.Contains(knownProps, p) {
			return nil, &enumerate.UsageError{Code: CodeBadProp, Info: "unrecognized value for parameter 'prop': " + n}
		}
		set[p] = true
	}
	return set, nil
}

// Has reports whether p is in the set.
func (s PropSet) Has(p Prop) bool { return s[p] }

// Names lists the set in a stable order.
func (s PropSet) Names() []string {
	out := make([]string, 0, len(s))
	for _, p := range knownProps {
		if s[p] {
			out = append(out, string(p))
		}
	}
	return out
}
