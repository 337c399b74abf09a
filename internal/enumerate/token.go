package enumerate

import (
	"strconv"
	"strings"
)

// Token is a decoded continuation position: the key of the last record a
// page returned. Single-key modes use RevID only; latest mode pairs it with PageID.
type Token struct {
	PageID    int64
	RevID     int64
	Composite bool
}

const compositeSep = "|"

// String encodes the token as "<rev>" or "<page>|<rev>".
func (t Token) String() string {
	if t.Composite {
		return strconv.FormatInt(t.PageID, 10) + compositeSep + strconv.FormatInt(t.RevID, 10)
	}
	return strconv.FormatInt(t.RevID, 10)
}

// ParseToken decodes s for a query that expects a composite token or not.
// A token of the other shape is rejected, as is any non-positive key.
func ParseToken(s string, composite bool) (Token, error) {
	parts := strings.Split(s, compositeSep)
	if composite {
		if len(parts) != 2 {
			return Token{}, &ContinuationError{Token: s, Reason: "expected <pageid>|<revid>"}
		}
		page, err := parseKey(parts[0])
		if err != nil {
			return Token{}, &ContinuationError{Token: s, Reason: "bad page id"}
		}
		rev, err := parseKey(parts[1])
		if err != nil {
			return Token{}, &ContinuationError{Token: s, Reason: "bad revision id"}
		}
		return Token{PageID: page, RevID: rev, Composite: true}, nil
	}
	if len(parts) != 1 {
		return Token{}, &ContinuationError{Token: s, Reason: "expected a single revision id"}
	}
	rev, err := parseKey(parts[0])
	if err != nil {
		return Token{}, &ContinuationError{Token: s, Reason: "bad revision id"}
	}
	return Token{RevID: rev}, nil
}

func parseKey(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, strconv.ErrRange
	}
	return v, nil
}
