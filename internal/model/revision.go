// Package model contains domain entities and DTOs used across layers.
// I keep it lean and focused on data shapes without behavior.
package model

import "time"

// Deletion bits stored on a revision. A set bit hides the matching field
// from callers that lack the rights to see deleted history.
const (
	DeletedText       = 1
	DeletedComment    = 2
	DeletedUser       = 4
	DeletedRestricted = 8
)

// Page is a wiki page: the group that owns an ordered history of revisions.
type Page struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	LatestRevID int64     `json:"latest_rev_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Revision is one saved version of a page. IDs are assigned monotonically
// across the whole wiki, so (PageID, ID) is unique as well.
type Revision struct {
	ID           int64     `json:"id"`
	PageID       int64     `json:"page_id"`
	PageTitle    string    `json:"page_title"`
	ParentID     int64     `json:"parent_id"`
	Timestamp    time.Time `json:"timestamp"`
	UserID       int64     `json:"user_id"`
	UserText     string    `json:"user_text"`
	Comment      string    `json:"comment"`
	Size         int       `json:"size"`
	SHA1         string    `json:"sha1"`
	Minor        bool      `json:"minor"`
	ContentModel string    `json:"content_model"`
	Deleted      int       `json:"deleted"`
	Tags         []string  `json:"tags"`
}

// IsDeleted reports whether all bits of field are set in the revision's deletion mask.
func (r Revision) IsDeleted(field int) bool {
	return r.Deleted&field == field
}

// Direction is the scan order of an enumeration.
// Older walks from newest to oldest (ids descending), Newer the reverse.
type Direction string

const (
	DirOlder Direction = "older"
	DirNewer Direction = "newer"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirOlder || d == DirNewer
}
