package model

// Caller identifies who issued a request. It travels explicitly through
// services instead of living in request-global state.
type Caller struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Groups []string `json:"groups"`
}

// Anonymous reports whether the caller carries no user identity.
func (c Caller) Anonymous() bool {
	return c.ID == 0 && c.Name == ""
}

// PageListing is one page in a revisions response with the revisions
// selected for it, already rendered to the requested field set.
type PageListing struct {
	PageID    int64            `json:"pageid"`
	Title     string           `json:"title"`
	Revisions []map[string]any `json:"revisions"`
}

// RevisionListing is the response shape of a revisions query.
type RevisionListing struct {
	Pages    []PageListing  `json:"pages"`
	Continue string         `json:"continue,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
	Limits   map[string]int `json:"limits,omitempty"`
}
