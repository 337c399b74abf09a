package render

import (
	"fmt"
	"time"

	"github.com/maxviazov/revision-history-service/internal/enumerate"
	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/privilege"
)

// Cache modes reported for a response.
const (
	CachePublic  = "public"
	CachePrivate = "private"
)

// Options selects what a rendered response contains.
type Options struct {
	Props  PropSet
	Tokens []TokenKind
}

// Renderer shapes enumeration results for one caller.
type Renderer struct {
	privs  privilege.Checker
	tokens *TokenRegistry
}

// New returns a Renderer. A nil registry means no tokens are available.
func New(privs privilege.Checker, tokens *TokenRegistry) *Renderer {
	if tokens == nil {
		tokens = NewTokenRegistry()
	}
	return &Renderer{privs: privs, tokens: tokens}
}

// Tokens exposes the registry so request parsing can validate token names.
func (r *Renderer) Tokens() *TokenRegistry { return r.tokens }

// Render groups res by page in enumeration order and renders every revision.
func (r *Renderer) Render(c model.Caller, res enumerate.Result, opts Options) model.RevisionListing {
	props := opts.Props
	if props == nil {
		props = DefaultProps()
	}
	out := model.RevisionListing{
		Pages:    []model.PageListing{},
		Continue: res.Continue,
		Warnings: append([]string(nil), res.Warnings...),
	}
	if res.MaxRequested {
		out.Limits = map[string]int{"revisions": res.Limit}
	}

	index := make(map[int64]int)
	denied := make(map[TokenKind]bool)
	for _, rev := range res.Revisions {
		vals := r.Revision(c, rev, props)
		for _, k := range opts.Tokens {
			issuer, ok := r.tokens.issuer(k)
			if !ok {
				continue
			}
			if tok, ok := issuer.Issue(c, rev); ok {
				vals[string(k)+"token"] = tok
			} else if !denied[k] {
				denied[k] = true
				out.Warnings = append(out.Warnings, fmt.Sprintf("Action '%s' is not allowed for the current user", k))
			}
		}

		i, seen := index[rev.PageID]
		if !seen {
			i = len(out.Pages)
			index[rev.PageID] = i
			out.Pages = append(out.Pages, model.PageListing{PageID: rev.PageID, Title: rev.PageTitle})
		}
		out.Pages[i].Revisions = append(out.Pages[i].Revisions, vals)
	}
	return out
}

// Revision renders one revision with the fields in props.
func (r *Renderer) Revision(c model.Caller, rev model.Revision, props PropSet) map[string]any {
	vals := make(map[string]any, len(props)+2)

	if props.Has(PropIDs) {
		vals["revid"] = rev.ID
		vals["parentid"] = rev.ParentID
	}
	if props.Has(PropFlags) && rev.Minor {
		vals["minor"] = true
	}
	if props.Has(PropUser) || props.Has(PropUserID) {
		if rev.IsDeleted(model.DeletedUser) {
			vals["userhidden"] = true
		}
		if r.canSee(c, rev, model.DeletedUser) {
			if props.Has(PropUser) {
				vals["user"] = rev.UserText
			}
			if rev.UserID == 0 {
				vals["anon"] = true
			}
			if props.Has(PropUserID) {
				vals["userid"] = rev.UserID
			}
		}
	}
	if props.Has(PropTimestamp) {
		vals["timestamp"] = rev.Timestamp.UTC().Format(time.RFC3339)
	}
	if props.Has(PropSize) {
		vals["size"] = rev.Size
	}
	if props.Has(PropSHA1) {
		if rev.IsDeleted(model.DeletedText) {
			vals["sha1hidden"] = true
		}
		if r.canSee(c, rev, model.DeletedText) {
			vals["sha1"] = rev.SHA1
		}
	}
	if props.Has(PropContentModel) {
		vals["contentmodel"] = rev.ContentModel
	}
	if props.Has(PropComment) {
		if rev.IsDeleted(model.DeletedComment) {
			vals["commenthidden"] = true
		}
		if r.canSee(c, rev, model.DeletedComment) {
			vals["comment"] = rev.Comment
		}
	}
	if props.Has(PropTags) {
		tags := rev.Tags
		if tags == nil {
			tags = []string{}
		}
		vals["tags"] = tags
	}
	return vals
}

// CacheMode tells whether a response may be shared between callers.
func (r *Renderer) CacheMode(c model.Caller, opts Options) string {
	if len(opts.Tokens) > 0 || r.privs.Can(c, privilege.RightDeletedHistory) {
		return CachePrivate
	}
	return CachePublic
}

// canSee applies the deletion bits of rev to one field for caller c.
func (r *Renderer) canSee(c model.Caller, rev model.Revision, field int) bool {
	if !rev.IsDeleted(field) {
		return true
	}
	if rev.IsDeleted(model.DeletedRestricted) {
		return r.privs.Can(c, privilege.RightSuppressRevision) || r.privs.Can(c, privilege.RightViewSuppressed)
	}
	return r.privs.Can(c, privilege.RightDeletedHistory)
}
