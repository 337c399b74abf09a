package render

import (
	"crypto/hmac"
	"encoding/hex"
	"fmt"
	"hash"
	"slices"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/maxviazov/revision-history-service/internal/enumerate"
	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/privilege"
)

// TokenKind names an action token a revision can carry.
type TokenKind string

const TokenRollback TokenKind = "rollback"

// tokenSuffix marks tokens so that a proxy mangling backslashes is detectable.
const tokenSuffix = `+\`

// TokenIssuer produces one kind of action token. Issue returns false when the
// caller may not perform the action.
type TokenIssuer interface {
	Kind() TokenKind
	Issue(c model.Caller, r model.Revision) (string, bool)
}

// TokenRegistry holds the issuers a deployment supports, keyed by kind.
type TokenRegistry struct {
	issuers map[TokenKind]TokenIssuer
}

// NewTokenRegistry registers the given issuers.
func NewTokenRegistry(issuers ...TokenIssuer) *TokenRegistry {
	r := &TokenRegistry{issuers: make(map[TokenKind]TokenIssuer, len(issuers))}
	for _, i := range issuers {
		r.Register(i)
	}
	return r
}

// Register adds or replaces the issuer for i.Kind().
func (r *TokenRegistry) Register(i TokenIssuer) { r.issuers[i.Kind()] = i }

// Kinds lists registered kinds in sorted order.
func (r *TokenRegistry) Kinds() []TokenKind {
	out := make([]TokenKind, 0, len(r.issuers))
	for k := range r.issuers {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// ParseKinds validates requested token names against the registry.
func (r *TokenRegistry) ParseKinds(names []string) ([]TokenKind, error) {
	var out []TokenKind
	for _, n := range names {
		k := TokenKind(strings.ToLower(strings.TrimSpace(n)))
		if k == "" {
			continue
		}
		if _, ok := r.issuers[k]; !ok {
			return nil, &enumerate.UsageError{Code: CodeBadToken, Info: fmt.Sprintf("unrecognized value for parameter 'token': %s (allowed: %s)", n, r.allowed())}
		}
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *TokenRegistry) allowed() string {
	kinds := r.Kinds()
	if len(kinds) == 0 {
		return "none"
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func (r *TokenRegistry) issuer(k TokenKind) (TokenIssuer, bool) {
	i, ok := r.issuers[k]
	return i, ok
}

// RollbackIssuer signs (caller, page title, revision author) so a later
// rollback request can prove it was prepared for this exact revision.
type RollbackIssuer struct {
	secret []byte
	privs  privilege.Checker
}

// NewRollbackIssuer returns an issuer keyed with secret.
func NewRollbackIssuer(secret string, privs privilege.Checker) *RollbackIssuer {
	return &RollbackIssuer{secret: []byte(secret), privs: privs}
}

func (i *RollbackIssuer) Kind() TokenKind { return TokenRollback }

func (i *RollbackIssuer) Issue(c model.Caller, r model.Revision) (string, bool) {
	if !i.privs.Can(c, privilege.RightRollback) {
		return "", false
	}
	mac := hmac.New(func() hash.Hash { return sha3.New256() }, i.secret)
	for _, part := range []string{c.Name, r.PageTitle, r.UserText} {
		mac.Write([]byte(part))
		mac.Write([]byte{0})
	}
	return hex.EncodeToString(mac.Sum(nil)) + tokenSuffix, true
}

var _ TokenIssuer = (*RollbackIssuer)(nil)
