package auth

import (
	"context"
	"strings"
)

// Resolver answers capability questions with fail-closed semantics: a
// missing assignment row and a failed lookup are indistinguishable to the
// caller, both deny. Results are never cached; a revoked role takes effect
// on the caller's next check.
type Resolver struct {
	store Store
}

// NewResolver constructs a Resolver over the shared auth store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// HasRole reports whether the user holds the named role. Any transport or
// query error resolves to false.
func (r *Resolver) HasRole(ctx context.Context, userID, role string) bool {
	if r == nil || r.store == nil {
		return false
	}
	userID = strings.TrimSpace(userID)
	role = strings.TrimSpace(strings.ToLower(role))
	if userID == "" || role == "" {
		return false
	}
	ok, err := r.store.Roles(ctx).Has(ctx, userID, role)
	if err != nil {
		return false
	}
	return ok
}
