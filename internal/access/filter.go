// Package access derives the document visibility scope for a signed-in user.
package access

import "docviewer-backend/internal/users"

// Filter restricts a document query. A zero OwnerID means no restriction.
type Filter struct {
	OwnerID string
}

// Unrestricted reports whether the filter lets every document through.
func (f Filter) Unrestricted() bool {
	return f.OwnerID == ""
}

// Allows reports whether a document owned by ownerID is visible under f.
func (f Filter) Allows(ownerID string) bool {
	return f.Unrestricted() || f.OwnerID == ownerID
}

// EffectiveFilter maps a user's role and impersonation mode to a filter.
// First match wins:
//
//	ADMIN, mode SELF        -> own documents only
//	ADMIN, any other mode   -> everything (unset counts as "other")
//	anyone else             -> own documents only
//
// SELF is the admin's scoped view, not full admin power. The filter must be
// rebuilt per request since the mode can change between requests.
func EffectiveFilter(u users.User) Filter {
	switch {
	case u.IsAdmin() && u.CurrentImpersonationMode == users.ModeSelf:
		return Filter{OwnerID: u.ID}
	case u.IsAdmin():
		return Filter{}
	default:
		return Filter{OwnerID: u.ID}
	}
}
