package httpapi

import (
	"net/http"

	"issuedesk.org/internal/audit"
	"issuedesk.org/internal/auth"
	"issuedesk.org/internal/obs"
)

// Requirement is the access level an endpoint demands.
type Requirement int

const (
	// RequireNone admits anonymous callers.
	RequireNone Requirement = iota
	// RequireUser admits any authenticated identity.
	RequireUser
	// RequireAdmin admits only identities holding the admin role, resolved
	// fresh on every request.
	RequireAdmin
)

const (
	citizenLoginPath = "/login"
	adminLoginPath   = "/admin/login"

	accessDeniedNotice = "Access denied. Admin privileges required."
)

// Decision is the route guard's verdict for one request. A denial carries
// the redirect target for the client and, for a role denial, exactly one
// user-facing notice.
type Decision struct {
	Allowed    bool
	Status     int
	Code       string
	Message    string
	RedirectTo string
	Notices    []string
}

// Decide applies the guard rules given a (possibly absent) identity and
// whether it holds the admin role. It never renders an admin decision while
// the caller is unauthenticated: a missing session wins over a missing role,
// so an anonymous caller is sent to log in, not told about privileges.
func Decide(authenticated, isAdmin bool, req Requirement) Decision {
	switch {
	case req == RequireNone:
		return Decision{Allowed: true}
	case !authenticated:
		redirect := citizenLoginPath
		if req == RequireAdmin {
			redirect = adminLoginPath
		}
		return Decision{
			Status:     http.StatusUnauthorized,
			Code:       "unauthorized",
			Message:    "authentication required",
			RedirectTo: redirect,
		}
	case req == RequireAdmin && !isAdmin:
		return Decision{
			Status:     http.StatusForbidden,
			Code:       "forbidden",
			Message:    "admin role required",
			RedirectTo: "/",
			Notices:    []string{accessDeniedNotice},
		}
	default:
		return Decision{Allowed: true}
	}
}

// guard enforces the endpoint's requirement. On denial it writes the
// response and returns ok=false; handlers must not proceed. The role lookup
// fails closed: any resolver failure reads as "not admin".
func (a *API) guard(w http.ResponseWriter, r *http.Request, req Requirement) (auth.Identity, bool) {
	identity, authenticated := auth.IdentityFromContext(r.Context())
	isAdmin := false
	if authenticated && req == RequireAdmin {
		isAdmin = a.resolver.HasRole(r.Context(), identity.ID, auth.RoleAdmin)
	}
	decision := Decide(authenticated, isAdmin, req)
	if decision.Allowed {
		return identity, true
	}
	obs.CountAccessDenied()
	_ = audit.LogEvent(r.Context(), "access.denied", map[string]any{
		"path":   r.URL.Path,
		"status": decision.Status,
	})
	writeJSON(w, decision.Status, errorResponse{Error: errorBody{
		Code:       decision.Code,
		Message:    decision.Message,
		RequestID:  RequestIDFromContext(r.Context()),
		RedirectTo: decision.RedirectTo,
		Notices:    decision.Notices,
	}})
	return auth.Identity{}, false
}
