package httpapi

import (
	"errors"
	"net/http"

	"issuedesk.org/internal/profile"
)

// updateProfileRequest deliberately has no email or aadhaar field. Combined
// with DisallowUnknownFields in decodeJSON, a request that tries to change
// either is rejected before it reaches the service.
type updateProfileRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.guard(w, r, RequireUser)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := a.profiles.Get(r.Context(), identity.ID)
		if err != nil {
			a.handleProfileError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": p})
	case http.MethodPatch:
		var req updateProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		p, err := a.profiles.Update(r.Context(), identity.ID, profile.UpdateParams{
			FullName: req.FullName,
			Phone:    req.Phone,
		})
		if err != nil {
			a.handleProfileError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": p})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
	}
}

func (a *API) handleProfileError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "profile not found")
	case errors.Is(err, profile.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}
