package httpapi

import (
	"errors"
	"net/http"
	"time"

	"issuedesk.org/internal/audit"
	"issuedesk.org/internal/auth"
)

type signUpRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	AadhaarNumber string `json:"aadhaar_number"`
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type identityPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken      string          `json:"access_token"`
	RefreshToken     string          `json:"refresh_token"`
	TokenType        string          `json:"token_type"`
	AccessExpiresAt  time.Time       `json:"access_expires_at"`
	RefreshExpiresAt time.Time       `json:"refresh_expires_at"`
	User             identityPayload `json:"user"`
}

func tokenPayload(pair auth.TokenPair, identity auth.Identity) tokenResponse {
	return tokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		User:             identityPayload{ID: identity.ID, Email: identity.Email},
	}
}

func (a *API) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	user, err := a.auth.SignUp(r.Context(), auth.SignUpParams{
		Email:         req.Email,
		Password:      req.Password,
		AadhaarNumber: req.AadhaarNumber,
		FullName:      req.FullName,
		Phone:         req.Phone,
	})
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.signup", map[string]any{"user_id": user.ID})
	writeJSON(w, http.StatusCreated, map[string]any{
		"user": identityPayload{ID: user.ID, Email: user.Email},
	})
}

func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	pair, identity, err := a.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.signin", map[string]any{"user_id": identity.ID})
	writeJSON(w, http.StatusOK, tokenPayload(pair, identity))
}

// handleAdminToken signs in for the admin portal. The role check happens
// before any token exists, so a citizen with valid credentials gets the
// same 401 as a wrong password.
func (a *API) handleAdminToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	pair, identity, err := a.auth.AdminSignIn(r.Context(), a.resolver, req.Email, req.Password)
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.admin_signin", map[string]any{"user_id": identity.ID})
	writeJSON(w, http.StatusOK, tokenPayload(pair, identity))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	pair, identity, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenPayload(pair, identity))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := a.auth.SignOut(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", "sign out failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make([]fieldErrorPayload, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, fieldErrorPayload{Field: f.Field, Message: f.Message})
		}
		writeFieldErrors(w, r, fields)
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "conflict", "an account with this email or aadhaar number already exists")
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}
