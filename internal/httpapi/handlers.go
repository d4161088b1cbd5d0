// Package httpapi exposes the portal over HTTP: citizen sign-up and
// sessions, profile reads and updates, complaint submission and tracking,
// and the admin triage surface. Authorization is decided per request by the
// route guard in guard.go; nothing about a caller's role is cached.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"issuedesk.org/internal/auth"
	"issuedesk.org/internal/complaint"
	"issuedesk.org/internal/obs"
	"issuedesk.org/internal/profile"
)

// ReadyProbe reports backend readiness, typically a database ping.
type ReadyProbe func(ctx context.Context) error

// Options wires the API's collaborators.
type Options struct {
	Auth       *auth.Service
	Resolver   *auth.Resolver
	Profiles   *profile.Service
	Complaints *complaint.Service
	Ready      ReadyProbe
	Version    string

	RatePerSecond int
	RateBurst     int
	MaxBodyBytes  int64
}

// API is the HTTP surface. It implements http.Handler.
type API struct {
	auth       *auth.Service
	resolver   *auth.Resolver
	profiles   *profile.Service
	complaints *complaint.Service
	ready      ReadyProbe
	version    string

	handler http.Handler
}

// New constructs the API and its middleware chain.
func New(opts Options) (*API, error) {
	if opts.Auth == nil {
		return nil, errors.New("httpapi: auth service is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("httpapi: role resolver is required")
	}
	if opts.Profiles == nil {
		return nil, errors.New("httpapi: profile service is required")
	}
	if opts.Complaints == nil {
		return nil, errors.New("httpapi: complaint service is required")
	}

	a := &API{
		auth:       opts.Auth,
		resolver:   opts.Resolver,
		profiles:   opts.Profiles,
		complaints: opts.Complaints,
		ready:      opts.Ready,
		version:    opts.Version,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/readyz", a.handleReadyz)
	mux.HandleFunc("/v1/info", a.handleInfo)
	mux.Handle("/metrics", obs.Handler())

	mux.HandleFunc("/v1/auth/signup", a.handleSignUp)
	mux.HandleFunc("/v1/auth/token", a.handleToken)
	mux.HandleFunc("/v1/auth/admin/token", a.handleAdminToken)
	mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	mux.HandleFunc("/v1/auth/logout", a.handleLogout)

	mux.HandleFunc("/v1/profile", a.handleProfile)

	mux.HandleFunc("/v1/complaints", a.handleComplaints)
	mux.HandleFunc("/v1/complaints/my", a.handleMyComplaints)
	mux.HandleFunc("/v1/complaints/stats", a.handleComplaintStats)
	mux.HandleFunc("/v1/complaints/", a.handleComplaintStatus)

	var h http.Handler = mux
	h = a.withAuth(h)
	h = obs.Instrument(h)
	if opts.MaxBodyBytes > 0 {
		h = MaxBodyBytes(opts.MaxBodyBytes)(h)
	}
	if opts.RatePerSecond > 0 {
		h = RateLimit(opts.RatePerSecond, opts.RateBurst)(h)
	}
	h = Logging(h)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	a.handler = h
	return a, nil
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.ready != nil {
		if err := a.ready(r.Context()); err != nil {
			obs.SetReady(false)
			writeError(w, r, http.StatusServiceUnavailable, "not_ready", "backend is not ready")
			return
		}
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "issuedesk",
		"version": a.version,
	})
}

type fieldErrorPayload struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorBody struct {
	Code       string              `json:"code"`
	Message    string              `json:"message"`
	RequestID  string              `json:"request_id,omitempty"`
	Fields     []fieldErrorPayload `json:"fields,omitempty"`
	RedirectTo string              `json:"redirect_to,omitempty"`
	Notices    []string            `json:"notices,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.LogRequest(map[string]any{"level": "error", "msg": "encode response", "error": err.Error()})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{
		Code:      code,
		Message:   message,
		RequestID: RequestIDFromContext(r.Context()),
	}})
}

func writeFieldErrors(w http.ResponseWriter, r *http.Request, fields []fieldErrorPayload) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:      "validation_failed",
		Message:   "one or more fields are invalid",
		RequestID: RequestIDFromContext(r.Context()),
		Fields:    fields,
	}})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed",
		fmt.Sprintf("method %s is not allowed", r.Method))
}

// decodeJSON parses a request body strictly: unknown fields are rejected so
// a client cannot, for example, smuggle a status into a submission.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
