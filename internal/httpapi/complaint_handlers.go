package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"issuedesk.org/internal/audit"
	"issuedesk.org/internal/complaint"
	"issuedesk.org/internal/obs"
)

type submitComplaintRequest struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// handleComplaints serves POST (citizen submission) and GET (admin listing)
// on /v1/complaints. The two methods carry different access requirements.
func (a *API) handleComplaints(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		identity, ok := a.guard(w, r, RequireUser)
		if !ok {
			return
		}
		var req submitComplaintRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		c, err := a.complaints.Submit(r.Context(), identity, complaint.SubmitParams{
			Title:       req.Title,
			Category:    complaint.Category(req.Category),
			Priority:    complaint.Priority(req.Priority),
			Description: req.Description,
			Location:    req.Location,
		})
		if err != nil {
			a.handleComplaintError(w, r, err)
			return
		}
		obs.CountComplaintSubmitted(string(c.Category), string(c.Priority))
		_ = audit.LogEvent(r.Context(), "complaint.submitted", map[string]any{
			"complaint_id": c.ID,
			"category":     string(c.Category),
			"priority":     string(c.Priority),
		})
		writeJSON(w, http.StatusCreated, map[string]any{"complaint": c})
	case http.MethodGet:
		identity, ok := a.guard(w, r, RequireAdmin)
		if !ok {
			return
		}
		list, err := a.complaints.ListAll(r.Context(), identity)
		if err != nil {
			a.handleComplaintError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"complaints": list})
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleMyComplaints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity, ok := a.guard(w, r, RequireUser)
	if !ok {
		return
	}
	list, err := a.complaints.ListOwn(r.Context(), identity)
	if err != nil {
		a.handleComplaintError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"complaints": list})
}

func (a *API) handleComplaintStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity, ok := a.guard(w, r, RequireAdmin)
	if !ok {
		return
	}
	counts, err := a.complaints.Stats(r.Context(), identity)
	if err != nil {
		a.handleComplaintError(w, r, err)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":     total,
		"by_status": counts,
	})
}

// handleComplaintStatus serves PATCH /v1/complaints/{id}/status.
func (a *API) handleComplaintStatus(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/complaints/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "status" {
		writeError(w, r, http.StatusNotFound, "not_found", "unknown resource")
		return
	}
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	identity, ok := a.guard(w, r, RequireAdmin)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	c, err := a.complaints.UpdateStatus(r.Context(), identity, parts[0], complaint.Status(req.Status))
	if err != nil {
		a.handleComplaintError(w, r, err)
		return
	}
	obs.CountStatusUpdate(string(c.Status))
	_ = audit.LogEvent(r.Context(), "complaint.status_updated", map[string]any{
		"complaint_id": c.ID,
		"status":       string(c.Status),
	})
	writeJSON(w, http.StatusOK, map[string]any{"complaint": c})
}

func (a *API) handleComplaintError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *complaint.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make([]fieldErrorPayload, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, fieldErrorPayload{Field: f.Field, Message: f.Message})
		}
		writeFieldErrors(w, r, fields)
	case errors.Is(err, complaint.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "complaint not found")
	case errors.Is(err, complaint.ErrUnauthorized):
		writeError(w, r, http.StatusForbidden, "forbidden", "not allowed")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}
