package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"issuedesk.org/internal/auth"
	"issuedesk.org/internal/complaint"
	"issuedesk.org/internal/profile"
	"issuedesk.org/internal/store/memory"
)

func newTestAPI(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New()

	authSvc, err := auth.NewService(store, "test-secret-0123456789")
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	resolver := auth.NewResolver(store)
	profileSvc, err := profile.NewService(store)
	if err != nil {
		t.Fatalf("profile service: %v", err)
	}
	complaintSvc, err := complaint.NewService(store, resolver)
	if err != nil {
		t.Fatalf("complaint service: %v", err)
	}

	api, err := New(Options{
		Auth:       authSvc,
		Resolver:   resolver,
		Profiles:   profileSvc,
		Complaints: complaintSvc,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("httpapi: %v", err)
	}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return srv, store
}

type apiClient struct {
	t     *testing.T
	base  string
	token string
}

func (c *apiClient) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status %d, want %d", resp.StatusCode, want)
	}
}

func signUpBody() map[string]string {
	return map[string]string{
		"email":          "asha@example.in",
		"password":       "secret1",
		"aadhaar_number": "123456789012",
		"full_name":      "Asha Kumari",
		"phone":          "9876543210",
	}
}

func signUpAndSignIn(t *testing.T, c *apiClient) tokenResponse {
	t.Helper()
	resp := c.do(http.MethodPost, "/v1/auth/signup", signUpBody())
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = c.do(http.MethodPost, "/v1/auth/token", map[string]string{
		"email": "asha@example.in", "password": "secret1",
	})
	wantStatus(t, resp, http.StatusOK)
	return decode[tokenResponse](t, resp)
}

func provisionAdmin(t *testing.T, store *memory.Store) {
	t.Helper()
	prov, err := auth.NewProvisioner(store)
	if err != nil {
		t.Fatalf("provisioner: %v", err)
	}
	_, err = prov.Provision(context.Background(), auth.ProvisionParams{
		Email:      "admin@issuedesk.gov.in",
		Password:   "adminpass",
		FullName:   "District Admin",
		Phone:      "9000000001",
		EmployeeID: "EMP001",
	})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
}

func adminSignIn(t *testing.T, c *apiClient) tokenResponse {
	t.Helper()
	resp := c.do(http.MethodPost, "/v1/auth/admin/token", map[string]string{
		"email": "admin@issuedesk.gov.in", "password": "adminpass",
	})
	wantStatus(t, resp, http.StatusOK)
	return decode[tokenResponse](t, resp)
}

func TestSignUpDuplicateConflict(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := &apiClient{t: t, base: srv.URL}

	resp := c.do(http.MethodPost, "/v1/auth/signup", signUpBody())
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = c.do(http.MethodPost, "/v1/auth/signup", signUpBody())
	wantStatus(t, resp, http.StatusConflict)
	body := decode[errorResponse](t, resp)
	if body.Error.Code != "conflict" {
		t.Fatalf("code %q, want conflict", body.Error.Code)
	}
}

func TestSignUpValidationFields(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := &apiClient{t: t, base: srv.URL}

	body := signUpBody()
	body["aadhaar_number"] = "12"
	body["phone"] = "abc"
	resp := c.do(http.MethodPost, "/v1/auth/signup", body)
	wantStatus(t, resp, http.StatusBadRequest)
	got := decode[errorResponse](t, resp)
	if got.Error.Code != "validation_failed" {
		t.Fatalf("code %q", got.Error.Code)
	}
	if len(got.Error.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %v", got.Error.Fields)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := &apiClient{t: t, base: srv.URL}
	resp := c.do(http.MethodPost, "/v1/auth/signup", signUpBody())
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = c.do(http.MethodPost, "/v1/auth/token", map[string]string{
		"email": "asha@example.in", "password": "wrong",
	})
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestProfileRoundTrip(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := &apiClient{t: t, base: srv.URL}
	tokens := signUpAndSignIn(t, c)
	c.token = tokens.AccessToken

	resp := c.do(http.MethodGet, "/v1/profile", nil)
	wantStatus(t, resp, http.StatusOK)
	got := decode[struct {
		Profile profile.Profile `json:"profile"`
	}](t, resp)
	if got.Profile.AadhaarNumber != "123456789012" {
		t.Fatalf("aadhaar %q", got.Profile.AadhaarNumber)
	}

	resp = c.do(http.MethodPatch, "/v1/profile", map[string]string{
		"full_name": "Asha K", "phone": "9111111111",
	})
	wantStatus(t, resp, http.StatusOK)
	got = decode[struct {
		Profile profile.Profile `json:"profile"`
	}](t, resp)
	if got.Profile.FullName != "Asha K" || got.Profile.Phone != "9111111111" {
		t.Fatalf("update not applied: %+v", got.Profile)
	}
	if got.Profile.Email != "asha@example.in" {
		t.Fatalf("email must be untouched, got %q", got.Profile.Email)
	}
}

// The update payload has no email or aadhaar field; a request that carries
// one is rejected wholesale rather than silently stripped.
func TestProfileImmutableFieldsRejected(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := &apiClient{t: t, base: srv.URL}
	tokens := signUpAndSignIn(t, c)
	c.token = tokens.AccessToken

	for _, body := range []map[string]string{
		{"full_name": "Asha K", "email": "new@example.in"},
		{"full_name": "Asha K", "aadhaar_number": "999999999999"},
	} {
		resp := c.do(http.MethodPatch, "/v1/profile", body)
		wantStatus(t, resp, http.StatusBadRequest)
		resp.Body.Close()
	}
}

func TestComplaintSubmitAndTrack(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := &apiClient{t: t, base: srv.URL}
	tokens := signUpAndSignIn(t, c)
	c.token = tokens.AccessToken

	resp := c.do(http.MethodPost, "/v1/complaints", map[string]string{
		"title":       "Water supply interrupted",
		"category":    "water",
		"priority":    "high",
		"description": "No water in ward 7 since Monday.",
		"location":    "Ward 7",
	})
	wantStatus(t, resp, http.StatusCreated)
	created := decode[struct {
		Complaint complaint.Complaint `json:"complaint"`
	}](t, resp)
	if created.Complaint.Status != complaint.StatusPending {
		t.Fatalf("status %q, want pending", created.Complaint.Status)
	}

	resp = c.do(http.MethodGet, "/v1/complaints/my", nil)
	wantStatus(t, resp, http.StatusOK)
	mine := decode[struct {
		Complaints []complaint.Complaint `json:"complaints"`
	}](t, resp)
	if len(mine.Complaints) != 1 || mine.Complaints[0].ID != created.Complaint.ID {
		t.Fatalf("own listing wrong: %+v", mine.Complaints)
	}
}

func TestOwnListingIsolation(t *testing.T) {
	srv, _ := newTestAPI(t)
	first := &apiClient{t: t, base: srv.URL}
	tokens := signUpAndSignIn(t, first)
	first.token = tokens.AccessToken

	resp := first.do(http.MethodPost, "/v1/complaints", map[string]string{
		"title": "Pothole", "category": "roads", "priority": "low", "description": "Deep pothole.",
	})
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	second := &apiClient{t: t, base: srv.URL}
	body := signUpBody()
	body["email"] = "ravi@example.in"
	body["aadhaar_number"] = "210987654321"
	resp = second.do(http.MethodPost, "/v1/auth/signup", body)
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()
	resp = second.do(http.MethodPost, "/v1/auth/token", map[string]string{
		"email": "ravi@example.in", "password": "secret1",
	})
	wantStatus(t, resp, http.StatusOK)
	second.token = decode[tokenResponse](t, resp).AccessToken

	resp = second.do(http.MethodGet, "/v1/complaints/my", nil)
	wantStatus(t, resp, http.StatusOK)
	mine := decode[struct {
		Complaints []complaint.Complaint `json:"complaints"`
	}](t, resp)
	if len(mine.Complaints) != 0 {
		t.Fatalf("second citizen sees %d foreign complaints", len(mine.Complaints))
	}
}

func TestGuardAnonymousRedirects(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := &apiClient{t: t, base: srv.URL}

	resp := c.do(http.MethodGet, "/v1/complaints/my", nil)
	wantStatus(t, resp, http.StatusUnauthorized)
	got := decode[errorResponse](t, resp)
	if got.Error.RedirectTo != "/login" {
		t.Fatalf("redirect %q, want /login", got.Error.RedirectTo)
	}
	if len(got.Error.Notices) != 0 {
		t.Fatalf("anonymous denial must carry no notice, got %v", got.Error.Notices)
	}

	resp = c.do(http.MethodGet, "/v1/complaints", nil)
	wantStatus(t, resp, http.StatusUnauthorized)
	got = decode[errorResponse](t, resp)
	if got.Error.RedirectTo != "/admin/login" {
		t.Fatalf("redirect %q, want /admin/login", got.Error.RedirectTo)
	}
}

func TestGuardCitizenDeniedAdminSurface(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := &apiClient{t: t, base: srv.URL}
	tokens := signUpAndSignIn(t, c)
	c.token = tokens.AccessToken

	for _, probe := range []struct {
		method, path string
	}{
		{http.MethodGet, "/v1/complaints"},
		{http.MethodGet, "/v1/complaints/stats"},
		{http.MethodPatch, "/v1/complaints/some-id/status"},
	} {
		resp := c.do(probe.method, probe.path, map[string]string{"status": "resolved"})
		wantStatus(t, resp, http.StatusForbidden)
		got := decode[errorResponse](t, resp)
		if got.Error.RedirectTo != "/" {
			t.Fatalf("%s %s: redirect %q, want /", probe.method, probe.path, got.Error.RedirectTo)
		}
		if len(got.Error.Notices) != 1 {
			t.Fatalf("%s %s: got %d notices, want exactly 1", probe.method, probe.path, len(got.Error.Notices))
		}
	}
}

func TestAdminSignInGate(t *testing.T) {
	srv, store := newTestAPI(t)
	c := &apiClient{t: t, base: srv.URL}
	signUpAndSignIn(t, c)
	provisionAdmin(t, store)

	// A citizen's valid credentials do not open the admin portal.
	resp := c.do(http.MethodPost, "/v1/auth/admin/token", map[string]string{
		"email": "asha@example.in", "password": "secret1",
	})
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	adminSignIn(t, c)
}

func TestAdminTriageFlow(t *testing.T) {
	srv, store := newTestAPI(t)
	citizen := &apiClient{t: t, base: srv.URL}
	tokens := signUpAndSignIn(t, citizen)
	citizen.token = tokens.AccessToken

	resp := citizen.do(http.MethodPost, "/v1/complaints", map[string]string{
		"title": "Garbage not collected", "category": "sanitation",
		"priority": "urgent", "description": "Bins overflowing for three days.",
	})
	wantStatus(t, resp, http.StatusCreated)
	created := decode[struct {
		Complaint complaint.Complaint `json:"complaint"`
	}](t, resp)

	provisionAdmin(t, store)
	adm := &apiClient{t: t, base: srv.URL}
	adm.token = adminSignIn(t, adm).AccessToken

	resp = adm.do(http.MethodGet, "/v1/complaints", nil)
	wantStatus(t, resp, http.StatusOK)
	all := decode[struct {
		Complaints []complaint.Complaint `json:"complaints"`
	}](t, resp)
	if len(all.Complaints) != 1 {
		t.Fatalf("admin listing has %d complaints, want 1", len(all.Complaints))
	}

	resp = adm.do(http.MethodPatch, "/v1/complaints/"+created.Complaint.ID+"/status",
		map[string]string{"status": "in_progress"})
	wantStatus(t, resp, http.StatusOK)
	updated := decode[struct {
		Complaint complaint.Complaint `json:"complaint"`
	}](t, resp)
	if updated.Complaint.Status != complaint.StatusInProgress {
		t.Fatalf("status %q", updated.Complaint.Status)
	}

	// Reopening is legal.
	resp = adm.do(http.MethodPatch, "/v1/complaints/"+created.Complaint.ID+"/status",
		map[string]string{"status": "pending"})
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = adm.do(http.MethodPatch, "/v1/complaints/"+created.Complaint.ID+"/status",
		map[string]string{"status": "escalated"})
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = adm.do(http.MethodGet, "/v1/complaints/stats", nil)
	wantStatus(t, resp, http.StatusOK)
	stats := decode[struct {
		Total    int            `json:"total"`
		ByStatus map[string]int `json:"by_status"`
	}](t, resp)
	if stats.Total != 1 || stats.ByStatus["pending"] != 1 {
		t.Fatalf("stats %+v", stats)
	}
	if len(stats.ByStatus) != 4 {
		t.Fatalf("stats must include every status, got %v", stats.ByStatus)
	}

	// The citizen sees the admin's change on their next read.
	resp = citizen.do(http.MethodGet, "/v1/complaints/my", nil)
	wantStatus(t, resp, http.StatusOK)
	mine := decode[struct {
		Complaints []complaint.Complaint `json:"complaints"`
	}](t, resp)
	if mine.Complaints[0].Status != complaint.StatusPending {
		t.Fatalf("citizen view status %q", mine.Complaints[0].Status)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := &apiClient{t: t, base: srv.URL}
	tokens := signUpAndSignIn(t, c)

	resp := c.do(http.MethodPost, "/v1/auth/refresh", map[string]string{
		"refresh_token": tokens.RefreshToken,
	})
	wantStatus(t, resp, http.StatusOK)
	rotated := decode[tokenResponse](t, resp)
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Fatal("refresh must rotate the token")
	}

	// The consumed token is gone.
	resp = c.do(http.MethodPost, "/v1/auth/refresh", map[string]string{
		"refresh_token": tokens.RefreshToken,
	})
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = c.do(http.MethodPost, "/v1/auth/logout", map[string]string{
		"refresh_token": rotated.RefreshToken,
	})
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = c.do(http.MethodPost, "/v1/auth/refresh", map[string]string{
		"refresh_token": rotated.RefreshToken,
	})
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestInvalidBearerToken(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := &apiClient{t: t, base: srv.URL, token: "garbage"}
	resp := c.do(http.MethodGet, "/v1/profile", nil)
	wantStatus(t, resp, http.StatusUnauthorized)
	got := decode[errorResponse](t, resp)
	if got.Error.Code != "invalid_token" {
		t.Fatalf("code %q", got.Error.Code)
	}
}

func TestHealthAndInfo(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := &apiClient{t: t, base: srv.URL}

	resp := c.do(http.MethodGet, "/healthz", nil)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = c.do(http.MethodGet, "/readyz", nil)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = c.do(http.MethodGet, "/v1/info", nil)
	wantStatus(t, resp, http.StatusOK)
	info := decode[map[string]string](t, resp)
	if info["service"] != "issuedesk" || info["version"] != "test" {
		t.Fatalf("info %v", info)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := &apiClient{t: t, base: srv.URL}
	resp := c.do(http.MethodDelete, "/v1/auth/signup", nil)
	wantStatus(t, resp, http.StatusMethodNotAllowed)
	resp.Body.Close()
}
