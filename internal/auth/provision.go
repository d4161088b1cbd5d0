package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"issuedesk.org/internal/ids"
)

var employeeIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,24}$`)

// Provisioner creates admin identities. It runs with service credentials
// (direct store access) and is never reachable through the public API: the
// only callers are the provision-admin command and tests.
type Provisioner struct {
	store Store
}

// NewProvisioner constructs a Provisioner over the shared auth store.
func NewProvisioner(store Store) (*Provisioner, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	return &Provisioner{store: store}, nil
}

// ProvisionParams describes an admin account to ensure.
type ProvisionParams struct {
	Email      string
	Password   string
	FullName   string
	Phone      string
	EmployeeID string
}

func (p ProvisionParams) validate() error {
	verr := &ValidationError{}
	email := strings.TrimSpace(strings.ToLower(p.Email))
	if email == "" || !strings.Contains(email, "@") {
		verr.add("email", "valid email is required")
	}
	if n := len(p.Password); n < 6 || n > 100 {
		verr.add("password", "password must be between 6 and 100 characters")
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(p.FullName)); n < 2 || n > 100 {
		verr.add("full_name", "full name must be between 2 and 100 characters")
	}
	if !employeeIDPattern.MatchString(strings.TrimSpace(p.EmployeeID)) {
		verr.add("employee_id", "employee id must be 1 to 24 alphanumeric characters")
	}
	return verr.orNil()
}

// Provision ensures an admin identity exists and holds the admin role.
// Admins have no real aadhaar on file, so the profile carries a synthetic
// "ADMIN<employee id>" placeholder. An existing identity and an existing
// role assignment are both success, which makes re-running provisioning
// safe.
func (p *Provisioner) Provision(ctx context.Context, params ProvisionParams) (*User, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(strings.ToLower(params.Email))
	employeeID := strings.ToUpper(strings.TrimSpace(params.EmployeeID))

	users := p.store.Users(ctx)
	user, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		// Identity already provisioned; fall through to the role grant.
	case errors.Is(err, ErrNotFound):
		hash, herr := HashPassword(params.Password)
		if herr != nil {
			return nil, herr
		}
		user = &User{
			ID:           ids.New(),
			Email:        email,
			PasswordHash: hash,
			Status:       userStatusActive,
		}
		seed := ProfileSeed{
			AadhaarNumber: "ADMIN" + employeeID,
			FullName:      strings.TrimSpace(params.FullName),
			Phone:         strings.TrimSpace(params.Phone),
		}
		if cerr := users.Create(ctx, user, seed); cerr != nil {
			if !errors.Is(cerr, ErrAlreadyExists) {
				return nil, cerr
			}
			// Lost a race with a concurrent provision run; re-read.
			user, err = users.FindByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
		}
	default:
		return nil, err
	}

	if err := p.store.Roles(ctx).Assign(ctx, user.ID, RoleAdmin); err != nil {
		if !errors.Is(err, ErrAlreadyExists) {
			return nil, err
		}
	}
	return user, nil
}
