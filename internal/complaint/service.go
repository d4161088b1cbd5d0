package complaint

import (
	"context"
	"errors"
	"strings"
	"time"

	"issuedesk.org/internal/auth"
	"issuedesk.org/internal/ids"
)

const maxTitleLen = 200

// Store describes complaint persistence. Listings are newest first.
type Store interface {
	Insert(ctx context.Context, c *Complaint) error
	ListByUser(ctx context.Context, userID string) ([]Complaint, error)
	ListAll(ctx context.Context) ([]Complaint, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Complaint, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

// Service owns the complaint lifecycle: citizens submit and read their own
// records, admins read everything and drive status. The role check runs
// before any admin operation touches the store, and it fails closed.
type Service struct {
	store    Store
	resolver *auth.Resolver
	now      func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the lifecycle manager.
func NewService(store Store, resolver *auth.Resolver, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("complaint: store is required")
	}
	if resolver == nil {
		return nil, errors.New("complaint: role resolver is required")
	}
	svc := &Service{store: store, resolver: resolver, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SubmitParams carries the submission form fields. Location is optional.
type SubmitParams struct {
	Title       string
	Category    Category
	Priority    Priority
	Description string
	Location    string
}

func (p SubmitParams) validate() error {
	verr := &ValidationError{}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		verr.add("title", "title is required")
	} else if len(title) > maxTitleLen {
		verr.add("title", "title is too long")
	}
	if p.Category == "" {
		verr.add("category", "category is required")
	} else if !p.Category.Valid() {
		verr.add("category", "unknown category")
	}
	if p.Priority == "" {
		verr.add("priority", "priority is required")
	} else if !p.Priority.Valid() {
		verr.add("priority", "unknown priority")
	}
	if strings.TrimSpace(p.Description) == "" {
		verr.add("description", "description is required")
	}
	return verr.orNil()
}

// Submit records a new complaint for the calling identity. The record
// starts in pending; no other initial status is expressible.
func (s *Service) Submit(ctx context.Context, identity auth.Identity, p SubmitParams) (*Complaint, error) {
	if identity.ID == "" {
		return nil, ErrUnauthorized
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &Complaint{
		ID:          ids.New(),
		UserID:      identity.ID,
		Title:       strings.TrimSpace(p.Title),
		Category:    p.Category,
		Priority:    p.Priority,
		Status:      StatusPending,
		Description: strings.TrimSpace(p.Description),
		Location:    strings.TrimSpace(p.Location),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListOwn returns the caller's complaints, newest first. Ownership is the
// filter itself; no further check is needed.
func (s *Service) ListOwn(ctx context.Context, identity auth.Identity) ([]Complaint, error) {
	if identity.ID == "" {
		return nil, ErrUnauthorized
	}
	return s.store.ListByUser(ctx, identity.ID)
}

// ListAll returns every complaint, newest first. Admin only.
func (s *Service) ListAll(ctx context.Context, identity auth.Identity) ([]Complaint, error) {
	if !s.resolver.HasRole(ctx, identity.ID, auth.RoleAdmin) {
		return nil, ErrUnauthorized
	}
	return s.store.ListAll(ctx)
}

// UpdateStatus sets a complaint's status. Admin only; this is the single
// mutation path for status, and owners hold no transition rights. Any
// enumerated status may follow any other, a no-op transition included.
func (s *Service) UpdateStatus(ctx context.Context, identity auth.Identity, complaintID string, status Status) (*Complaint, error) {
	if !s.resolver.HasRole(ctx, identity.ID, auth.RoleAdmin) {
		return nil, ErrUnauthorized
	}
	complaintID = strings.TrimSpace(complaintID)
	if complaintID == "" {
		return nil, ErrNotFound
	}
	if !status.Valid() {
		verr := &ValidationError{}
		verr.add("status", "unknown status")
		return nil, verr
	}
	return s.store.UpdateStatus(ctx, complaintID, status)
}

// Stats returns per-status complaint counts for the admin dashboard.
func (s *Service) Stats(ctx context.Context, identity auth.Identity) (map[Status]int, error) {
	if !s.resolver.HasRole(ctx, identity.ID, auth.RoleAdmin) {
		return nil, ErrUnauthorized
	}
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	// Every status is present in the result even when zero.
	for st := range statuses {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}
	return counts, nil
}
