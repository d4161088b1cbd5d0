// Package memory is an in-process implementation of every store contract
// the portal needs. It backs tests and DSN-less local runs; production uses
// the PostgreSQL stores.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"issuedesk.org/internal/auth"
	"issuedesk.org/internal/complaint"
	"issuedesk.org/internal/profile"
)

// Store implements auth.Store, profile.Store and complaint.Store with
// in-process concurrency safety.
type Store struct {
	mu            sync.RWMutex
	users         map[string]*auth.User
	usersByEmail  map[string]string
	roles         map[string]map[string]time.Time // userID -> role -> granted at
	refreshTokens map[string]*auth.RefreshToken
	profiles      map[string]*profile.Profile
	complaints    map[string]*complaint.Complaint
}

var (
	_ auth.Store      = (*Store)(nil)
	_ profile.Store   = (*Store)(nil)
	_ complaint.Store = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:         make(map[string]*auth.User),
		usersByEmail:  make(map[string]string),
		roles:         make(map[string]map[string]time.Time),
		refreshTokens: make(map[string]*auth.RefreshToken),
		profiles:      make(map[string]*profile.Profile),
		complaints:    make(map[string]*complaint.Complaint),
	}
}

// auth.Store -----------------------------------------------------------------

func (s *Store) Users(context.Context) auth.UserStore                 { return (*userStore)(s) }
func (s *Store) Roles(context.Context) auth.RoleStore                 { return (*roleStore)(s) }
func (s *Store) RefreshTokens(context.Context) auth.RefreshTokenStore { return (*refreshTokenStore)(s) }

type userStore Store

func (s *userStore) Create(ctx context.Context, u *auth.User, seed auth.ProfileSeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usersByEmail[u.Email]; ok {
		return auth.ErrAlreadyExists
	}
	now := time.Now().UTC()
	stored := *u
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.users[u.ID] = &stored
	s.usersByEmail[u.Email] = u.ID
	s.profiles[u.ID] = &profile.Profile{
		ID:            u.ID,
		AadhaarNumber: seed.AadhaarNumber,
		FullName:      seed.FullName,
		Email:         u.Email,
		Phone:         seed.Phone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (s *userStore) Find(ctx context.Context, id string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *s.users[id]
	return &out, nil
}

type roleStore Store

func (s *roleStore) Assign(ctx context.Context, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return auth.ErrNotFound
	}
	grants, ok := s.roles[userID]
	if !ok {
		grants = make(map[string]time.Time)
		s.roles[userID] = grants
	}
	if _, ok := grants[role]; ok {
		return auth.ErrAlreadyExists
	}
	grants[role] = time.Now().UTC()
	return nil
}

func (s *roleStore) Has(ctx context.Context, userID, role string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roles[userID][role]
	return ok, nil
}

func (s *roleStore) Assignments(ctx context.Context, userID string) ([]auth.RoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []auth.RoleAssignment
	for role, at := range s.roles[userID] {
		res = append(res, auth.RoleAssignment{UserID: userID, Role: role, CreatedAt: at})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

type refreshTokenStore Store

func (s *refreshTokenStore) Create(ctx context.Context, tok *auth.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *tok
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.refreshTokens[tok.ID] = &stored
	return nil
}

func (s *refreshTokenStore) Find(ctx context.Context, id string) (*auth.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.refreshTokens[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (s *refreshTokenStore) MarkRevoked(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.refreshTokens[id]; ok {
		t.Revoked = true
	}
	return nil
}

func (s *refreshTokenStore) MarkRevokedByUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.refreshTokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

// profile.Store ---------------------------------------------------------------

func (s *Store) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *Store) UpdateMutable(ctx context.Context, userID, fullName, phone string) (*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	p.FullName = fullName
	p.Phone = phone
	p.UpdatedAt = time.Now().UTC()
	out := *p
	return &out, nil
}

// complaint.Store -------------------------------------------------------------

func (s *Store) Insert(ctx context.Context, c *complaint.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *c
	s.complaints[c.ID] = &stored
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]complaint.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []complaint.Complaint
	for _, c := range s.complaints {
		if c.UserID == userID {
			res = append(res, *c)
		}
	}
	sortNewestFirst(res)
	return res, nil
}

func (s *Store) ListAll(ctx context.Context) ([]complaint.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]complaint.Complaint, 0, len(s.complaints))
	for _, c := range s.complaints {
		res = append(res, *c)
	}
	sortNewestFirst(res)
	return res, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status complaint.Status) (*complaint.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return nil, complaint.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	out := *c
	return &out, nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[complaint.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[complaint.Status]int)
	for _, c := range s.complaints {
		counts[c.Status]++
	}
	return counts, nil
}

func sortNewestFirst(cs []complaint.Complaint) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			// ULIDs sort in creation order; break ties deterministically.
			return cs[i].ID > cs[j].ID
		}
		return cs[i].CreatedAt.After(cs[j].CreatedAt)
	})
}
