// Package profile holds the citizen profile created alongside every
// identity at sign-up. Aadhaar number and email are write-once: the update
// path cannot express a change to either, only full name and phone are
// mutable, and only by the owning identity.
package profile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrNotFound     = errors.New("profile: not found")
	ErrInvalidInput = errors.New("profile: invalid input")
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// Profile mirrors the profiles relation. ID equals the owning user's ID.
type Profile struct {
	ID            string    `json:"id"`
	AadhaarNumber string    `json:"aadhaar_number"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store describes profile persistence. UpdateMutable accepts only the two
// mutable columns so immutability of aadhaar_number and email holds by
// construction, not by runtime checks.
type Store interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	UpdateMutable(ctx context.Context, userID, fullName, phone string) (*Profile, error)
}

// Service exposes profile reads and owner-scoped updates.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("profile: store is required")
	}
	return &Service{store: store}, nil
}

// Get returns the caller's own profile.
func (s *Service) Get(ctx context.Context, userID string) (*Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Get(ctx, userID)
}

// UpdateParams carries the only fields a profile owner may change.
type UpdateParams struct {
	FullName string
	Phone    string
}

// Update applies full_name/phone changes for the owning identity. Requests
// carrying an email or aadhaar change never reach this code path; the API
// surface has no field for them.
func (s *Service) Update(ctx context.Context, userID string, p UpdateParams) (*Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	fullName := strings.TrimSpace(p.FullName)
	if n := utf8.RuneCountInString(fullName); n < 2 || n > 100 {
		return nil, fmt.Errorf("%w: full name must be between 2 and 100 characters", ErrInvalidInput)
	}
	phone := strings.TrimSpace(p.Phone)
	if phone != "" && !phonePattern.MatchString(phone) {
		return nil, fmt.Errorf("%w: phone number must be 10 digits", ErrInvalidInput)
	}
	return s.store.UpdateMutable(ctx, userID, fullName, phone)
}
