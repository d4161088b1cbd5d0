package auth

import "context"

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	Roles(ctx context.Context) RoleStore
	RefreshTokens(ctx context.Context) RefreshTokenStore
}

// UserStore manages user accounts.
type UserStore interface {
	// Create persists the user and its profile atomically.
	Create(ctx context.Context, u *User, seed ProfileSeed) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// RoleStore manages role assignments. Lookups have zero-or-one row
// semantics per (user, role) pair.
type RoleStore interface {
	Assign(ctx context.Context, userID, role string) error
	Has(ctx context.Context, userID, role string) (bool, error)
	Assignments(ctx context.Context, userID string) ([]RoleAssignment, error)
}

// RefreshTokenStore manages refresh token lifecycle.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	Find(ctx context.Context, id string) (*RefreshToken, error)
	MarkRevoked(ctx context.Context, id string) error
	MarkRevokedByUser(ctx context.Context, userID string) error
}
