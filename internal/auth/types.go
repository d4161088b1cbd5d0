package auth

import "time"

const (
	userStatusActive   = "active"
	userStatusDisabled = "disabled"
)

// RoleAdmin is the only elevated capability the portal recognises today.
// Role names are stored lowercased; comparisons are exact.
const RoleAdmin = "admin"

// User is an authenticated account. The portal never exposes PasswordHash
// outside this package.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the session's view of a user: the only fields request
// handlers may rely on. Role membership is resolved per request, never
// carried on the identity.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// RoleAssignment grants a named capability to a user. Absence of a row
// means absence of the capability.
type RoleAssignment struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileSeed carries the profile fields collected at sign-up. The profile
// row is created in the same transaction as the user so an identity never
// exists without one.
type ProfileSeed struct {
	AadhaarNumber string
	FullName      string
	Phone         string
}

// RefreshToken is the persisted half of a session: the client holds
// "<id>.<secret>", the store holds the sha256 of the secret.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

// TokenPair is what a successful sign-in hands to the client.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}
