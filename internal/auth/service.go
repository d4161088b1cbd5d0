package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"issuedesk.org/internal/ids"
)

const (
	defaultIssuer     = "issuedesk"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour * 14
)

var (
	aadhaarPattern = regexp.MustCompile(`^\d{12}$`)
	phonePattern   = regexp.MustCompile(`^\d{10}$`)
)

// Service is the session provider: it owns sign-up, sign-in, sign-out and
// token verification. Every consumer re-reads identity via Authenticate on
// each request; nothing is cached between requests.
type Service struct {
	store       Store
	now         func() time.Time
	tokenSecret []byte
	issuer      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// NewService constructs the session provider. The token secret is injected,
// never read from ambient state, so tests can supply their own.
func NewService(store Store, tokenSecret string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	tokenSecret = strings.TrimSpace(tokenSecret)
	if tokenSecret == "" {
		return nil, errors.New("auth: token secret is required")
	}
	svc := &Service{
		store:       store,
		now:         time.Now,
		tokenSecret: []byte(tokenSecret),
		issuer:      defaultIssuer,
		accessTTL:   defaultAccessTTL,
		refreshTTL:  defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SignUpParams carries everything the citizen sign-up form collects.
type SignUpParams struct {
	Email         string
	Password      string
	AadhaarNumber string
	FullName      string
	Phone         string
}

func (p SignUpParams) validate() error {
	verr := &ValidationError{}
	if !aadhaarPattern.MatchString(strings.TrimSpace(p.AadhaarNumber)) {
		verr.add("aadhaar_number", "aadhaar number must be 12 digits")
	}
	name := strings.TrimSpace(p.FullName)
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		verr.add("full_name", "full name must be between 2 and 100 characters")
	}
	email := strings.TrimSpace(strings.ToLower(p.Email))
	if email == "" || !strings.Contains(email, "@") {
		verr.add("email", "valid email is required")
	}
	if !phonePattern.MatchString(strings.TrimSpace(p.Phone)) {
		verr.add("phone", "phone number must be 10 digits")
	}
	if n := len(p.Password); n < 6 || n > 100 {
		verr.add("password", "password must be between 6 and 100 characters")
	}
	return verr.orNil()
}

// SignUp creates a citizen identity together with its profile. Duplicate
// email maps to ErrAlreadyExists; malformed input to ValidationError with
// one entry per offending field and no partial write.
func (s *Service) SignUp(ctx context.Context, p SignUpParams) (*User, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	hash, err := HashPassword(p.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:           ids.New(),
		Email:        strings.TrimSpace(strings.ToLower(p.Email)),
		PasswordHash: hash,
		Status:       userStatusActive,
	}
	seed := ProfileSeed{
		AadhaarNumber: strings.TrimSpace(p.AadhaarNumber),
		FullName:      strings.TrimSpace(p.FullName),
		Phone:         strings.TrimSpace(p.Phone),
	}
	if err := s.store.Users(ctx).Create(ctx, user, seed); err != nil {
		return nil, err
	}
	return user, nil
}

// SignIn authenticates credentials and issues a token pair. Every failure
// mode (unknown email, wrong password, disabled account, store error)
// resolves to ErrUnauthorized without distinction.
func (s *Service) SignIn(ctx context.Context, email, password string) (TokenPair, Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenPair{}, Identity{}, ErrUnauthorized
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, Identity{}, ErrUnauthorized
	}
	if user.Status != userStatusActive {
		return TokenPair{}, Identity{}, ErrUnauthorized
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, Identity{}, ErrUnauthorized
	}
	pair, err := s.mintTokens(ctx, user.ID)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	return pair, Identity{ID: user.ID, Email: user.Email}, nil
}

// AdminSignIn authenticates credentials and additionally requires the admin
// role before any token is issued. A valid citizen without the role gets
// ErrUnauthorized and no session, so there is no window in which a
// non-admin holds admin-portal tokens.
func (s *Service) AdminSignIn(ctx context.Context, resolver *Resolver, email, password string) (TokenPair, Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenPair{}, Identity{}, ErrUnauthorized
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, Identity{}, ErrUnauthorized
	}
	if user.Status != userStatusActive {
		return TokenPair{}, Identity{}, ErrUnauthorized
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, Identity{}, ErrUnauthorized
	}
	if resolver == nil || !resolver.HasRole(ctx, user.ID, RoleAdmin) {
		return TokenPair{}, Identity{}, ErrUnauthorized
	}
	pair, err := s.mintTokens(ctx, user.ID)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	return pair, Identity{ID: user.ID, Email: user.Email}, nil
}

// Refresh rotates the refresh token and issues a fresh pair. The old token
// is revoked whether or not the rotation succeeds past that point.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, Identity, error) {
	tokenID, secret, err := splitRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, Identity{}, ErrInvalidToken
	}
	store := s.store.RefreshTokens(ctx)
	record, err := store.Find(ctx, tokenID)
	if err != nil {
		return TokenPair{}, Identity{}, ErrInvalidToken
	}
	if record.Revoked || s.now().After(record.ExpiresAt) {
		return TokenPair{}, Identity{}, ErrInvalidToken
	}
	if !secureCompareHash(record.TokenHash, secret) {
		_ = store.MarkRevoked(ctx, record.ID)
		return TokenPair{}, Identity{}, ErrInvalidToken
	}
	user, err := s.store.Users(ctx).Find(ctx, record.UserID)
	if err != nil {
		return TokenPair{}, Identity{}, ErrInvalidToken
	}
	if user.Status != userStatusActive {
		return TokenPair{}, Identity{}, ErrUnauthorized
	}
	if err := store.MarkRevoked(ctx, record.ID); err != nil {
		return TokenPair{}, Identity{}, err
	}
	pair, err := s.mintTokens(ctx, user.ID)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	return pair, Identity{ID: user.ID, Email: user.Email}, nil
}

// SignOut revokes the refresh token. Unknown or already-revoked tokens are
// treated as success: signing out twice is not an error.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	tokenID, _, err := splitRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	store := s.store.RefreshTokens(ctx)
	record, err := store.Find(ctx, tokenID)
	if err != nil {
		return nil
	}
	return store.MarkRevoked(ctx, record.ID)
}

// Authenticate verifies an access token and re-reads the user record so a
// disabled account is locked out immediately, not at token expiry.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (Identity, error) {
	claims, err := s.verifyAccessToken(accessToken)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	user, err := s.store.Users(ctx).Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, ErrInvalidToken
		}
		return Identity{}, err
	}
	if user.Status != userStatusActive {
		return Identity{}, ErrUnauthorized
	}
	return Identity{ID: user.ID, Email: user.Email}, nil
}

func (s *Service) mintTokens(ctx context.Context, userID string) (TokenPair, error) {
	now := s.now().UTC()
	accessToken, accessExp, err := s.signAccessToken(userID, now)
	if err != nil {
		return TokenPair{}, err
	}
	refreshString, record, err := s.generateRefreshToken(userID, now)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.RefreshTokens(ctx).Create(ctx, record); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshString,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

func (s *Service) generateRefreshToken(userID string, now time.Time) (string, *RefreshToken, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)
	tokenID := ids.New()
	sum := sha256.Sum256([]byte(secret))
	rec := &RefreshToken{
		ID:        tokenID,
		UserID:    userID,
		TokenHash: hex.EncodeToString(sum[:]),
		ExpiresAt: now.Add(s.refreshTTL),
	}
	return tokenID + "." + secret, rec, nil
}

func splitRefreshToken(raw string) (id, secret string, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid refresh token format")
	}
	return parts[0], parts[1], nil
}

func secureCompareHash(expectedHash, secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	actual := hex.EncodeToString(sum[:])
	if len(expectedHash) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}
