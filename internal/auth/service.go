package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cerbero.org/internal/ids"
)

// Service orchestrates the authentication flows: credential verification with
// token issuance, and user registration.
type Service struct {
	tenants TenantStore
	users   UserStore
	issuer  *TokenIssuer
	now     func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithServiceClock overrides the time source (useful for tests).
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the auth service from its injected collaborators.
func NewService(tenants TenantStore, users UserStore, issuer *TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if tenants == nil || users == nil {
		return nil, errors.New("tenant and user stores are required")
	}
	if issuer == nil {
		return nil, errors.New("token issuer is required")
	}
	s := &Service{
		tenants: tenants,
		users:   users,
		issuer:  issuer,
		now:     time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// VerifyToken validates a bearer token and returns its claims.
func (s *Service) VerifyToken(token string) (*Claims, error) {
	return s.issuer.Verify(token)
}

// AuthResult is the outcome of a successful authentication. ExpiresAt equals
// the exp claim embedded in the token.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
	Tenant    Tenant
}

// Authenticate verifies tenant-scoped credentials and issues a bearer token.
// A missing tenant, an unknown email and a wrong password all fail with the
// same ErrUnauthorized value so the response cannot be used to enumerate
// tenants or users.
func (s *Service) Authenticate(ctx context.Context, tenantID, email, password string) (AuthResult, error) {
	tenantID = strings.TrimSpace(tenantID)
	email = strings.TrimSpace(strings.ToLower(email))
	if tenantID == "" || email == "" || password == "" {
		return AuthResult{}, ErrUnauthorized
	}

	tenant, err := s.tenants.Find(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, err
	}

	user, err := s.users.FindByEmail(ctx, tenant.ID, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, err
	}

	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return AuthResult{}, ErrUnauthorized
		}
		// Undecodable hashes are a data problem, not bad credentials.
		return AuthResult{}, err
	}

	token, expiresAt, err := s.issuer.Issue(user, tenant)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
		Tenant:    tenant,
	}, nil
}

// Register creates a new user under the tenant with the default role set.
// The duplicate check ahead of the insert is a fast path only: the store's
// uniqueness constraint on (tenant_id, email) decides concurrent races.
func (s *Service) Register(ctx context.Context, tenantID, name, email, password string) (User, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return User{}, fmt.Errorf("%w: tenant_id is required", ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if password == "" {
		return User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	if _, err := s.users.FindByEmail(ctx, tenantID, email); err == nil {
		return User{}, fmt.Errorf("%w: already registered", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}

	now := s.now().UTC()
	user := User{
		ID:           ids.New(),
		TenantID:     tenantID,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Roles:        append([]string(nil), DefaultRoles...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, ErrConflict) {
			return User{}, fmt.Errorf("%w: already registered", ErrConflict)
		}
		return User{}, err
	}
	return user, nil
}
