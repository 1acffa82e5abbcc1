package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cerbero.org/internal/ids"
)

// UserService provides administrative CRUD over users.
type UserService struct {
	store UserStore
	now   func() time.Time
}

// NewUserService constructs a UserService.
func NewUserService(store UserStore) (*UserService, error) {
	if store == nil {
		return nil, errors.New("user store is required")
	}
	return &UserService{store: store, now: time.Now}, nil
}

// List returns all users across tenants.
func (s *UserService) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

// ListByTenant returns the users owned by a tenant.
func (s *UserService) ListByTenant(ctx context.Context, tenantID string) ([]User, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant_id is required", ErrInvalidInput)
	}
	return s.store.ListByTenant(ctx, tenantID)
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.store.Find(ctx, id)
}

// Create adds a user with a server-assigned identifier and timestamps.
// An empty role list falls back to the default role set.
func (s *UserService) Create(ctx context.Context, in NewUser) (User, error) {
	in.TenantID = strings.TrimSpace(in.TenantID)
	if in.TenantID == "" {
		return User{}, fmt.Errorf("%w: tenant_id is required", ErrInvalidInput)
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	roles := dedupeRoles(in.Roles)
	if len(roles) == 0 {
		roles = append([]string(nil), DefaultRoles...)
	}

	now := s.now().UTC()
	user := User{
		ID:             ids.New(),
		TenantID:       in.TenantID,
		Name:           in.Name,
		Email:          in.Email,
		PasswordHash:   hash,
		Picture:        strings.TrimSpace(in.Picture),
		ExternalID:     strings.TrimSpace(in.ExternalID),
		SignInProvider: strings.TrimSpace(in.SignInProvider),
		EmailVerified:  in.EmailVerified,
		Roles:          roles,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Update mutates an existing user; the target must already exist. A non-nil
// Password field carries plaintext and is hashed before it reaches the store.
func (s *UserService) Update(ctx context.Context, id string, upd UserUpdate) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email == "" || !strings.Contains(email, "@") {
			return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		upd.Email = &email
	}
	if upd.Password != nil {
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return User{}, err
		}
		upd.Password = &hash
	}
	if upd.Roles != nil {
		upd.Roles = dedupeRoles(upd.Roles)
	}
	return s.store.Update(ctx, id, upd)
}

// Delete removes a user permanently; no soft delete is modeled.
func (s *UserService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.store.Delete(ctx, id)
}
