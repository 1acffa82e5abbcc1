package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cerbero.org/internal/ids"
)

// TenantService provides administrative CRUD over tenants.
type TenantService struct {
	store TenantStore
	now   func() time.Time
}

// NewTenantService constructs a TenantService.
func NewTenantService(store TenantStore) (*TenantService, error) {
	if store == nil {
		return nil, errors.New("tenant store is required")
	}
	return &TenantService{store: store, now: time.Now}, nil
}

// List returns all tenants.
func (s *TenantService) List(ctx context.Context) ([]Tenant, error) {
	return s.store.List(ctx)
}

// Get returns a tenant by id.
func (s *TenantService) Get(ctx context.Context, id string) (Tenant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Tenant{}, fmt.Errorf("%w: tenant_id is required", ErrInvalidInput)
	}
	return s.store.Find(ctx, id)
}

// Create assigns a fresh identifier and creation timestamp server-side;
// caller-supplied identifiers are ignored.
func (s *TenantService) Create(ctx context.Context, in NewTenant) (Tenant, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Tenant{}, fmt.Errorf("%w: tenant name is required", ErrInvalidInput)
	}
	tenant := Tenant{
		ID:          ids.New(),
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Domain:      strings.TrimSpace(in.Domain),
		CreatedAt:   s.now().UTC(),
		CreatedBy:   strings.TrimSpace(in.CreatedBy),
	}
	if err := s.store.Create(ctx, &tenant); err != nil {
		return Tenant{}, err
	}
	return tenant, nil
}

// Update mutates an existing tenant in place; the target must already exist.
func (s *TenantService) Update(ctx context.Context, id string, upd TenantUpdate) (Tenant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Tenant{}, fmt.Errorf("%w: tenant_id is required", ErrInvalidInput)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Tenant{}, fmt.Errorf("%w: tenant name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Description != nil {
		desc := strings.TrimSpace(*upd.Description)
		upd.Description = &desc
	}
	if upd.Domain != nil {
		domain := strings.TrimSpace(*upd.Domain)
		upd.Domain = &domain
	}
	return s.store.Update(ctx, id, upd)
}

// Delete removes a tenant. Deletion is blocked with ErrConflict while users
// still belong to the tenant.
func (s *TenantService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: tenant_id is required", ErrInvalidInput)
	}
	return s.store.Delete(ctx, id)
}
