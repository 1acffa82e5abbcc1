package auth

import "context"

// TenantStore manages tenant persistence.
type TenantStore interface {
	Create(ctx context.Context, tenant *Tenant) error
	Find(ctx context.Context, id string) (Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	Update(ctx context.Context, id string, upd TenantUpdate) (Tenant, error)
	// Delete fails with ErrConflict while the tenant still owns users.
	Delete(ctx context.Context, id string) error
}

// UserStore manages user persistence. Email lookups are always tenant-scoped:
// there is deliberately no tenant-less variant, and the (tenant_id, email)
// uniqueness constraint in the backing store is the final authority against
// concurrent duplicate registrations.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	Find(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, tenantID, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (User, error)
	Delete(ctx context.Context, id string) error
}
