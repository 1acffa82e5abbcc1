package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory backing store for tenants and users. It serves
// the HTTP tests and DSN-less development runs; production uses PostgreSQL.
// Tenants() and Users() expose the store through the persistence contracts.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]Tenant
	users   map[string]User
	// byEmail indexes users by tenant_id + "\x00" + email and enforces the
	// same uniqueness the database constraint provides.
	byEmail map[string]string
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[string]Tenant),
		users:   make(map[string]User),
		byEmail: make(map[string]string),
	}
}

// Tenants returns the TenantStore view.
func (m *MemoryStore) Tenants() TenantStore { return (*memTenants)(m) }

// Users returns the UserStore view.
func (m *MemoryStore) Users() UserStore { return (*memUsers)(m) }

func emailKey(tenantID, email string) string {
	return tenantID + "\x00" + strings.ToLower(email)
}

type memTenants MemoryStore

var _ TenantStore = (*memTenants)(nil)

func (m *memTenants) Create(ctx context.Context, tenant *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[tenant.ID]; ok {
		return ErrConflict
	}
	m.tenants[tenant.ID] = *tenant
	return nil
}

func (m *memTenants) Find(ctx context.Context, id string) (Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tenant, ok := m.tenants[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return tenant, nil
}

func (m *memTenants) List(ctx context.Context) ([]Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Tenant, 0, len(m.tenants))
	for _, tenant := range m.tenants {
		out = append(out, tenant)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memTenants) Update(ctx context.Context, id string, upd TenantUpdate) (Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tenant, ok := m.tenants[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	if upd.Name != nil {
		tenant.Name = *upd.Name
	}
	if upd.Description != nil {
		tenant.Description = *upd.Description
	}
	if upd.Domain != nil {
		tenant.Domain = *upd.Domain
	}
	now := time.Now().UTC()
	tenant.UpdatedAt = &now
	tenant.UpdatedBy = upd.UpdatedBy
	m.tenants[id] = tenant
	return tenant, nil
}

func (m *memTenants) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[id]; !ok {
		return ErrNotFound
	}
	for _, user := range m.users {
		if user.TenantID == id {
			return ErrConflict
		}
	}
	delete(m.tenants, id)
	return nil
}

type memUsers MemoryStore

var _ UserStore = (*memUsers)(nil)

func (m *memUsers) Create(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[user.TenantID]; !ok {
		return ErrNotFound
	}
	key := emailKey(user.TenantID, user.Email)
	if _, ok := m.byEmail[key]; ok {
		return ErrConflict
	}
	m.users[user.ID] = *user
	m.byEmail[key] = user.ID
	return nil
}

func (m *memUsers) Find(ctx context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, tenantID, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[emailKey(tenantID, email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *memUsers) List(ctx context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) ListByTenant(ctx context.Context, tenantID string) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []User
	for _, user := range m.users {
		if user.TenantID == tenantID {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) Update(ctx context.Context, id string, upd UserUpdate) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if upd.Email != nil && !strings.EqualFold(*upd.Email, user.Email) {
		key := emailKey(user.TenantID, *upd.Email)
		if _, taken := m.byEmail[key]; taken {
			return User{}, ErrConflict
		}
		delete(m.byEmail, emailKey(user.TenantID, user.Email))
		m.byEmail[key] = user.ID
		user.Email = *upd.Email
	}
	if upd.Name != nil {
		user.Name = *upd.Name
	}
	if upd.Password != nil {
		user.PasswordHash = *upd.Password
	}
	if upd.Picture != nil {
		user.Picture = *upd.Picture
	}
	if upd.ExternalID != nil {
		user.ExternalID = *upd.ExternalID
	}
	if upd.SignInProvider != nil {
		user.SignInProvider = *upd.SignInProvider
	}
	if upd.EmailVerified != nil {
		user.EmailVerified = *upd.EmailVerified
	}
	if upd.Roles != nil {
		user.Roles = append([]string(nil), upd.Roles...)
	}
	user.UpdatedAt = time.Now().UTC()
	m.users[id] = user
	return user, nil
}

func (m *memUsers) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byEmail, emailKey(user.TenantID, user.Email))
	delete(m.users, id)
	return nil
}
