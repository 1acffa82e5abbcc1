package auth

import "time"

// DefaultRoles are granted to every user created through signup.
var DefaultRoles = []string{"Viewer", "Requester"}

// Tenant is an isolated organizational scope. Users and their emails are
// unique only within a tenant, never globally.
type Tenant struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Domain      string     `json:"domain,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	UpdatedBy   string     `json:"updated_by,omitempty"`
}

// User is an account scoped to exactly one tenant.
type User struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Picture        string    `json:"picture,omitempty"`
	ExternalID     string    `json:"external_id,omitempty"`
	EmailVerified  bool      `json:"email_verified"`
	SignInProvider string    `json:"sign_in_provider,omitempty"`
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewTenant carries caller-supplied fields for tenant creation. Identifier and
// creation timestamp are always assigned server-side.
type NewTenant struct {
	Name        string
	Description string
	Domain      string
	CreatedBy   string
}

// TenantUpdate describes a partial tenant mutation. Nil fields are untouched.
type TenantUpdate struct {
	Name        *string
	Description *string
	Domain      *string
	UpdatedBy   string
}

// NewUser carries caller-supplied fields for user creation.
type NewUser struct {
	TenantID       string
	Name           string
	Email          string
	Password       string
	Picture        string
	ExternalID     string
	SignInProvider string
	EmailVerified  bool
	Roles          []string
}

// UserUpdate describes a partial user mutation. Nil fields are untouched.
// Password carries the already-hashed value by the time it reaches a store.
type UserUpdate struct {
	Name           *string
	Email          *string
	Password       *string
	Picture        *string
	ExternalID     *string
	SignInProvider *string
	EmailVerified  *bool
	Roles          []string
}
