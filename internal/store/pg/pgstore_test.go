package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"cerbero.org/internal/auth"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Store{db: db}, mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func tenantRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "description", "domain", "created_at", "updated_at", "created_by", "updated_by",
	})
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "email", "password_hash", "picture", "external_id",
		"email_verified", "sign_in_provider", "roles", "created_at", "updated_at",
	})
}

func TestTenantCreateMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("insert into tenants").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.Tenants().Create(context.Background(), &auth.Tenant{
		ID: "t1", Name: "Acme", CreatedAt: time.Now().UTC(),
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestTenantFindNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select id, name, description, domain.*from tenants").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Tenants().Find(context.Background(), "ghost")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestTenantFindScansNullableColumns(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery("select id, name, description, domain.*from tenants").
		WithArgs("t1").
		WillReturnRows(tenantRows().AddRow("t1", "Acme", nil, nil, created, nil, nil, nil))

	tenant, err := store.Tenants().Find(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if tenant.Name != "Acme" || tenant.Description != "" || tenant.UpdatedAt != nil {
		t.Fatalf("unexpected tenant: %+v", tenant)
	}
	if !tenant.CreatedAt.Equal(created) {
		t.Fatalf("created_at mismatch: %v", tenant.CreatedAt)
	}
	expectationsMet(t, mock)
}

func TestTenantDeleteBlockedByForeignKey(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("delete from tenants").
		WithArgs("t1").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})

	if err := store.Tenants().Delete(context.Background(), "t1"); !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict for non-empty tenant, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestTenantDeleteMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("delete from tenants").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Tenants().Delete(context.Background(), "ghost"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestTenantUpdateBuildsPartialSet(t *testing.T) {
	store, mock := newMockStore(t)
	name := "Globex"
	mock.ExpectExec(`update tenants set name = \$1, updated_by = \$2, updated_at = now\(\)`).
		WithArgs(name, sqlmock.AnyArg(), "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	created := time.Now().UTC()
	updated := created.Add(time.Minute)
	mock.ExpectQuery("select id, name, description, domain.*from tenants").
		WithArgs("t1").
		WillReturnRows(tenantRows().AddRow("t1", name, nil, nil, created, updated, nil, "admin-1"))

	tenant, err := store.Tenants().Update(context.Background(), "t1", auth.TenantUpdate{Name: &name, UpdatedBy: "admin-1"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if tenant.Name != name || tenant.UpdatedAt == nil || tenant.UpdatedBy != "admin-1" {
		t.Fatalf("unexpected tenant after update: %+v", tenant)
	}
	expectationsMet(t, mock)
}

func TestUserCreateMapsConstraintViolations(t *testing.T) {
	store, mock := newMockStore(t)
	user := auth.User{
		ID: "u1", TenantID: "t1", Name: "Ada", Email: "ada@example.com",
		PasswordHash: "$argon2id$...", Roles: auth.DefaultRoles,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	mock.ExpectExec("insert into users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	if err := store.Users().Create(context.Background(), &user); !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate email, got %v", err)
	}

	mock.ExpectExec("insert into users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})
	if err := store.Users().Create(context.Background(), &user); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on missing tenant, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestUserFindByEmailScansRoles(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Now().UTC()
	mock.ExpectQuery(`select .*from users.*where tenant_id = \$1 and email = lower\(\$2\)`).
		WithArgs("t1", "ada@example.com").
		WillReturnRows(userRows().AddRow(
			"u1", "t1", "Ada", "ada@example.com", "$argon2id$...", nil, nil,
			false, nil, []byte(`["Viewer","Requester"]`), created, created))

	user, err := store.Users().FindByEmail(context.Background(), "t1", "ada@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if len(user.Roles) != 2 || user.Roles[0] != "Viewer" {
		t.Fatalf("roles not decoded: %v", user.Roles)
	}
	if user.PasswordHash == "" {
		t.Fatal("expected password hash to be loaded for verification")
	}
	expectationsMet(t, mock)
}

func TestUserFindByEmailNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`select .*from users`).
		WithArgs("t1", "nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Users().FindByEmail(context.Background(), "t1", "nobody@example.com")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestUserUpdateMissingRow(t *testing.T) {
	store, mock := newMockStore(t)
	name := "Renamed"
	mock.ExpectExec(`update users set name = \$1, updated_at = now\(\)`).
		WithArgs(name, "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.Users().Update(context.Background(), "ghost", auth.UserUpdate{Name: &name})
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestUserListByTenant(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Now().UTC()
	mock.ExpectQuery(`select .*from users.*where tenant_id = \$1`).
		WithArgs("t1").
		WillReturnRows(userRows().
			AddRow("u1", "t1", "Ada", "ada@example.com", "h", nil, nil, false, nil, []byte(`["Viewer"]`), created, created).
			AddRow("u2", "t1", "Bob", "bob@example.com", "h", nil, nil, true, "google.com", []byte(`["Admin"]`), created, created))

	users, err := store.Users().ListByTenant(context.Background(), "t1")
	if err != nil {
		t.Fatalf("ListByTenant: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[1].SignInProvider != "google.com" || !users[1].EmailVerified {
		t.Fatalf("nullable columns not decoded: %+v", users[1])
	}
	expectationsMet(t, mock)
}
