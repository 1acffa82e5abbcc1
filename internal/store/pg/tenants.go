package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cerbero.org/internal/auth"
)

type tenantStore Store

var _ auth.TenantStore = (*tenantStore)(nil)

func (s *tenantStore) Create(ctx context.Context, tenant *auth.Tenant) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into tenants (id, name, description, domain, created_at, created_by)
		values ($1, $2, $3, $4, $5, $6)
	`, tenant.ID, tenant.Name, nullIfEmpty(tenant.Description), nullIfEmpty(tenant.Domain),
		tenant.CreatedAt, nullIfEmpty(tenant.CreatedBy))
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrConflict
		}
		return err
	}
	return nil
}

func (s *tenantStore) Find(ctx context.Context, id string) (auth.Tenant, error) {
	if s.db == nil {
		return auth.Tenant{}, errors.New("database connection unavailable")
	}
	return scanTenant(s.db.QueryRowContext(ctx, `
		select id, name, description, domain, created_at, updated_at, created_by, updated_by
		from tenants
		where id = $1
	`, id))
}

func (s *tenantStore) List(ctx context.Context) ([]auth.Tenant, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, name, description, domain, created_at, updated_at, created_by, updated_by
		from tenants
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *tenantStore) Update(ctx context.Context, id string, upd auth.TenantUpdate) (auth.Tenant, error) {
	if s.db == nil {
		return auth.Tenant{}, errors.New("database connection unavailable")
	}
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Description))
		idx++
	}
	if upd.Domain != nil {
		sets = append(sets, fmt.Sprintf("domain = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Domain))
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, fmt.Sprintf("updated_by = $%d", idx))
		args = append(args, nullIfEmpty(upd.UpdatedBy))
		idx++
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update tenants set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return auth.Tenant{}, auth.ErrConflict
			}
			return auth.Tenant{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return auth.Tenant{}, err
		}
		if aff == 0 {
			return auth.Tenant{}, auth.ErrNotFound
		}
	}
	return s.Find(ctx, id)
}

// Delete removes a tenant. The RESTRICT constraint on users.tenant_id turns a
// delete of a non-empty tenant into a foreign key violation, reported as
// ErrConflict.
func (s *tenantStore) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from tenants where id = $1`, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return auth.ErrConflict
		}
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (auth.Tenant, error) {
	var (
		tenant    auth.Tenant
		desc      sql.NullString
		domain    sql.NullString
		updatedAt sql.NullTime
		createdBy sql.NullString
		updatedBy sql.NullString
	)
	err := row.Scan(&tenant.ID, &tenant.Name, &desc, &domain, &tenant.CreatedAt, &updatedAt, &createdBy, &updatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Tenant{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Tenant{}, err
	}
	tenant.Description = desc.String
	tenant.Domain = domain.String
	if updatedAt.Valid {
		t := updatedAt.Time
		tenant.UpdatedAt = &t
	}
	tenant.CreatedBy = createdBy.String
	tenant.UpdatedBy = updatedBy.String
	return tenant, nil
}
