package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cerbero.org/internal/auth"
)

type userStore Store

var _ auth.UserStore = (*userStore)(nil)

const userColumns = `id, tenant_id, name, email, password_hash, picture, external_id,
	email_verified, sign_in_provider, roles, created_at, updated_at`

func (s *userStore) Create(ctx context.Context, user *auth.User) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	roles, err := json.Marshal(user.Roles)
	if err != nil {
		return fmt.Errorf("marshal roles: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into users (id, tenant_id, name, email, password_hash, picture, external_id,
			email_verified, sign_in_provider, roles, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, user.ID, user.TenantID, user.Name, user.Email, user.PasswordHash,
		nullIfEmpty(user.Picture), nullIfEmpty(user.ExternalID), user.EmailVerified,
		nullIfEmpty(user.SignInProvider), roles, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return auth.ErrConflict
			case pgErrForeignKeyViolation:
				// Tenant the user points at does not exist.
				return auth.ErrNotFound
			}
		}
		return err
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id string) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errors.New("database connection unavailable")
	}
	return scanUser(s.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users
		where id = $1
	`, id))
}

func (s *userStore) FindByEmail(ctx context.Context, tenantID, email string) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errors.New("database connection unavailable")
	}
	return scanUser(s.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users
		where tenant_id = $1 and email = lower($2)
	`, tenantID, email))
}

func (s *userStore) List(ctx context.Context) ([]auth.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	return s.collect(ctx, `
		select `+userColumns+`
		from users
		order by tenant_id, email
	`)
}

func (s *userStore) ListByTenant(ctx context.Context, tenantID string) ([]auth.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	return s.collect(ctx, `
		select `+userColumns+`
		from users
		where tenant_id = $1
		order by email
	`, tenantID)
}

func (s *userStore) Update(ctx context.Context, id string, upd auth.UserUpdate) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errors.New("database connection unavailable")
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
	if upd.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", idx))
		args = append(args, *upd.Email)
		idx++
	}
	if upd.Password != nil {
		sets = append(sets, fmt.Sprintf("password_hash = $%d", idx))
		args = append(args, *upd.Password)
		idx++
	}
	if upd.Picture != nil {
		sets = append(sets, fmt.Sprintf("picture = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Picture))
		idx++
	}
	if upd.ExternalID != nil {
		sets = append(sets, fmt.Sprintf("external_id = $%d", idx))
		args = append(args, nullIfEmpty(*upd.ExternalID))
		idx++
	}
	if upd.SignInProvider != nil {
		sets = append(sets, fmt.Sprintf("sign_in_provider = $%d", idx))
		args = append(args, nullIfEmpty(*upd.SignInProvider))
		idx++
	}
	if upd.EmailVerified != nil {
		sets = append(sets, fmt.Sprintf("email_verified = $%d", idx))
		args = append(args, *upd.EmailVerified)
		idx++
	}
	if upd.Roles != nil {
		roles, err := json.Marshal(upd.Roles)
		if err != nil {
			return auth.User{}, fmt.Errorf("marshal roles: %w", err)
		}
		sets = append(sets, fmt.Sprintf("roles = $%d", idx))
		args = append(args, roles)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update users set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return auth.User{}, auth.ErrConflict
			}
			return auth.User{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return auth.User{}, err
		}
		if aff == 0 {
			return auth.User{}, auth.ErrNotFound
		}
	}
	return s.Find(ctx, id)
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
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

func (s *userStore) collect(ctx context.Context, query string, args ...any) ([]auth.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func scanUser(row rowScanner) (auth.User, error) {
	var (
		user     auth.User
		picture  sql.NullString
		extID    sql.NullString
		provider sql.NullString
		rawRoles []byte
	)
	err := row.Scan(&user.ID, &user.TenantID, &user.Name, &user.Email, &user.PasswordHash,
		&picture, &extID, &user.EmailVerified, &provider, &rawRoles,
		&user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	user.Picture = picture.String
	user.ExternalID = extID.String
	user.SignInProvider = provider.String
	user.Roles = []string{}
	if len(rawRoles) > 0 {
		if err := json.Unmarshal(rawRoles, &user.Roles); err != nil {
			return auth.User{}, fmt.Errorf("decode roles: %w", err)
		}
	}
	return user, nil
}
