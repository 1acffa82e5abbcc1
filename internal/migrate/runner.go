// Package migrate applies SQL migration and seed files kept on disk. The API
// server runs Up and Seed on boot; cmd/migrate exposes the same operations as
// a CLI for operators.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	defaultMigrationsTable = "schema_migrations"
	defaultSeedsTable      = "schema_seeds"

	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
	sqlSuffix  = ".sql"
)

// Runner executes migration and seed files against a database, recording what
// ran in bookkeeping tables so every operation stays idempotent.
type Runner struct {
	db              *sql.DB
	migrationsDir   string
	seedsDir        string
	migrationsTable string
	seedsTable      string
}

// Option configures Runner.
type Option func(*Runner)

// WithMigrationsTable overrides the migrations bookkeeping table.
func WithMigrationsTable(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.migrationsTable = name
		}
	}
}

// WithSeedsTable overrides the seeds bookkeeping table.
func WithSeedsTable(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.seedsTable = name
		}
	}
}

// NewRunner constructs a Runner over the given pool and directories.
func NewRunner(db *sql.DB, migrationsDir, seedsDir string, opts ...Option) *Runner {
	r := &Runner{
		db:              db,
		migrationsDir:   migrationsDir,
		seedsDir:        seedsDir,
		migrationsTable: defaultMigrationsTable,
		seedsTable:      defaultSeedsTable,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Up applies every pending migration in lexical order and returns the names
// it applied.
func (r *Runner) Up(ctx context.Context) ([]string, error) {
	if err := r.ensureTables(ctx); err != nil {
		return nil, err
	}
	done, err := r.applied(ctx, r.migrationsTable)
	if err != nil {
		return nil, err
	}
	files, err := collectSQL(r.migrationsDir, upSuffix)
	if err != nil {
		return nil, err
	}
	var ran []string
	for _, f := range files {
		if done[f.Base] {
			continue
		}
		if err := r.execFile(ctx, f.Path); err != nil {
			return ran, fmt.Errorf("apply migration %s: %w", f.Base, err)
		}
		if err := r.record(ctx, r.migrationsTable, f.Base); err != nil {
			return ran, err
		}
		ran = append(ran, f.Base)
	}
	return ran, nil
}

// Down rolls back the most recently applied migration using its .down.sql
// counterpart.
func (r *Runner) Down(ctx context.Context) (string, error) {
	if err := r.ensureTables(ctx); err != nil {
		return "", err
	}
	history, err := r.history(ctx, r.migrationsTable)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return "", errors.New("no migrations applied")
	}
	last := history[len(history)-1]
	// Migrations may live in subdirectories, so the recorded name is
	// resolved against the tree rather than joined onto the root.
	files, err := collectSQL(r.migrationsDir, upSuffix)
	if err != nil {
		return "", err
	}
	var upPath string
	for _, f := range files {
		if f.Base == last {
			upPath = f.Path
			break
		}
	}
	if upPath == "" {
		return "", fmt.Errorf("migration file %s not found on disk", last)
	}
	downPath := strings.TrimSuffix(upPath, upSuffix) + downSuffix
	if _, err := os.Stat(downPath); err != nil {
		return "", fmt.Errorf("missing down migration for %s", last)
	}
	if err := r.execFile(ctx, downPath); err != nil {
		return "", fmt.Errorf("rollback migration %s: %w", last, err)
	}
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(`delete from %s where name = $1`, r.migrationsTable), last); err != nil {
		return "", err
	}
	return last, nil
}

// Status returns applied migrations in application order.
func (r *Runner) Status(ctx context.Context) ([]string, error) {
	if err := r.ensureTables(ctx); err != nil {
		return nil, err
	}
	return r.history(ctx, r.migrationsTable)
}

// Pending returns migrations present on disk but not yet applied.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	if err := r.ensureTables(ctx); err != nil {
		return nil, err
	}
	done, err := r.applied(ctx, r.migrationsTable)
	if err != nil {
		return nil, err
	}
	files, err := collectSQL(r.migrationsDir, upSuffix)
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, f := range files {
		if !done[f.Base] {
			pending = append(pending, f.Base)
		}
	}
	return pending, nil
}

// Seed applies seed files that have not run yet and returns their names.
func (r *Runner) Seed(ctx context.Context) ([]string, error) {
	if err := r.ensureTables(ctx); err != nil {
		return nil, err
	}
	done, err := r.applied(ctx, r.seedsTable)
	if err != nil {
		return nil, err
	}
	files, err := collectSQL(r.seedsDir, sqlSuffix)
	if err != nil {
		return nil, err
	}
	var ran []string
	for _, f := range files {
		if done[f.Base] {
			continue
		}
		if err := r.execFile(ctx, f.Path); err != nil {
			return ran, fmt.Errorf("apply seed %s: %w", f.Base, err)
		}
		if err := r.record(ctx, r.seedsTable, f.Base); err != nil {
			return ran, err
		}
		ran = append(ran, f.Base)
	}
	return ran, nil
}

func (r *Runner) ensureTables(ctx context.Context) error {
	for _, table := range []string{r.migrationsTable, r.seedsTable} {
		ddl := fmt.Sprintf(`
			create table if not exists %s (
				name text primary key,
				applied_at timestamptz not null default now()
			);`, table)
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

// execFile runs every statement of one file inside a single transaction.
func (r *Runner) execFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(raw)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Runner) record(ctx context.Context, table, name string) error {
	_, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`insert into %s(name, applied_at) values ($1, $2)`, table),
		name, time.Now().UTC())
	return err
}

func (r *Runner) applied(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`select name from %s`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	done := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		done[name] = true
	}
	return done, rows.Err()
}

func (r *Runner) history(ctx context.Context, table string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`select name from %s order by applied_at asc`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type sqlFile struct {
	Base string
	Path string
}

func collectSQL(dir, suffix string) ([]sqlFile, error) {
	if dir == "" {
		return nil, nil
	}
	var files []sqlFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), suffix) {
			files = append(files, sqlFile{Base: d.Name(), Path: path})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Base < files[j].Base })
	return files, nil
}

// splitStatements splits on semicolons outside single-quoted strings. Files
// needing dollar-quoted bodies should hold a single statement.
func splitStatements(sql string) []string {
	var (
		stmts    []string
		current  strings.Builder
		inString bool
	)
	for _, r := range sql {
		switch r {
		case '\'':
			current.WriteRune(r)
			inString = !inString
		case ';':
			current.WriteRune(r)
			if !inString {
				stmts = append(stmts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		stmts = append(stmts, current.String())
	}
	return stmts
}
