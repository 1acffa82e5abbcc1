package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func expectBookkeeping(mock sqlmock.Sqlmock) {
	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create table if not exists schema_seeds").WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	dir := t.TempDir()
	writeFile(t, dir, "0002_users.up.sql", "create table users (id text primary key);")
	writeFile(t, dir, "0001_tenants.up.sql", "create table tenants (id text primary key);")
	writeFile(t, dir, "0001_tenants.down.sql", "drop table tenants;")

	expectBookkeeping(mock)
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	mock.ExpectBegin()
	mock.ExpectExec("create table tenants").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_migrations").
		WithArgs("0001_tenants.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectBegin()
	mock.ExpectExec("create table users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_migrations").
		WithArgs("0002_users.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ran, err := NewRunner(db, dir, "").Up(context.Background())
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	if len(ran) != 2 || ran[0] != "0001_tenants.up.sql" || ran[1] != "0002_users.up.sql" {
		t.Fatalf("unexpected application order: %v", ran)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpSkipsAlreadyApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	dir := t.TempDir()
	writeFile(t, dir, "0001_tenants.up.sql", "create table tenants (id text primary key);")

	expectBookkeeping(mock)
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_tenants.up.sql"))

	ran, err := NewRunner(db, dir, "").Up(context.Background())
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	if len(ran) != 0 {
		t.Fatalf("expected nothing to run, got %v", ran)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDownRollsBackLastMigration(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	dir := t.TempDir()
	writeFile(t, dir, "0001_tenants.up.sql", "create table tenants (id text primary key);")
	writeFile(t, dir, "0001_tenants.down.sql", "drop table tenants;")

	expectBookkeeping(mock)
	mock.ExpectQuery("select name from schema_migrations order by applied_at").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_tenants.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("drop table tenants").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("delete from schema_migrations").
		WithArgs("0001_tenants.up.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))

	name, err := NewRunner(db, dir, "").Down(context.Background())
	if err != nil {
		t.Fatalf("Down: %v", err)
	}
	if name != "0001_tenants.up.sql" {
		t.Fatalf("unexpected rollback target: %s", name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDownRollsBackMigrationFromSubdirectory(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	dir := t.TempDir()
	sub := filepath.Join(dir, "billing")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, sub, "0001_invoices.up.sql", "create table invoices (id text primary key);")
	writeFile(t, sub, "0001_invoices.down.sql", "drop table invoices;")

	expectBookkeeping(mock)
	mock.ExpectQuery("select name from schema_migrations order by applied_at").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_invoices.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("drop table invoices").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("delete from schema_migrations").
		WithArgs("0001_invoices.up.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))

	name, err := NewRunner(db, dir, "").Down(context.Background())
	if err != nil {
		t.Fatalf("Down: %v", err)
	}
	if name != "0001_invoices.up.sql" {
		t.Fatalf("unexpected rollback target: %s", name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDownWithoutHistoryFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expectBookkeeping(mock)
	mock.ExpectQuery("select name from schema_migrations order by applied_at").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	if _, err := NewRunner(db, t.TempDir(), "").Down(context.Background()); err == nil {
		t.Fatal("expected error when nothing is applied")
	}
}

func TestSeedRunsOnceAndSplitsStatements(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	seeds := t.TempDir()
	writeFile(t, seeds, "0001_roles.sql",
		"insert into roles (name) values ('Admin');\ninsert into roles (name) values ('Viewer; read-only');")

	expectBookkeeping(mock)
	mock.ExpectQuery("select name from schema_seeds").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("insert into roles .+'Admin'").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into roles .+'Viewer; read-only'").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_seeds").
		WithArgs("0001_roles.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ran, err := NewRunner(db, "", seeds).Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(ran) != 1 {
		t.Fatalf("expected one seed to run, got %v", ran)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPendingListsUnapplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	dir := t.TempDir()
	writeFile(t, dir, "0001_tenants.up.sql", "create table tenants (id text primary key);")
	writeFile(t, dir, "0002_users.up.sql", "create table users (id text primary key);")

	expectBookkeeping(mock)
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_tenants.up.sql"))

	pending, err := NewRunner(db, dir, "").Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0] != "0002_users.up.sql" {
		t.Fatalf("unexpected pending set: %v", pending)
	}
}

func TestSplitStatementsRespectsQuotedSemicolons(t *testing.T) {
	stmts := splitStatements("select 'a;b'; select 2;")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %v", len(stmts), stmts)
	}
}
