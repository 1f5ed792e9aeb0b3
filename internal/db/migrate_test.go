package db

import (
	"testing"
)

func TestMigrateSQLiteCreatesCollections(t *testing.T) {
	conn, errOpen := Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, table := range []string{"credentials", "admin_users", "users", "posts", "community_groups", "reports", "notifications", "feature_flags", "settings"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
}

func TestMigrateSQLiteAdminPermissionColumns(t *testing.T) {
	conn, errOpen := Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, column := range []string{"can_manage_users", "can_moderate_content", "can_manage_events", "can_manage_admins", "can_access_system_settings", "two_factor_secret", "last_login"} {
		if !conn.Migrator().HasColumn("admin_users", column) {
			t.Fatalf("admin_users missing column %s", column)
		}
	}
}

func TestMigrateSQLiteBackfillsLegacyUsersTable(t *testing.T) {
	conn, errOpen := Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errExec := conn.Exec(`
		CREATE TABLE users (
			id varchar(64) primary key,
			name text not null,
			email text not null,
			university text not null,
			status varchar(16) not null,
			created_at datetime,
			updated_at datetime
		)
	`).Error; errExec != nil {
		t.Fatalf("create legacy users table: %v", errExec)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, column := range []string{"verified", "report_count", "last_active_at", "suspended_until"} {
		if !conn.Migrator().HasColumn("users", column) {
			t.Fatalf("users missing column %s after backfill migration", column)
		}
	}
}

func TestDetectDialectFromDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost/unidate":       DialectPostgres,
		"host=localhost user=u dbname=unidate":   DialectPostgres,
		"data/unidate.db":                        DialectSQLite,
		"file:data/unidate.db?_busy_timeout=500": DialectSQLite,
		":memory:":                               DialectSQLite,
	}
	for dsn, want := range cases {
		got, errDetect := detectDialectFromDSN(dsn)
		if errDetect != nil {
			t.Fatalf("detect %q: %v", dsn, errDetect)
		}
		if got != want {
			t.Fatalf("detect %q = %s, want %s", dsn, got, want)
		}
	}
	if _, errDetect := detectDialectFromDSN("mysql://localhost/db"); errDetect == nil {
		t.Fatalf("expected mysql dsn rejected")
	}
}
