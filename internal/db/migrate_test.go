package db

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestMigrateSQLiteKVEntries(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	for _, column := range []string{"namespace", "entry_key", "value", "expires_at"} {
		if !conn.Migrator().HasColumn("kv_entries", column) {
			t.Fatalf("kv_entries missing column %s", column)
		}
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("second migrate: %v", errMigrate)
	}
}

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ministry.db")
	conn, errOpen := Open("sqlite://" + path)
	if errOpen != nil {
		t.Fatalf("open: %v", errOpen)
	}
	if !IsSQLite(conn) {
		t.Fatalf("expected sqlite dialect, got %s", DialectName(conn))
	}
	sqlDB, _ := conn.DB()
	_ = sqlDB.Close()
}

func TestDetectDialectFromDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost/ministry":      DialectPostgres,
		"host=localhost dbname=ministry":         DialectPostgres,
		"file:ministry.db":                       DialectSQLite,
		"sqlite:///var/lib/ministry/ministry.db": DialectSQLite,
		"ministry.db":                            DialectSQLite,
	}
	for dsn, want := range cases {
		got, errDetect := detectDialectFromDSN(dsn)
		if errDetect != nil || got != want {
			t.Fatalf("detect(%q) = %q, %v; want %q", dsn, got, errDetect, want)
		}
	}
	if _, errDetect := detectDialectFromDSN("mysql://root@localhost/db"); errDetect == nil {
		t.Fatalf("expected unsupported dsn error")
	}
}

func TestPrefixMatchExprEscapesPatterns(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	expr, arg := PrefixMatchExpr(conn, "entry_key", "a*b?")
	if expr != "entry_key GLOB ?" || arg != "a[*]b[?]*" {
		t.Fatalf("unexpected sqlite prefix expr %q %q", expr, arg)
	}
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("unexpected like escape %q", got)
	}
}

func TestParseSQLiteDSN(t *testing.T) {
	cases := map[string]string{
		"ministry.db":                      "file:ministry.db?_busy_timeout=5000",
		"sqlite:///var/lib/ministry.db":    "file:/var/lib/ministry.db?_busy_timeout=5000",
		"file:kv?mode=memory&cache=shared": "file:kv?mode=memory&cache=shared&_busy_timeout=5000",
		"file:x.db?_busy_timeout=100":      "file:x.db?_busy_timeout=100",
	}
	for raw, want := range cases {
		if got := parseSQLiteDSN(raw).String(); got != want {
			t.Fatalf("parseSQLiteDSN(%q) = %q, want %q", raw, got, want)
		}
	}
	if !parseSQLiteDSN("file:kv?mode=memory").inMemory() {
		t.Fatalf("expected memory dsn")
	}
}
