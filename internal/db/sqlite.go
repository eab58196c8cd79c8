package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const sqliteBusyTimeoutMS = 5000

// sqliteDSN is a sqlite location split into the file path and its query.
type sqliteDSN struct {
	path  string
	query string
}

// parseSQLiteDSN accepts bare paths, file: DSNs and sqlite:// URLs.
func parseSQLiteDSN(raw string) sqliteDSN {
	rest := strings.TrimSpace(raw)
	lower := strings.ToLower(rest)
	switch {
	case strings.HasPrefix(lower, "sqlite3://"), strings.HasPrefix(lower, "sqlite://"):
		_, rest, _ = strings.Cut(rest, "://")
	case strings.HasPrefix(lower, "file:"):
		rest = rest[len("file:"):]
	}
	path, query, _ := strings.Cut(rest, "?")
	return sqliteDSN{path: strings.TrimPrefix(path, "//"), query: query}
}

func (d sqliteDSN) inMemory() bool {
	return d.path == "" || d.path == ":memory:" || strings.Contains(d.query, "mode=memory")
}

// String renders the DSN for the driver, adding a busy timeout when absent.
func (d sqliteDSN) String() string {
	query := d.query
	if !strings.Contains(strings.ToLower(query), "_busy_timeout") {
		if query != "" {
			query += "&"
		}
		query += fmt.Sprintf("_busy_timeout=%d", sqliteBusyTimeoutMS)
	}
	return "file:" + d.path + "?" + query
}

func openSQLite(raw string) (*gorm.DB, error) {
	dsn := parseSQLiteDSN(raw)
	if !dsn.inMemory() {
		if dir := filepath.Dir(dsn.path); dir != "." && dir != "" {
			if errMkdir := os.MkdirAll(dir, 0o755); errMkdir != nil {
				return nil, fmt.Errorf("db: create sqlite dir: %w", errMkdir)
			}
		}
	}
	conn, err := gorm.Open(sqlite.Open(dsn.String()), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite: %w", err)
	}
	return conn, nil
}

// applySQLitePragmas switches to WAL so readers do not block the sweeper.
func applySQLitePragmas(sqlDB *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", sqliteBusyTimeoutMS),
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return fmt.Errorf("db: sqlite pragma %s: %w", pragma, err)
		}
	}
	return nil
}
