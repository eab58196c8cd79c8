// Package db opens the SQL connection behind the content store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const pingTimeout = 5 * time.Second

// pool sizes the connection pool per dialect. SQLite serializes writers, so
// it gets a small pool.
type pool struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

var pools = map[string]pool{
	DialectPostgres: {maxOpen: 10, maxIdle: 5, maxLifetime: 30 * time.Minute},
	DialectSQLite:   {maxOpen: 4, maxIdle: 4, maxLifetime: 30 * time.Minute},
}

func (p pool) apply(sqlDB *sql.DB) {
	sqlDB.SetMaxOpenConns(p.maxOpen)
	sqlDB.SetMaxIdleConns(p.maxIdle)
	sqlDB.SetConnMaxLifetime(p.maxLifetime)
}

// gormConfig logs slow statements through logrus and stamps rows in UTC so
// expiry comparisons agree across dialects.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Open connects to postgres or sqlite depending on the DSN.
func Open(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}
	dialect, err := detectDialectFromDSN(trimmed)
	if err != nil {
		return nil, err
	}

	var conn *gorm.DB
	switch dialect {
	case DialectPostgres:
		conn, err = openPostgres(trimmed)
	default:
		conn, err = openSQLite(trimmed)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("db: pool: %w", err)
	}
	pools[dialect].apply(sqlDB)
	if dialect == DialectSQLite {
		if errPragma := applySQLitePragmas(sqlDB); errPragma != nil {
			_ = sqlDB.Close()
			return nil, errPragma
		}
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if errPing := sqlDB.PingContext(pingCtx); errPing != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: ping %s: %w", dialect, errPing)
	}
	log.Infof("db: connected (%s)", dialect)
	return conn, nil
}

// Migrate creates or updates the kv_entries table.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(&models.KVEntry{}); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}

func detectDialectFromDSN(dsn string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres, nil
	}
	for _, keyword := range []string{"host=", "dbname=", "sslmode="} {
		if strings.Contains(lower, keyword) {
			return DialectPostgres, nil
		}
	}
	if !strings.Contains(lower, "://") || strings.HasPrefix(lower, "sqlite://") || strings.HasPrefix(lower, "sqlite3://") {
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("db: unsupported dsn scheme")
}

// openPostgres goes through the pgx stdlib driver with the session pinned to UTC.
func openPostgres(dsn string) (*gorm.DB, error) {
	cfg, errParse := pgx.ParseConfig(dsn)
	if errParse != nil {
		return nil, fmt.Errorf("db: parse dsn: %w", errParse)
	}
	cfg.RuntimeParams["timezone"] = "UTC"
	sqlDB := stdlib.OpenDB(*cfg)
	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: open postgres: %w", err)
	}
	return conn, nil
}
