package app

import (
	"context"
	"fmt"

	"github.com/michaelrobgrove/mb-digital-ministry/internal/config"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/db"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/kv"
	log "github.com/sirupsen/logrus"
)

// openBackend opens the configured content store. The SQL backend also starts
// the expired-row sweeper, which stops with ctx.
func openBackend(ctx context.Context, cfg config.StoreConfig) (kv.Backend, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("app: using the in-memory content store, data is lost on restart")
		return kv.NewMemoryBackend(), nil
	case "redis":
		backend, err := kv.NewRedisBackend(kv.RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("app: open redis store: %w", err)
		}
		return backend, nil
	case "sql":
		conn, err := db.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if errMigrate := db.Migrate(conn); errMigrate != nil {
			return nil, errMigrate
		}
		backend := kv.NewSQLBackend(conn)
		kv.NewSweeper(backend, cfg.SweepInterval).Start(ctx)
		return backend, nil
	default:
		return nil, fmt.Errorf("app: unsupported store driver %q", cfg.Driver)
	}
}
