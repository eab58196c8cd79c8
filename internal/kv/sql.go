package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/michaelrobgrove/mb-digital-ministry/internal/db"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLBackend stores namespaces as rows of the kv_entries table. Expired rows
// are hidden from reads and removed by the Sweeper.
type SQLBackend struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLBackend wraps a migrated gorm connection.
func NewSQLBackend(conn *gorm.DB) *SQLBackend {
	return &SQLBackend{db: conn, now: func() time.Time { return time.Now().UTC() }}
}

// Namespace returns the store for name.
func (b *SQLBackend) Namespace(name string) Store {
	return &sqlStore{backend: b, namespace: name}
}

// DB exposes the underlying connection.
func (b *SQLBackend) DB() *gorm.DB { return b.db }

// Close closes the underlying connection pool.
func (b *SQLBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type sqlStore struct {
	backend   *SQLBackend
	namespace string
}

func (s *sqlStore) live(ctx context.Context) *gorm.DB {
	return s.backend.db.WithContext(ctx).
		Model(&models.KVEntry{}).
		Where("namespace = ?", s.namespace).
		Where("expires_at IS NULL OR expires_at > ?", s.backend.now())
}

func (s *sqlStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry models.KVEntry
	err := s.live(ctx).Where("entry_key = ?", key).Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kv: sql get %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *sqlStore) Put(ctx context.Context, key string, value []byte, opts ...PutOption) error {
	options := resolvePutOptions(opts)
	now := s.backend.now()
	entry := models.KVEntry{
		Namespace: s.namespace,
		Key:       key,
		Value:     append([]byte(nil), value...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if options.TTL > 0 {
		expiresAt := now.Add(options.TTL)
		entry.ExpiresAt = &expiresAt
	}
	err := s.backend.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("kv: sql put %s: %w", key, err)
	}
	return nil
}

func (s *sqlStore) PutIfAbsent(ctx context.Context, key string, value []byte, opts ...PutOption) (bool, error) {
	options := resolvePutOptions(opts)
	now := s.backend.now()
	entry := models.KVEntry{
		Namespace: s.namespace,
		Key:       key,
		Value:     append([]byte(nil), value...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if options.TTL > 0 {
		expiresAt := now.Add(options.TTL)
		entry.ExpiresAt = &expiresAt
	}
	created := false
	err := s.backend.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		errExpired := tx.Where("namespace = ? AND entry_key = ?", s.namespace, key).
			Where("expires_at IS NOT NULL AND expires_at <= ?", now).
			Delete(&models.KVEntry{}).Error
		if errExpired != nil {
			return errExpired
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if result.Error != nil {
			return result.Error
		}
		created = result.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("kv: sql put if absent %s: %w", key, err)
	}
	return created, nil
}

func (s *sqlStore) List(ctx context.Context, prefix string) ([]string, error) {
	query := s.live(ctx)
	if prefix != "" {
		expr, arg := db.PrefixMatchExpr(s.backend.db, "entry_key", prefix)
		query = query.Where(expr, arg)
	}
	var keys []string
	if err := query.Order("entry_key ASC").Pluck("entry_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("kv: sql list %s: %w", prefix, err)
	}
	out := keys[:0]
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	err := s.backend.db.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", s.namespace, key).
		Delete(&models.KVEntry{}).Error
	if err != nil {
		return fmt.Errorf("kv: sql delete %s: %w", key, err)
	}
	return nil
}
