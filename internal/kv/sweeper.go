package kv

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultSweepInterval  = 6 * time.Hour
	defaultSweepBatchSize = 5000
	maxSweepBatchesPerRun = 200
)

// Sweeper periodically deletes expired rows from the kv_entries table. The
// memory and redis backends expire keys themselves and need no sweeper.
type Sweeper struct {
	db        *gorm.DB
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewSweeper constructs a sweeper for the SQL backend.
func NewSweeper(backend *SQLBackend, interval time.Duration) *Sweeper {
	if backend == nil || backend.db == nil {
		return nil
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		db:        backend.db,
		interval:  interval,
		batchSize: defaultSweepBatchSize,
		now:       backend.now,
	}
}

// Start launches the sweep loop in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	log.Infof("kv sweeper started (interval=%s)", s.interval)
}

func (s *Sweeper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.SweepOnce(ctx)
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// SweepOnce deletes expired rows in batches and returns how many were removed.
func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	if s == nil || s.db == nil {
		return 0
	}
	cutoff := s.now()
	deletedTotal := int64(0)
	for i := 0; i < maxSweepBatchesPerRun; i++ {
		if ctx.Err() != nil {
			break
		}
		n, err := s.deleteBatch(ctx, cutoff)
		if err != nil {
			log.WithError(err).Warn("kv sweeper: delete batch failed")
			break
		}
		if n <= 0 {
			break
		}
		deletedTotal += n
	}
	if deletedTotal > 0 {
		log.Infof("kv sweeper: deleted %d expired entries (cutoff=%s)", deletedTotal, cutoff.Format(time.RFC3339))
	}
	return deletedTotal
}

func (s *Sweeper) deleteBatch(ctx context.Context, cutoff time.Time) (int64, error) {
	// A limited subquery keeps each delete short; the composite key is
	// matched as a pair so both dialects accept it.
	res := s.db.WithContext(ctx).Exec(`
		DELETE FROM kv_entries
		WHERE (namespace, entry_key) IN (
			SELECT namespace, entry_key FROM kv_entries
			WHERE expires_at IS NOT NULL AND expires_at <= ?
			ORDER BY expires_at ASC
			LIMIT ?
		)
	`, cutoff, s.batchSize)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
