// Package sermon serves the weekly generated sermon, regenerating it in the
// background once the release window moves past the newest stored item.
package sermon

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/michaelrobgrove/mb-digital-ministry/internal/apperr"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/background"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/genai"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/kv"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/models"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/release"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	lockKeyPrefix         = "lock:"
	defaultTTL            = 5616000 * time.Second
	defaultLockTTL        = 5 * time.Minute
	defaultAudioCharLimit = 2500
	generationTemperature = 0.7
)

// Options tunes storage and synthesis.
type Options struct {
	TTL            time.Duration
	LockTTL        time.Duration
	AudioCharLimit int
}

// Cache orchestrates the release scheduler, the content store and the
// generation providers.
type Cache struct {
	store     kv.Store
	scheduler *release.Scheduler
	text      genai.TextGenerator
	audio     genai.AudioSynthesizer
	tasks     background.Scheduler
	opts      Options
	flight    singleflight.Group
	now       func() time.Time
	theme     func() string
}

// NewCache constructs a Cache. audio may be nil to skip synthesis.
func NewCache(store kv.Store, scheduler *release.Scheduler, text genai.TextGenerator, audio genai.AudioSynthesizer, tasks background.Scheduler, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.AudioCharLimit <= 0 {
		opts.AudioCharLimit = defaultAudioCharLimit
	}
	return &Cache{
		store:     store,
		scheduler: scheduler,
		text:      text,
		audio:     audio,
		tasks:     tasks,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
		theme:     randomTheme,
	}
}

// Current returns the newest sermon. An empty store is filled synchronously;
// a stale newest item is returned as is while a regeneration runs in the
// background.
func (c *Cache) Current(ctx context.Context, now time.Time) (models.Sermon, error) {
	items, err := c.ensure(ctx, now)
	if err != nil {
		return models.Sermon{}, err
	}
	return items[0], nil
}

// Archive returns every stored sermon, newest first, under the same policy
// as Current.
func (c *Cache) Archive(ctx context.Context, now time.Time) ([]models.Sermon, error) {
	return c.ensure(ctx, now)
}

// List returns every stored sermon, newest first, without generating.
func (c *Cache) List(ctx context.Context) ([]models.Sermon, error) {
	return c.load(ctx)
}

func (c *Cache) ensure(ctx context.Context, now time.Time) ([]models.Sermon, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	window := c.scheduler.CurrentWindow(now)
	bucket := c.scheduler.BucketKey(window)

	if len(items) == 0 {
		item, errGenerate := c.generateOnce(ctx, bucket, now)
		if errGenerate != nil {
			return nil, errGenerate
		}
		return []models.Sermon{item}, nil
	}

	if items[0].CreatedAt.Before(window) {
		log.WithFields(log.Fields{"newest": items[0].ID, "window": window.Format(time.RFC3339)}).
			Info("sermon cache: newest sermon is stale, scheduling regeneration")
		c.scheduleRegeneration(bucket, window)
	}
	return items, nil
}

// ForceGenerate generates a sermon under a new unique key, ignoring staleness.
func (c *Cache) ForceGenerate(ctx context.Context, now time.Time) (models.Sermon, error) {
	return c.generate(ctx, release.UniqueKey(now), now)
}

// ForceGenerateAsync schedules ForceGenerate and returns immediately.
func (c *Cache) ForceGenerateAsync(now time.Time) error {
	key := release.UniqueKey(now)
	return c.tasks.Go("sermon-force-generate "+key, func(ctx context.Context) error {
		_, err := c.generate(ctx, key, c.now())
		return err
	})
}

// Delete removes one sermon by id.
func (c *Cache) Delete(ctx context.Context, id string) error {
	if !strings.HasPrefix(id, release.KeyPrefix) {
		return apperr.NotFound("sermon not found")
	}
	if _, err := c.store.Get(ctx, id); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return apperr.NotFound("sermon not found")
		}
		return apperr.Upstream("load sermon", err)
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return apperr.Upstream("delete sermon", err)
	}
	return nil
}

// DeleteAll removes every sermon and returns how many were deleted.
func (c *Cache) DeleteAll(ctx context.Context) (int, error) {
	keys, err := c.store.List(ctx, release.KeyPrefix)
	if err != nil {
		return 0, apperr.Upstream("list sermons", err)
	}
	deleted := 0
	for _, key := range keys {
		if errDelete := c.store.Delete(ctx, key); errDelete != nil {
			return deleted, apperr.Upstream("delete sermon", errDelete)
		}
		deleted++
	}
	return deleted, nil
}

// load returns stored sermons sorted newest first.
func (c *Cache) load(ctx context.Context) ([]models.Sermon, error) {
	byKey, err := kv.LoadAll[models.Sermon](ctx, c.store, release.KeyPrefix)
	if err != nil {
		return nil, apperr.Upstream("list sermons", err)
	}
	items := make([]models.Sermon, 0, len(byKey))
	for key, item := range byKey {
		item.ID = key
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (c *Cache) scheduleRegeneration(bucket string, window time.Time) {
	errGo := c.tasks.Go("sermon-regenerate "+bucket, func(ctx context.Context) error {
		return c.regenerate(ctx, bucket, window)
	})
	if errGo != nil {
		log.WithError(errGo).Warn("sermon cache: could not schedule regeneration")
	}
}

// regenerate fills bucket unless another worker holds its lock or the bucket
// already holds a sermon from the current window.
func (c *Cache) regenerate(ctx context.Context, bucket string, window time.Time) error {
	_, err, _ := c.flight.Do("regenerate "+bucket, func() (any, error) {
		if existing, errGet := kv.GetJSON[models.Sermon](ctx, c.store, bucket); errGet == nil && !existing.CreatedAt.Before(window) {
			return nil, nil
		}
		acquired, errLock := c.acquireLock(ctx, bucket)
		if errLock != nil {
			return nil, errLock
		}
		if !acquired {
			log.WithField("bucket", bucket).Info("sermon cache: regeneration already in progress")
			return nil, nil
		}
		defer c.releaseLock(bucket)
		return c.generate(ctx, bucket, c.now())
	})
	return err
}

// generateOnce collapses concurrent in-process generations of one bucket.
func (c *Cache) generateOnce(ctx context.Context, bucket string, now time.Time) (models.Sermon, error) {
	value, err, _ := c.flight.Do("cold "+bucket, func() (any, error) {
		return c.generate(ctx, bucket, now)
	})
	if err != nil {
		return models.Sermon{}, err
	}
	item, ok := value.(models.Sermon)
	if !ok {
		return models.Sermon{}, apperr.Upstream("generate sermon", errors.New("unexpected generation result"))
	}
	return item, nil
}

func (c *Cache) acquireLock(ctx context.Context, bucket string) (bool, error) {
	stamp := []byte(c.now().Format(time.RFC3339Nano))
	acquired, err := kv.PutIfAbsent(ctx, c.store, lockKeyPrefix+bucket, stamp, kv.WithTTL(c.opts.LockTTL))
	if err != nil {
		return false, fmt.Errorf("sermon cache: acquire lock: %w", err)
	}
	return acquired, nil
}

func (c *Cache) releaseLock(bucket string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.store.Delete(ctx, lockKeyPrefix+bucket); err != nil {
		log.WithError(err).WithField("bucket", bucket).Warn("sermon cache: release lock failed")
	}
}

// generate requests sermon text, then audio, and stores the result under key.
func (c *Cache) generate(ctx context.Context, key string, now time.Time) (models.Sermon, error) {
	theme := c.theme()
	raw, err := c.text.Generate(ctx, genai.Request{
		Prompt:      buildPrompt(theme),
		Temperature: generationTemperature,
		JSON:        true,
	})
	if err != nil {
		return models.Sermon{}, apperr.Upstream("generate sermon text", err)
	}
	parsed, err := parseDraft(raw)
	if err != nil {
		return models.Sermon{}, apperr.Upstream("parse sermon text", err)
	}

	item := models.Sermon{
		ID:        key,
		Title:     parsed.Title,
		Topic:     parsed.Topic,
		Text:      parsed.Text,
		CreatedAt: now.UTC().Truncate(time.Millisecond),
		Generated: true,
	}
	item.AudioData = c.synthesize(ctx, key, parsed)

	if errPut := kv.PutJSON(ctx, c.store, key, item, kv.WithTTL(c.opts.TTL)); errPut != nil {
		return models.Sermon{}, apperr.Upstream("store sermon", errPut)
	}
	log.WithFields(log.Fields{"key": key, "title": item.Title, "audio": item.AudioData != nil}).Info("sermon cache: stored generated sermon")
	return item, nil
}

// synthesize returns base64 audio, or nil when synthesis is unavailable or fails.
func (c *Cache) synthesize(ctx context.Context, key string, parsed draft) *string {
	if c.audio == nil {
		return nil
	}
	script := genai.TruncateRunes(parsed.Title+". "+parsed.Text, c.opts.AudioCharLimit)
	audio, err := c.audio.Synthesize(ctx, script)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("sermon cache: audio synthesis failed, storing without audio")
		return nil
	}
	encoded := base64.StdEncoding.EncodeToString(audio)
	return &encoded
}
