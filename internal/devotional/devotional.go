// Package devotional keeps a rolling week of generated daily devotionals, one
// per local calendar day, each built around a King James verse.
package devotional

import (
	"context"
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
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// KeyPrefix prefixes every devotional key: devotional:<YYYY-MM-DD>.
const KeyPrefix = "devotional:"

// DateLayout is the calendar day format used in keys and requests.
const DateLayout = "2006-01-02"

const (
	aheadLockKey          = "lock:devotional:ahead"
	defaultDays           = 7
	defaultTTL            = 30 * 24 * time.Hour
	defaultLockTTL        = 5 * time.Minute
	generationTemperature = 0.7
)

var fallbackVerse = genai.Verse{Text: "The LORD is my shepherd; I shall not want.", Reference: "Psalm 23:1"}

// Options tunes the generate-ahead window and storage.
type Options struct {
	// Days is how many days, today included, are kept generated.
	Days    int
	TTL     time.Duration
	LockTTL time.Duration
	// Location decides where a calendar day begins. Nil means UTC.
	Location *time.Location
	// Spacing pauses between consecutive generations. Zero disables it.
	Spacing time.Duration
}

// Service generates, stores and serves daily devotionals.
type Service struct {
	store  kv.Store
	verses genai.VerseSource
	text   genai.TextGenerator
	tasks  background.Scheduler
	opts   Options
	flight singleflight.Group
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewService constructs a Service.
func NewService(store kv.Store, verses genai.VerseSource, text genai.TextGenerator, tasks background.Scheduler, opts Options) *Service {
	if opts.Days <= 0 {
		opts.Days = defaultDays
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		store:  store,
		verses: verses,
		text:   text,
		tasks:  tasks,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
		sleep:  sleepContext,
	}
}

// Key returns the store key for a calendar day.
func Key(date string) string { return KeyPrefix + date }

// dayAt returns the calendar day offset days after the local day of now.
func (s *Service) dayAt(now time.Time, offset int) string {
	year, month, day := now.In(s.opts.Location).Date()
	return time.Date(year, month, day+offset, 12, 0, 0, 0, s.opts.Location).Format(DateLayout)
}

// Today returns the devotional for the local day of now. A missing day is
// generated synchronously. When the last day of the window is missing, the
// window is filled in the background.
func (s *Service) Today(ctx context.Context, now time.Time) (models.Devotional, error) {
	date := s.dayAt(now, 0)
	item, err := s.get(ctx, date)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return models.Devotional{}, apperr.Upstream("load devotional", err)
	}
	if err != nil {
		item, err = s.generateOnce(ctx, date)
		if err != nil {
			return models.Devotional{}, err
		}
	}

	last := s.dayAt(now, s.opts.Days-1)
	if _, errLast := s.store.Get(ctx, Key(last)); errors.Is(errLast, kv.ErrNotFound) {
		s.scheduleAhead(now)
	}
	return item, nil
}

// Get returns the stored devotional for date without generating.
func (s *Service) Get(ctx context.Context, date string) (models.Devotional, error) {
	if _, errParse := time.Parse(DateLayout, date); errParse != nil {
		return models.Devotional{}, apperr.Validation("date must be YYYY-MM-DD")
	}
	item, err := s.get(ctx, date)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return models.Devotional{}, apperr.NotFound("devotional not found")
		}
		return models.Devotional{}, apperr.Upstream("load devotional", err)
	}
	return item, nil
}

// List returns every stored devotional, newest day first.
func (s *Service) List(ctx context.Context) ([]models.Devotional, error) {
	byKey, err := kv.LoadAll[models.Devotional](ctx, s.store, KeyPrefix)
	if err != nil {
		return nil, apperr.Upstream("list devotionals", err)
	}
	items := make([]models.Devotional, 0, len(byKey))
	for key, item := range byKey {
		item.ID = key
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

// GenerateAhead fills every missing day from today through the end of the
// window and returns how many were generated. A failed day is logged and
// skipped; the failures are returned together once the window is done.
func (s *Service) GenerateAhead(ctx context.Context, now time.Time) (int, error) {
	value, err, _ := s.flight.Do("ahead", func() (any, error) {
		return s.generateAhead(ctx, now)
	})
	created, _ := value.(int)
	return created, err
}

func (s *Service) generateAhead(ctx context.Context, now time.Time) (int, error) {
	stamp := []byte(s.now().Format(time.RFC3339Nano))
	acquired, err := kv.PutIfAbsent(ctx, s.store, aheadLockKey, stamp, kv.WithTTL(s.opts.LockTTL))
	if err != nil {
		return 0, fmt.Errorf("devotional: acquire lock: %w", err)
	}
	if !acquired {
		log.Info("devotional: generate-ahead already in progress")
		return 0, nil
	}
	defer s.releaseLock()

	created := 0
	var failures []error
	for offset := 0; offset < s.opts.Days; offset++ {
		date := s.dayAt(now, offset)
		if _, errGet := s.store.Get(ctx, Key(date)); errGet == nil {
			continue
		} else if !errors.Is(errGet, kv.ErrNotFound) {
			return created, fmt.Errorf("devotional: read %s: %w", date, errGet)
		}
		if created > 0 || len(failures) > 0 {
			if errSleep := s.sleep(ctx, s.opts.Spacing); errSleep != nil {
				return created, errSleep
			}
		}
		log.WithFields(log.Fields{"date": date, "day": offset + 1, "days": s.opts.Days}).Info("devotional: generating")
		if _, errGenerate := s.generate(ctx, date); errGenerate != nil {
			if ctx.Err() != nil {
				return created, ctx.Err()
			}
			log.WithError(errGenerate).WithField("date", date).Warn("devotional: generation failed")
			failures = append(failures, fmt.Errorf("%s: %w", date, errGenerate))
			continue
		}
		created++
	}
	return created, errors.Join(failures...)
}

func (s *Service) releaseLock() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, aheadLockKey); err != nil {
		log.WithError(err).Warn("devotional: release lock failed")
	}
}

// ScheduleAhead runs GenerateAhead in the background.
func (s *Service) ScheduleAhead(now time.Time) error {
	return s.tasks.Go("devotional-generate-ahead "+s.dayAt(now, 0), func(ctx context.Context) error {
		_, err := s.GenerateAhead(ctx, now)
		return err
	})
}

func (s *Service) scheduleAhead(now time.Time) {
	if errGo := s.ScheduleAhead(now); errGo != nil {
		log.WithError(errGo).Warn("devotional: could not schedule generate-ahead")
	}
}

// ForceGenerate regenerates date, replacing any stored devotional. An empty
// date means today.
func (s *Service) ForceGenerate(ctx context.Context, now time.Time, date string) (models.Devotional, error) {
	date, err := s.resolveDate(now, date)
	if err != nil {
		return models.Devotional{}, err
	}
	return s.generate(ctx, date)
}

// ForceGenerateAsync schedules ForceGenerate and returns immediately.
func (s *Service) ForceGenerateAsync(now time.Time, date string) error {
	date, err := s.resolveDate(now, date)
	if err != nil {
		return err
	}
	return s.tasks.Go("devotional-force-generate "+date, func(ctx context.Context) error {
		_, errGenerate := s.generate(ctx, date)
		return errGenerate
	})
}

// Delete removes one devotional by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !strings.HasPrefix(id, KeyPrefix) {
		return apperr.NotFound("devotional not found")
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return apperr.NotFound("devotional not found")
		}
		return apperr.Upstream("load devotional", err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return apperr.Upstream("delete devotional", err)
	}
	return nil
}

func (s *Service) resolveDate(now time.Time, date string) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return s.dayAt(now, 0), nil
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return "", apperr.Validation("date must be YYYY-MM-DD")
	}
	return date, nil
}

func (s *Service) get(ctx context.Context, date string) (models.Devotional, error) {
	item, err := kv.GetJSON[models.Devotional](ctx, s.store, Key(date))
	if err != nil {
		return models.Devotional{}, err
	}
	item.ID = Key(date)
	return item, nil
}

// generateOnce collapses concurrent in-process generations of one day.
func (s *Service) generateOnce(ctx context.Context, date string) (models.Devotional, error) {
	value, err, _ := s.flight.Do("day "+date, func() (any, error) {
		return s.generate(ctx, date)
	})
	if err != nil {
		return models.Devotional{}, err
	}
	item, ok := value.(models.Devotional)
	if !ok {
		return models.Devotional{}, apperr.Upstream("generate devotional", errors.New("unexpected generation result"))
	}
	return item, nil
}

// generate fetches a verse, writes the devotional for it and stores it.
func (s *Service) generate(ctx context.Context, date string) (models.Devotional, error) {
	verse := s.verse(ctx)
	raw, err := s.text.Generate(ctx, genai.Request{
		Prompt:      buildPrompt(verse),
		Temperature: generationTemperature,
	})
	if err != nil {
		return models.Devotional{}, apperr.Upstream("generate devotional", err)
	}
	markdown := strings.TrimSpace(genai.StripCodeFences(raw))
	if markdown == "" {
		return models.Devotional{}, apperr.Upstream("generate devotional", genai.ErrEmptyResponse)
	}

	item := models.Devotional{
		ID:        Key(date),
		Date:      date,
		Title:     parseTitle(markdown, verse.Reference),
		Reference: verse.Reference,
		Verse:     verse.Text,
		Markdown:  markdown,
		CreatedAt: s.now().UTC(),
		Generated: true,
	}
	if errPut := kv.PutJSON(ctx, s.store, item.ID, item, kv.WithTTL(s.opts.TTL)); errPut != nil {
		return models.Devotional{}, apperr.Upstream("store devotional", errPut)
	}
	log.WithFields(log.Fields{"key": item.ID, "reference": item.Reference}).Info("devotional: stored generated devotional")
	return item, nil
}

// verse returns a random verse, or the fallback verse when the lookup fails.
func (s *Service) verse(ctx context.Context) genai.Verse {
	if s.verses == nil {
		return fallbackVerse
	}
	verse, err := s.verses.RandomVerse(ctx)
	if err != nil {
		log.WithError(err).Warn("devotional: verse lookup failed, using fallback verse")
		return fallbackVerse
	}
	return verse
}

func buildPrompt(verse genai.Verse) string {
	return fmt.Sprintf(`You are an AI assistant creating content for a Baptist resource website. Your theology must strictly align with Southern Baptist and Independent Baptist beliefs. Here is the scripture for today from the King James Version: "%s" (%s).

Write a 400-word devotional based on this specific verse. The output must be in simple Markdown format. It should include a title using a heading (e.g., # A Reflection on %s), the devotional text, and a concluding one-sentence prayer.`, verse.Text, verse.Reference, verse.Reference)
}

// parseTitle returns the first Markdown heading, or a title built from the
// reference when there is none.
func parseTitle(markdown, reference string) string {
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		if title := strings.TrimSpace(strings.TrimLeft(line, "#")); title != "" {
			return title
		}
	}
	return "A Reflection on " + reference
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
