// Package prayer moderates prayer wall submissions and keeps their audit log.
package prayer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/apperr"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/background"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/genai"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/kv"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/models"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/security"
	log "github.com/sirupsen/logrus"
)

const (
	publicKeyPrefix = "prayer:"
	logKeyPrefix    = "log:"

	// TimestampLayout is the UTC millisecond layout shared by log entries and
	// published records.
	TimestampLayout = "2006-01-02T15:04:05.000Z"

	maxFirstNameRunes   = 50
	maxRequestTextRunes = 2000

	defaultPublicTTL    = 7 * 24 * time.Hour
	defaultLogRetention = 180 * 24 * time.Hour
	defaultLogListLimit = 100

	publishAttempts  = 3
	publishBackoff   = 200 * time.Millisecond
	logWriteAttempts = 3
	logWriteBackoff  = 200 * time.Millisecond
	logSuffixLength  = 8
)

const rubric = `You are a content moderator for a Christian church's public prayer wall. ` +
	`Analyze the following prayer request. Determine if it is spam, contains inappropriate content ` +
	`(profanity, hate speech, violence), or includes sensitive personal identifiable information ` +
	`(like last names, addresses, phone numbers, emails). ` +
	`Respond with only a single word: APPROVE if the request is a genuine, safe-for-public prayer request. ` +
	`Respond with only a single word: REJECT if it violates any of the rules. Prayer Request: %q`

// Options tunes retention of published records and log entries.
type Options struct {
	PublicTTL time.Duration
	// LogRetention bounds how long log entries are kept. Negative keeps them
	// forever.
	LogRetention time.Duration
	LogListLimit int
}

// Submission is one prayer wall request.
type Submission struct {
	FirstName   string
	RequestText string
	SourceIP    string
}

// Result reports the moderation outcome.
type Result struct {
	Published bool
	Decision  string
	Timestamp string
}

// Gate classifies submissions and publishes only approved ones.
type Gate struct {
	public     kv.Store
	logs       kv.Store
	classifier genai.TextGenerator
	tasks      background.Scheduler
	opts       Options
	now        func() time.Time
	newID      func() string
}

// NewGate constructs a Gate over the public and log namespaces.
func NewGate(public, logs kv.Store, classifier genai.TextGenerator, tasks background.Scheduler, opts Options) *Gate {
	if opts.PublicTTL <= 0 {
		opts.PublicTTL = defaultPublicTTL
	}
	if opts.LogRetention == 0 {
		opts.LogRetention = defaultLogRetention
	}
	if opts.LogListLimit <= 0 {
		opts.LogListLimit = defaultLogListLimit
	}
	return &Gate{
		public:     public,
		logs:       logs,
		classifier: classifier,
		tasks:      tasks,
		opts:       opts,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Submit validates, classifies and records a submission. Only an explicit
// approval publishes it; every classifier failure is a rejection, and so is
// an approval whose public record could not be written. The log entry
// records the outcome that actually happened.
func (g *Gate) Submit(ctx context.Context, sub Submission) (Result, error) {
	firstName := strings.TrimSpace(sub.FirstName)
	requestText := strings.TrimSpace(sub.RequestText)
	if firstName == "" || requestText == "" {
		return Result{}, apperr.Validation("Missing first name or request text.")
	}
	if utf8.RuneCountInString(firstName) > maxFirstNameRunes {
		return Result{}, apperr.Validation(fmt.Sprintf("First name must be at most %d characters.", maxFirstNameRunes))
	}
	if utf8.RuneCountInString(requestText) > maxRequestTextRunes {
		return Result{}, apperr.Validation(fmt.Sprintf("Request text must be at most %d characters.", maxRequestTextRunes))
	}

	decision := g.classify(ctx, requestText)
	timestamp := g.now().UTC().Format(TimestampLayout)
	result := Result{Decision: decision, Timestamp: timestamp}

	if decision == models.ModerationApprove {
		id := g.newID()
		record := models.PrayerRecord{
			ID:          id,
			FirstName:   firstName,
			RequestText: requestText,
			CreatedAt:   timestamp,
		}
		errPut := background.Retry(ctx, publishAttempts, publishBackoff, func(ctx context.Context) error {
			return kv.PutJSON(ctx, g.public, publicKeyPrefix+id, record, kv.WithTTL(g.opts.PublicTTL))
		})
		if errPut != nil {
			log.WithError(errPut).WithField("id", id).Error("prayer gate: publish failed, recording rejection")
			result.Decision = models.ModerationReject
		} else {
			result.Published = true
		}
	}

	g.writeLog(models.PrayerLogEntry{
		Timestamp:        timestamp,
		FirstName:        firstName,
		RequestText:      requestText,
		ModerationStatus: result.Decision,
		SourceIP:         sub.SourceIP,
	})
	return result, nil
}

// classify never returns an error; anything but a clean approval is a
// rejection.
func (g *Gate) classify(ctx context.Context, requestText string) string {
	if g.classifier == nil {
		return models.ModerationReject
	}
	raw, err := g.classifier.Generate(ctx, genai.Request{
		Prompt:          fmt.Sprintf(rubric, requestText),
		Temperature:     0,
		MaxOutputTokens: 10,
	})
	if err != nil {
		log.WithError(err).WithField("timeout", genai.IsTimeout(err)).Warn("prayer gate: classification failed, rejecting")
		return models.ModerationReject
	}
	if normalizeVerdict(raw) == models.ModerationApprove {
		return models.ModerationApprove
	}
	return models.ModerationReject
}

func normalizeVerdict(raw string) string {
	verdict := strings.ToUpper(strings.TrimSpace(raw))
	return strings.TrimFunc(verdict, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
	})
}

// writeLog hands the log write to the background runner. When the runner no
// longer accepts work the write happens inline.
func (g *Gate) writeLog(entry models.PrayerLogEntry) {
	suffix, err := security.GenerateRandomString(logSuffixLength)
	if err != nil {
		suffix = fmt.Sprintf("%x", g.now().UnixNano())
	}
	key := logKeyPrefix + entry.Timestamp + ":" + suffix
	write := func(ctx context.Context) error {
		return background.Retry(ctx, logWriteAttempts, logWriteBackoff, func(ctx context.Context) error {
			return kv.PutJSON(ctx, g.logs, key, entry, kv.WithTTL(g.opts.LogRetention))
		})
	}
	if g.tasks != nil {
		errGo := g.tasks.Go("prayer-log "+key, write)
		if errGo == nil {
			return
		}
		log.WithError(errGo).Warn("prayer gate: background runner unavailable, writing log inline")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if errWrite := write(ctx); errWrite != nil {
		log.WithError(errWrite).WithField("key", key).Error("prayer gate: log write failed")
	}
}

// ListPublic returns the published prayers, newest first.
func (g *Gate) ListPublic(ctx context.Context) ([]models.PrayerRecord, error) {
	byKey, err := kv.LoadAll[models.PrayerRecord](ctx, g.public, publicKeyPrefix)
	if err != nil {
		return nil, apperr.Upstream("list prayers", err)
	}
	records := make([]models.PrayerRecord, 0, len(byKey))
	for _, record := range byKey {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt == records[j].CreatedAt {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt > records[j].CreatedAt
	})
	return records, nil
}

// ListLog returns log entries newest first, with the store key as id.
func (g *Gate) ListLog(ctx context.Context) ([]models.PrayerLogEntry, error) {
	byKey, err := kv.LoadAll[models.PrayerLogEntry](ctx, g.logs, logKeyPrefix)
	if err != nil {
		return nil, apperr.Upstream("list prayer log", err)
	}
	entries := make([]models.PrayerLogEntry, 0, len(byKey))
	for key, entry := range byKey {
		entry.ID = key
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp == entries[j].Timestamp {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].Timestamp > entries[j].Timestamp
	})
	if len(entries) > g.opts.LogListLimit {
		entries = entries[:g.opts.LogListLimit]
	}
	return entries, nil
}

// DeleteLog removes a log entry and, for an approved entry, the public record
// published from it.
func (g *Gate) DeleteLog(ctx context.Context, id string) error {
	if !strings.HasPrefix(id, logKeyPrefix) {
		return apperr.NotFound("prayer log entry not found")
	}
	entry, err := kv.GetJSON[models.PrayerLogEntry](ctx, g.logs, id)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return apperr.NotFound("prayer log entry not found")
		}
		return apperr.Upstream("load prayer log entry", err)
	}
	if errDelete := g.logs.Delete(ctx, id); errDelete != nil {
		return apperr.Upstream("delete prayer log entry", errDelete)
	}
	if entry.ModerationStatus != models.ModerationApprove {
		return nil
	}

	published, err := kv.LoadAll[models.PrayerRecord](ctx, g.public, publicKeyPrefix)
	if err != nil {
		return apperr.Upstream("list prayers", err)
	}
	for key, record := range published {
		if !sameInstant(record.CreatedAt, entry.Timestamp) {
			continue
		}
		if errDelete := g.public.Delete(ctx, key); errDelete != nil {
			return apperr.Upstream("delete prayer", errDelete)
		}
		log.WithFields(log.Fields{"log": id, "prayer": key}).Info("prayer gate: removed published prayer with its log entry")
	}
	return nil
}

func sameInstant(a, b string) bool {
	if a == b {
		return true
	}
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	return errA == nil && errB == nil && ta.Equal(tb)
}
