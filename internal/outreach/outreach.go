// Package outreach handles newsletter signups and contact form messages.
package outreach

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/apperr"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/background"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/genai"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/kv"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/models"
	log "github.com/sirupsen/logrus"
)

const (
	contactKeyPrefix = "contact:"
	notifyAttempts   = 2
	notifyBackoff    = time.Second
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Options configures the newsletter provider and the contact notification.
type Options struct {
	SenderAPIKey   string
	SenderEndpoint string
	WeeklyGroup    string
	DailyGroup     string
	WebhookURL     string
	NotifyEmail    string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Subscription is a newsletter signup. Honeypot is a hidden form field that
// only bots fill in.
type Subscription struct {
	Email    string `json:"email"`
	Weekly   bool   `json:"weekly"`
	Daily    bool   `json:"daily"`
	Consent  bool   `json:"consent"`
	Honeypot string `json:"ministry_solution"`
}

// ContactMessage is a contact form submission.
type ContactMessage struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Message    string `json:"message"`
	Page       string `json:"page"`
	FormID     string `json:"formId"`
	TrackingID string `json:"trackingId"`
}

// Origin describes where a request came from.
type Origin struct {
	IP        string
	UserAgent string
}

// Service talks to the newsletter provider and stores contact messages.
type Service struct {
	store  kv.Store
	tasks  background.Scheduler
	opts   Options
	client *http.Client
	now    func() time.Time
	newID  func() string
}

// NewService constructs a Service storing contact messages in store.
func NewService(store kv.Store, tasks background.Scheduler, opts Options) *Service {
	opts.SenderEndpoint = strings.TrimRight(opts.SenderEndpoint, "/")
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Service{
		store:  store,
		tasks:  tasks,
		opts:   opts,
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Subscribe registers an email address with the selected newsletters. A
// filled honeypot is silently accepted without contacting the provider.
func (s *Service) Subscribe(ctx context.Context, sub Subscription) error {
	if strings.TrimSpace(sub.Honeypot) != "" {
		log.Info("outreach: honeypot filled, ignoring subscription")
		return nil
	}
	email := strings.TrimSpace(sub.Email)
	if !emailPattern.MatchString(email) {
		return apperr.Validation("Please enter a valid email address.")
	}
	if !sub.Consent {
		return apperr.Validation("You must agree to be contacted.")
	}
	groups := make([]string, 0, 2)
	if sub.Weekly {
		groups = append(groups, s.opts.WeeklyGroup)
	}
	if sub.Daily {
		groups = append(groups, s.opts.DailyGroup)
	}
	if len(groups) == 0 {
		return apperr.Validation("Please select at least one newsletter.")
	}
	if s.opts.SenderAPIKey == "" {
		return apperr.Upstream("subscribe", genai.ErrNotConfigured)
	}

	payload := map[string]any{
		"email":              email,
		"groups":             groups,
		"trigger_automation": true,
	}
	headers := map[string]string{"Authorization": "Bearer " + s.opts.SenderAPIKey}
	if err := postJSON(ctx, s.client, "sender", s.opts.SenderEndpoint+"/subscribers", payload, headers, s.opts.Timeout); err != nil {
		return apperr.Upstream("subscribe", err)
	}
	log.WithField("groups", groups).Info("outreach: subscriber registered")
	return nil
}

// Contact stores a contact message and notifies the webhook in the background.
func (s *Service) Contact(ctx context.Context, msg ContactMessage, origin Origin) (models.ContactSubmission, error) {
	record := models.ContactSubmission{
		ID:         contactKeyPrefix + s.newID(),
		Name:       strings.TrimSpace(msg.Name),
		Email:      strings.TrimSpace(msg.Email),
		Message:    strings.TrimSpace(msg.Message),
		Page:       strings.TrimSpace(msg.Page),
		FormID:     strings.TrimSpace(msg.FormID),
		TrackingID: strings.TrimSpace(msg.TrackingID),
		UserAgent:  origin.UserAgent,
		IP:         origin.IP,
		CreatedAt:  s.now().UTC().Truncate(time.Millisecond),
	}
	if record.Message == "" {
		return models.ContactSubmission{}, apperr.Validation("Message is required.")
	}
	if record.Email != "" && !emailPattern.MatchString(record.Email) {
		return models.ContactSubmission{}, apperr.Validation("Please enter a valid email address.")
	}
	if err := kv.PutJSON(ctx, s.store, record.ID, record); err != nil {
		return models.ContactSubmission{}, apperr.Upstream("store contact", err)
	}
	s.notify(record)
	return record, nil
}

func (s *Service) notify(record models.ContactSubmission) {
	if s.opts.WebhookURL == "" || s.tasks == nil {
		return
	}
	name := record.Name
	if name == "" {
		name = "(no name)"
	}
	payload := map[string]string{
		"subject": fmt.Sprintf("New site contact: %s - %s", name, record.Page),
		"text": fmt.Sprintf("%s\n\nFrom: %s <%s>\nPage: %s\nForm: %s\nIP: %s",
			record.Message, record.Name, record.Email, record.Page, record.FormID, record.IP),
		"to": s.opts.NotifyEmail,
	}
	errGo := s.tasks.Go("contact-notify "+record.ID, func(ctx context.Context) error {
		return background.Retry(ctx, notifyAttempts, notifyBackoff, func(ctx context.Context) error {
			return postJSON(ctx, s.client, "webhook", s.opts.WebhookURL, payload, nil, s.opts.Timeout)
		})
	})
	if errGo != nil {
		log.WithError(errGo).WithField("id", record.ID).Warn("outreach: could not schedule contact notification")
	}
}
