// Package blog manages posts and the RSS feed and sitemap derived from them.
package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/apperr"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/genai"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/kv"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/models"
	log "github.com/sirupsen/logrus"
)

const (
	postKeyPrefix = "post:"
	// RSSKey and SitemapKey hold the rendered documents in the blog namespace.
	RSSKey     = "rss_xml"
	SitemapKey = "sitemap_xml"

	defaultCategory = "General"
	defaultTemplate = "Write a short devotional blog post (3-5 short paragraphs) about {topic} for a Baptist audience. " +
		"Use the King James Version for any scripture. Tone: warm, encouraging."
	generationSuffix = ` Respond ONLY with a JSON object of this shape: {"title": "post title", "content": "the post body in Markdown"}`
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases title and joins its alphanumeric runs with dashes.
func Slugify(title string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

// Options describes the site the feeds are published for.
type Options struct {
	SiteURL        string
	Title          string
	Description    string
	PromptTemplate string
}

// Draft is an admin authored post.
type Draft struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags"`
	ImageKey string   `json:"imageKey"`
	Slug     string   `json:"slug"`
}

// Service stores posts and keeps the feeds in step with them.
type Service struct {
	store kv.Store
	text  genai.TextGenerator
	opts  Options
	now   func() time.Time
	newID func() string
}

// NewService constructs a Service. text may be nil when generation is disabled.
func NewService(store kv.Store, text genai.TextGenerator, opts Options) *Service {
	opts.SiteURL = strings.TrimRight(opts.SiteURL, "/")
	if strings.TrimSpace(opts.PromptTemplate) == "" {
		opts.PromptTemplate = defaultTemplate
	}
	return &Service{
		store: store,
		text:  text,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// List returns every post, newest first.
func (s *Service) List(ctx context.Context) ([]models.Post, error) {
	byKey, err := kv.LoadAll[models.Post](ctx, s.store, postKeyPrefix)
	if err != nil {
		return nil, apperr.Upstream("list posts", err)
	}
	posts := make([]models.Post, 0, len(byKey))
	for _, post := range byKey {
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

// Find returns the post with the given slug or id.
func (s *Service) Find(ctx context.Context, ref string) (models.Post, error) {
	post, err := kv.GetJSON[models.Post](ctx, s.store, postKeyPrefix+ref)
	if err == nil {
		return post, nil
	}
	if !errors.Is(err, kv.ErrNotFound) {
		return models.Post{}, apperr.Upstream("load post", err)
	}
	posts, err := s.List(ctx)
	if err != nil {
		return models.Post{}, err
	}
	for _, post := range posts {
		if post.Slug == ref {
			return post, nil
		}
	}
	return models.Post{}, apperr.NotFound("post not found")
}

// Create stores an admin authored post.
func (s *Service) Create(ctx context.Context, draft Draft) (models.Post, error) {
	title := strings.TrimSpace(draft.Title)
	content := strings.TrimSpace(draft.Content)
	if content == "" {
		content = strings.TrimSpace(draft.Body)
	}
	if title == "" || content == "" {
		return models.Post{}, apperr.Validation("Missing title or body")
	}
	slug := Slugify(draft.Slug)
	if slug == "" {
		slug = Slugify(title)
	}
	tags := draft.Tags
	if tags == nil {
		tags = []string{}
	}
	return s.save(ctx, models.Post{
		ID:       s.newID(),
		Title:    title,
		Content:  content,
		Tags:     tags,
		Slug:     slug,
		ImageKey: strings.TrimSpace(draft.ImageKey),
	})
}

// Generate asks the text generator for a post about category.
func (s *Service) Generate(ctx context.Context, category string) (models.Post, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = defaultCategory
	}
	if s.text == nil {
		return models.Post{}, apperr.Upstream("generate post", genai.ErrNotConfigured)
	}
	prompt := strings.NewReplacer("{topic}", category, "{category}", category).Replace(s.opts.PromptTemplate)
	raw, err := s.text.Generate(ctx, genai.Request{Prompt: prompt + generationSuffix, Temperature: 0.7, JSON: true})
	if err != nil {
		return models.Post{}, apperr.Upstream("generate post", err)
	}
	var generated struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if errUnmarshal := json.Unmarshal([]byte(genai.StripCodeFences(raw)), &generated); errUnmarshal != nil {
		return models.Post{}, apperr.Upstream("parse generated post", errUnmarshal)
	}
	title := strings.TrimSpace(generated.Title)
	content := strings.TrimSpace(generated.Content)
	if content == "" {
		return models.Post{}, apperr.Upstream("parse generated post", genai.ErrEmptyResponse)
	}
	if title == "" {
		title = fmt.Sprintf("Reflections on %s", category)
	}
	return s.save(ctx, models.Post{
		ID:        s.newID(),
		Title:     title,
		Content:   content,
		Tags:      []string{category},
		Slug:      Slugify(title),
		Generated: true,
	})
}

// Delete removes a post by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	key := postKeyPrefix + strings.TrimPrefix(id, postKeyPrefix)
	if _, err := s.store.Get(ctx, key); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return apperr.NotFound("post not found")
		}
		return apperr.Upstream("load post", err)
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return apperr.Upstream("delete post", err)
	}
	s.refreshFeeds(ctx)
	return nil
}

// RSS returns the rendered RSS document.
func (s *Service) RSS(ctx context.Context) ([]byte, error) {
	return s.document(ctx, RSSKey)
}

// Sitemap returns the rendered sitemap document.
func (s *Service) Sitemap(ctx context.Context) ([]byte, error) {
	return s.document(ctx, SitemapKey)
}

func (s *Service) document(ctx context.Context, key string) ([]byte, error) {
	body, err := s.store.Get(ctx, key)
	if err == nil {
		return body, nil
	}
	if !errors.Is(err, kv.ErrNotFound) {
		return nil, apperr.Upstream("load "+key, err)
	}
	if errRender := s.RefreshFeeds(ctx); errRender != nil {
		return nil, apperr.Upstream("render "+key, errRender)
	}
	body, err = s.store.Get(ctx, key)
	if err != nil {
		return nil, apperr.Upstream("load "+key, err)
	}
	return body, nil
}

func (s *Service) save(ctx context.Context, post models.Post) (models.Post, error) {
	post.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	if err := kv.PutJSON(ctx, s.store, postKeyPrefix+post.ID, post); err != nil {
		return models.Post{}, apperr.Upstream("store post", err)
	}
	log.WithFields(log.Fields{"id": post.ID, "slug": post.Slug, "generated": post.Generated}).Info("blog: stored post")
	s.refreshFeeds(ctx)
	return post, nil
}

// refreshFeeds re-renders the feeds after a change. A failure leaves the
// previous documents in place.
func (s *Service) refreshFeeds(ctx context.Context) {
	if err := s.RefreshFeeds(ctx); err != nil {
		log.WithError(err).Warn("blog: feed regeneration failed")
	}
}

// RefreshFeeds renders the RSS feed and sitemap from the stored posts.
func (s *Service) RefreshFeeds(ctx context.Context) error {
	posts, err := s.List(ctx)
	if err != nil {
		return err
	}
	rss, err := renderRSS(channel{Title: s.opts.Title, Link: s.opts.SiteURL, Description: s.opts.Description}, posts)
	if err != nil {
		return fmt.Errorf("blog: render rss: %w", err)
	}
	sitemap, err := renderSitemap(s.opts.SiteURL, posts)
	if err != nil {
		return fmt.Errorf("blog: render sitemap: %w", err)
	}
	if err = s.store.Put(ctx, RSSKey, rss); err != nil {
		return fmt.Errorf("blog: store rss: %w", err)
	}
	if err = s.store.Put(ctx, SitemapKey, sitemap); err != nil {
		return fmt.Errorf("blog: store sitemap: %w", err)
	}
	return nil
}
