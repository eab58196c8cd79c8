package genai

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	bibleProvider        = "bible-api"
	defaultBibleEndpoint = "https://bible-api.com"
	defaultBibleTimeout  = 10 * time.Second

	// Proverbs has 31 chapters; 30 verses keeps the pick inside most of them.
	proverbChapters = 31
	proverbVerses   = 30
)

// Verse is one scripture passage with its reference.
type Verse struct {
	Text      string `json:"text"`
	Reference string `json:"reference"`
}

// VerseSource supplies scripture for daily devotionals.
type VerseSource interface {
	RandomVerse(ctx context.Context) (Verse, error)
}

// BibleAPIOptions configures a BibleAPIClient.
type BibleAPIOptions struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// BibleAPIClient fetches King James verses from a bible-api.com compatible
// service.
type BibleAPIClient struct {
	httpClient *http.Client
	endpoint   string
	timeout    time.Duration
	pick       func(n int) int
}

// NewBibleAPIClient constructs a client. Empty options use the public service.
func NewBibleAPIClient(opts BibleAPIOptions) *BibleAPIClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		endpoint = defaultBibleEndpoint
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultBibleTimeout
	}
	return &BibleAPIClient{httpClient: client, endpoint: endpoint, timeout: timeout, pick: rand.IntN}
}

// RandomVerse returns a random verse from Proverbs.
func (c *BibleAPIClient) RandomVerse(ctx context.Context) (Verse, error) {
	chapter := c.pick(proverbChapters) + 1
	verse := c.pick(proverbVerses) + 1
	return c.Lookup(ctx, fmt.Sprintf("proverbs %d:%d", chapter, verse))
}

// Lookup fetches one passage such as "proverbs 3:5".
func (c *BibleAPIClient) Lookup(ctx context.Context, passage string) (Verse, error) {
	targetURL := c.endpoint + "/" + url.PathEscape(strings.ReplaceAll(strings.TrimSpace(passage), " ", "+")) + "?translation=kjv"
	headers := http.Header{}
	headers.Set("Accept", "application/json")

	payload, err := doRequest(ctx, c.httpClient, bibleProvider, http.MethodGet, targetURL, nil, headers, c.timeout)
	if err != nil {
		return Verse{}, err
	}
	verse := Verse{
		Text:      strings.TrimSpace(gjson.GetBytes(payload, "text").String()),
		Reference: strings.TrimSpace(gjson.GetBytes(payload, "reference").String()),
	}
	if verse.Text == "" || verse.Reference == "" {
		return Verse{}, &ProviderError{Provider: bibleProvider, StatusCode: http.StatusOK, Body: truncate(string(payload), 256), Err: ErrEmptyResponse}
	}
	return verse, nil
}
