// Package genai holds the clients for the external text generation and
// text-to-speech providers.
package genai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultRequestTimeout = 25 * time.Second
	maxResponseBytes      = 32 << 20
)

var (
	// ErrTimeout marks a provider call that exceeded its deadline. It is
	// retryable, unlike other provider failures.
	ErrTimeout = errors.New("genai: provider timeout")
	// ErrNotConfigured is returned when a provider has no API key.
	ErrNotConfigured = errors.New("genai: provider not configured")
	// ErrEmptyResponse is returned when the provider answered without content.
	ErrEmptyResponse = errors.New("genai: empty provider response")
)

// Request is one text generation call.
type Request struct {
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
	// JSON asks the provider for an application/json response.
	JSON bool
}

// TextGenerator produces text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// AudioSynthesizer turns text into encoded audio bytes.
type AudioSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ProviderError describes a non-success provider response.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("genai: %s: %v", e.Provider, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("genai: %s status=%d body=%s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("genai: %s status=%d", e.Provider, e.StatusCode)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTimeout reports whether err is a provider timeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// doRequest sends one request with the given timeout and returns the body of a
// 2xx response. Deadline failures are reported as ErrTimeout.
func doRequest(ctx context.Context, client *http.Client, provider, method, targetURL string, body []byte, headers http.Header, timeout time.Duration) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, errReq := http.NewRequestWithContext(reqCtx, method, targetURL, bytes.NewReader(body))
	if errReq != nil {
		return nil, &ProviderError{Provider: provider, Err: errReq}
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, errResp := client.Do(req)
	if errResp != nil {
		if isDeadline(reqCtx, errResp) {
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, provider, timeout)
		}
		return nil, &ProviderError{Provider: provider, Err: errResp}
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("genai: %s: close response body error: %v", provider, errClose)
		}
	}()

	payload, errRead := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if errRead != nil {
		if isDeadline(reqCtx, errRead) {
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, provider, timeout)
		}
		return nil, &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Err: errRead}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Body: truncate(string(payload), 512)}
	}
	return payload, nil
}

func isDeadline(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
