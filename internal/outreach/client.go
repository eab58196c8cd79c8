package outreach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 1 << 20
)

// remoteError is a non-success answer from the newsletter or webhook endpoint.
type remoteError struct {
	Target     string
	StatusCode int
	Message    string
}

func (e *remoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("outreach: %s status=%d: %s", e.Target, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("outreach: %s status=%d", e.Target, e.StatusCode)
}

// postJSON sends payload to targetURL and fails on any non-2xx status.
func postJSON(ctx context.Context, client *http.Client, target, targetURL string, payload any, headers map[string]string, timeout time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outreach: encode %s payload: %w", target, err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("outreach: build %s request: %w", target, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("outreach: %s request: %w", target, err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("outreach: %s: close response body error: %v", target, errClose)
		}
	}()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &remoteError{Target: target, StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}
	return nil
}

// errorMessage pulls a readable message out of a JSON error body.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"message", "error.message", "error", "errors.0.message"} {
			if value := gjson.GetBytes(body, path); value.Type == gjson.String && value.String() != "" {
				return value.String()
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 256 {
		text = text[:256] + "..."
	}
	return text
}
