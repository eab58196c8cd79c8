package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const geminiProvider = "gemini"

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	httpClient *http.Client
	endpoint   string
	model      string
	apiKey     string
	timeout    time.Duration
}

// GeminiOptions configures a GeminiClient.
type GeminiOptions struct {
	Endpoint   string
	Model      string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewGeminiClient constructs a client. A nil HTTP client uses a default one.
func NewGeminiClient(opts GeminiOptions) *GeminiClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &GeminiClient{
		httpClient: client,
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		model:      opts.Model,
		apiKey:     opts.APIKey,
		timeout:    opts.Timeout,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

// Generate returns the first candidate's text.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if c == nil || strings.TrimSpace(c.apiKey) == "" {
		return "", ErrNotConfigured
	}
	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		},
	}
	if req.JSON {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}
	raw, errMarshal := json.Marshal(body)
	if errMarshal != nil {
		return "", &ProviderError{Provider: geminiProvider, Err: errMarshal}
	}

	targetURL := c.endpoint + "/models/" + url.PathEscape(c.model) + ":generateContent"
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("x-goog-api-key", c.apiKey)

	payload, err := doRequest(ctx, c.httpClient, geminiProvider, http.MethodPost, targetURL, raw, headers, c.timeout)
	if err != nil {
		return "", err
	}

	text := gjson.GetBytes(payload, "candidates.0.content.parts.0.text")
	if !text.Exists() || strings.TrimSpace(text.String()) == "" {
		reason := gjson.GetBytes(payload, "promptFeedback.blockReason").String()
		if reason == "" {
			reason = gjson.GetBytes(payload, "candidates.0.finishReason").String()
		}
		return "", &ProviderError{Provider: geminiProvider, StatusCode: http.StatusOK, Body: reason, Err: ErrEmptyResponse}
	}
	return text.String(), nil
}
