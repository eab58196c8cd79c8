package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const elevenLabsProvider = "elevenlabs"

// ElevenLabsClient calls the ElevenLabs text-to-speech endpoint.
type ElevenLabsClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	voiceID    string
	modelID    string
	timeout    time.Duration
}

// ElevenLabsOptions configures an ElevenLabsClient.
type ElevenLabsOptions struct {
	Endpoint   string
	APIKey     string
	VoiceID    string
	ModelID    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewElevenLabsClient constructs a client.
func NewElevenLabsClient(opts ElevenLabsOptions) *ElevenLabsClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &ElevenLabsClient{
		httpClient: client,
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		apiKey:     opts.APIKey,
		voiceID:    opts.VoiceID,
		modelID:    opts.ModelID,
		timeout:    opts.Timeout,
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize returns MPEG audio for text.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c == nil || strings.TrimSpace(c.apiKey) == "" {
		return nil, ErrNotConfigured
	}
	raw, errMarshal := json.Marshal(speechRequest{
		Text:          text,
		ModelID:       c.modelID,
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if errMarshal != nil {
		return nil, &ProviderError{Provider: elevenLabsProvider, Err: errMarshal}
	}

	targetURL := c.endpoint + "/text-to-speech/" + url.PathEscape(c.voiceID)
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "audio/mpeg")
	headers.Set("xi-api-key", c.apiKey)

	audio, err := doRequest(ctx, c.httpClient, elevenLabsProvider, http.MethodPost, targetURL, raw, headers, c.timeout)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, &ProviderError{Provider: elevenLabsProvider, StatusCode: http.StatusOK, Err: ErrEmptyResponse}
	}
	return audio, nil
}
