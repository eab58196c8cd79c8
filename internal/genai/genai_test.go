package genai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                                   `{"a":1}`,
		"```json\n{\"a\":1}\n```":                     `{"a":1}`,
		"```\n{\"a\":1}\n```":                         `{"a":1}`,
		"  ```JSON\n{\"a\":1}```  ":                   `{"a":1}`,
		"```{\"a\":1}```":                             `{"a":1}`,
		"```json {\"title\":\"t\",\"text\":\"x\"}```": `{"title":"t","text":"x"}`,
		"```json[1,2]```":                             "[1,2]",
		"```markdown\n# Title\nBody\n```":             "# Title\nBody",
		"```Grace abounds```":                         "Grace abounds",
		"APPROVE":                                     "APPROVE",
		"```\nline one\nline two\n```":                "line one\nline two",
	}
	for input, want := range cases {
		if got := StripCodeFences(input); got != want {
			t.Fatalf("StripCodeFences(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	text := strings.Repeat("Grace and peace. ", 20)
	got := TruncateRunes(text, 100)
	if len([]rune(got)) > 100 {
		t.Fatalf("expected at most 100 runes, got %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("expected sentence boundary cut, got %q", got)
	}
	if TruncateRunes("short", 100) != "short" {
		t.Fatalf("expected short text untouched")
	}
}

func TestGeminiGenerate(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.5-flash:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "k" {
			t.Errorf("missing api key header")
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":" APPROVE "}]}}]}`))
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiOptions{Endpoint: server.URL, Model: "gemini-2.5-flash", APIKey: "k", Timeout: time.Second})
	text, errGenerate := client.Generate(context.Background(), Request{Prompt: "classify", MaxOutputTokens: 10, JSON: true})
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if text != " APPROVE " {
		t.Fatalf("unexpected text %q", text)
	}
	config, _ := gotBody["generationConfig"].(map[string]any)
	if config["response_mime_type"] != "application/json" || config["maxOutputTokens"] != float64(10) {
		t.Fatalf("unexpected generation config %v", config)
	}
}

func TestGeminiErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"quota"}`))
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiOptions{Endpoint: server.URL, Model: "m", APIKey: "k"})
	_, errGenerate := client.Generate(context.Background(), Request{Prompt: "p"})
	var providerErr *ProviderError
	if !errors.As(errGenerate, &providerErr) || providerErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected provider error with 429, got %v", errGenerate)
	}

	if _, errMissing := NewGeminiClient(GeminiOptions{}).Generate(context.Background(), Request{}); !errors.Is(errMissing, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", errMissing)
	}
}

func TestGeminiEmptyCandidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiOptions{Endpoint: server.URL, Model: "m", APIKey: "k"})
	if _, errGenerate := client.Generate(context.Background(), Request{Prompt: "p"}); !errors.Is(errGenerate, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", errGenerate)
	}
}

func TestGeminiTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewGeminiClient(GeminiOptions{Endpoint: server.URL, Model: "m", APIKey: "k", Timeout: 50 * time.Millisecond})
	_, errGenerate := client.Generate(context.Background(), Request{Prompt: "p"})
	if !IsTimeout(errGenerate) {
		t.Fatalf("expected timeout error, got %v", errGenerate)
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/voice-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "k" {
			t.Errorf("missing xi-api-key")
		}
		var body speechRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.ModelID != "eleven_multilingual_v2" || body.VoiceSettings.Stability != 0.5 {
			t.Errorf("unexpected body %+v", body)
		}
		_, _ = w.Write([]byte("ID3audio"))
	}))
	defer server.Close()

	client := NewElevenLabsClient(ElevenLabsOptions{Endpoint: server.URL, APIKey: "k", VoiceID: "voice-1", ModelID: "eleven_multilingual_v2"})
	audio, errSynth := client.Synthesize(context.Background(), "In the beginning")
	if errSynth != nil {
		t.Fatalf("synthesize: %v", errSynth)
	}
	if string(audio) != "ID3audio" {
		t.Fatalf("unexpected audio %q", audio)
	}
}

func TestBibleAPIRandomVerse(t *testing.T) {
	var gotPath, gotTranslation string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTranslation = r.URL.Query().Get("translation")
		_, _ = w.Write([]byte(`{"reference":"Proverbs 3:5","verses":[{"book_name":"Proverbs","chapter":3,"verse":5}],"text":"Trust in the LORD with all thine heart.\n","translation_id":"kjv"}`))
	}))
	defer server.Close()

	client := NewBibleAPIClient(BibleAPIOptions{Endpoint: server.URL + "/"})
	picks := []int{2, 4}
	client.pick = func(n int) int {
		next := picks[0]
		picks = picks[1:]
		return next
	}
	verse, err := client.RandomVerse(context.Background())
	if err != nil {
		t.Fatalf("random verse: %v", err)
	}
	if gotPath != "/proverbs+3:5" || gotTranslation != "kjv" {
		t.Fatalf("unexpected request %s translation=%s", gotPath, gotTranslation)
	}
	if verse.Reference != "Proverbs 3:5" || verse.Text != "Trust in the LORD with all thine heart." {
		t.Fatalf("unexpected verse %+v", verse)
	}
}

func TestBibleAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/proverbs+31:31" {
			w.WriteHeader(http.StatusNotFound)
		}
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}))
	defer server.Close()

	client := NewBibleAPIClient(BibleAPIOptions{Endpoint: server.URL})
	_, err := client.Lookup(context.Background(), "proverbs 31:31")
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) || providerErr.StatusCode != http.StatusNotFound || providerErr.Provider != "bible-api" {
		t.Fatalf("expected bible-api provider error with 404, got %v", err)
	}

	if _, err := client.Lookup(context.Background(), "proverbs 1:1"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse for a body without text, got %v", err)
	}
}
