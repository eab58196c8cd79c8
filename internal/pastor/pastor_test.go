package pastor

import (
	"context"
	"strings"
	"testing"

	"github.com/michaelrobgrove/mb-digital-ministry/internal/apperr"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/genai"
)

type stubText struct {
	reply string
	err   error
	last  genai.Request
}

func (s *stubText) Generate(_ context.Context, req genai.Request) (string, error) {
	s.last = req
	return s.reply, s.err
}

func TestAsk(t *testing.T) {
	text := &stubText{reply: "  Be still, and know that I am God.  "}
	answer, err := NewService(text).Ask(context.Background(), "  How do I find peace?  ")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer != "Be still, and know that I am God." {
		t.Fatalf("unexpected answer %q", answer)
	}
	if !strings.HasSuffix(text.last.Prompt, "User question: How do I find peace?") || !strings.Contains(text.last.Prompt, "988") {
		t.Fatalf("unexpected prompt %q", text.last.Prompt)
	}
	if text.last.Temperature != 0.7 {
		t.Fatalf("unexpected temperature %v", text.last.Temperature)
	}
}

func TestAskErrors(t *testing.T) {
	if _, err := NewService(&stubText{}).Ask(context.Background(), " "); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := NewService(&stubText{err: genai.ErrTimeout}).Ask(context.Background(), "why?"); !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if _, err := NewService(&stubText{reply: "  "}).Ask(context.Background(), "why?"); !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error on empty answer, got %v", err)
	}
	if _, err := NewService(nil).Ask(context.Background(), "why?"); !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error without generator, got %v", err)
	}
}
