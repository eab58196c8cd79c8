// Package pastor answers visitor questions in the voice of the site's pastor.
package pastor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/michaelrobgrove/mb-digital-ministry/internal/apperr"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/genai"
)

const maxQuestionRunes = 2000

const systemPrompt = `You are Pastor AIden, an AI assistant for the MB Digital Ministry. ` +
	`Answer compassionately from a Southern Baptist theological perspective, using King James Version scripture to support your answer. ` +
	`Give a biblically sound answer of 2-4 paragraphs. ` +
	`You are not a counselor. Do not give medical, financial, or psychological advice. ` +
	`If the question involves a crisis (abuse, self-harm), your ONLY response must be to provide the ` +
	`988 Suicide & Crisis Lifeline and advise the user to seek immediate professional help.`

// Service forwards questions to the text generator.
type Service struct {
	text genai.TextGenerator
}

// NewService constructs a Service.
func NewService(text genai.TextGenerator) *Service {
	return &Service{text: text}
}

// Ask returns the pastoral answer to question.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apperr.Validation("Question is required.")
	}
	if utf8.RuneCountInString(question) > maxQuestionRunes {
		return "", apperr.Validation(fmt.Sprintf("Question must be at most %d characters.", maxQuestionRunes))
	}
	if s.text == nil {
		return "", apperr.Upstream("ask pastor", genai.ErrNotConfigured)
	}
	answer, err := s.text.Generate(ctx, genai.Request{
		Prompt:      systemPrompt + "\n\nUser question: " + question,
		Temperature: 0.7,
	})
	if err != nil {
		return "", apperr.Upstream("ask pastor", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", apperr.Upstream("ask pastor", genai.ErrEmptyResponse)
	}
	return answer, nil
}
