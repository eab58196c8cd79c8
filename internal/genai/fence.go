package genai

import (
	"strings"
	"unicode"
)

// StripCodeFences removes a surrounding Markdown code fence, with or without a
// language tag, from a model response. The tag may sit on its own line or
// directly before a JSON body on the fence line.
func StripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = stripFenceTag(strings.TrimPrefix(text, "```"))
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// stripFenceTag drops a leading language tag such as json or markdown.
func stripFenceTag(text string) string {
	end := strings.IndexFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("+-_.", r)
	})
	if end <= 0 {
		return text
	}
	rest := text[end:]
	line, _, _ := strings.Cut(rest, "\n")
	if strings.TrimSpace(line) == "" {
		return rest
	}
	if body := strings.TrimLeftFunc(rest, unicode.IsSpace); strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
		return body
	}
	return text
}

// TruncateRunes caps text at limit runes, preferring to cut at a sentence or
// word boundary in the last part of the allowed range.
func TruncateRunes(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	floor := len(cut) * 3 / 4
	if idx := strings.LastIndexAny(cut, ".!?"); idx >= floor {
		return cut[:idx+1]
	}
	if idx := strings.LastIndexByte(cut, ' '); idx >= floor {
		return strings.TrimSpace(cut[:idx])
	}
	return cut
}
