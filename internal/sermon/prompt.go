package sermon

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/michaelrobgrove/mb-digital-ministry/internal/genai"
)

// themes are the passages a weekly sermon may be drawn from.
var themes = []string{
	"a key passage from the book of Romans",
	"a key passage from the Gospel of John",
	"the concept of faith as described in the book of Hebrews",
	"a parable from the Gospel of Luke",
	"the theme of grace in the book of Ephesians",
	"a Psalm of praise and its meaning for today's believer",
	"the importance of fellowship from the book of Acts",
}

func randomTheme() string {
	return themes[rand.IntN(len(themes))]
}

const promptTemplate = `You are Pastor AIden, an AI assistant writing the weekly sermon for a Baptist resource website. ` +
	`Your theology must align with Southern Baptist and Independent Baptist beliefs, and every scripture reference must use the King James Version. ` +
	`Write a full expositional sermon of approximately 2,500 words based on %s. ` +
	`Structure it with a clear introduction, 3-4 main points with sub-points, and a concluding call to action or reflection. ` +
	`Respond ONLY with a JSON object of this shape: ` +
	`{"topic": "a short, engaging topic (e.g. 'The Power of Grace')", ` +
	`"title": "a formal sermon title (e.g. 'Unwavering Hope in Romans 8')", ` +
	`"text": "the full sermon, with a blank line (\\n\\n) between paragraphs"}`

func buildPrompt(theme string) string {
	return fmt.Sprintf(promptTemplate, theme)
}

// draft is the JSON document the model must return.
type draft struct {
	Topic string `json:"topic"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

var errMalformedDraft = errors.New("sermon: malformed model output")

// parseDraft strips code fences and decodes the model output. Output that is
// not valid JSON, or lacks a title or text, is rejected.
func parseDraft(raw string) (draft, error) {
	var out draft
	if errUnmarshal := json.Unmarshal([]byte(genai.StripCodeFences(raw)), &out); errUnmarshal != nil {
		return draft{}, fmt.Errorf("%w: %v", errMalformedDraft, errUnmarshal)
	}
	out.Topic = strings.TrimSpace(out.Topic)
	out.Title = strings.TrimSpace(out.Title)
	out.Text = strings.TrimSpace(out.Text)
	if out.Title == "" || out.Text == "" {
		return draft{}, fmt.Errorf("%w: missing title or text", errMalformedDraft)
	}
	return out, nil
}
