package models

import "time"

// Sermon is a generated weekly sermon.
type Sermon struct {
	ID        string    `json:"id"`        // Store key.
	Title     string    `json:"title"`     // Sermon title.
	Topic     string    `json:"topic"`     // Scripture passage or theme.
	Text      string    `json:"text"`      // Full sermon text.
	AudioData *string   `json:"audioData"` // Base64 audio; nil when synthesis failed.
	CreatedAt time.Time `json:"createdAt"` // Generation time (UTC).
	Generated bool      `json:"generated"` // Always true for AI output.
}
