package models

import "time"

// Devotional is a generated daily devotional.
type Devotional struct {
	ID        string    `json:"id"`        // Store key.
	Date      string    `json:"date"`      // Local calendar day, YYYY-MM-DD.
	Title     string    `json:"title"`     // First Markdown heading.
	Reference string    `json:"reference"` // Scripture reference, e.g. "Proverbs 3:5".
	Verse     string    `json:"verse"`     // King James verse text.
	Markdown  string    `json:"markdown"`  // Full devotional body.
	CreatedAt time.Time `json:"createdAt"` // Generation time (UTC).
	Generated bool      `json:"generated"`
}
