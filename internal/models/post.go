package models

import "time"

// Post is a blog post, written by an admin or generated.
type Post struct {
	ID        string    `json:"id"`                 // Random id.
	Title     string    `json:"title"`              // Post title.
	Content   string    `json:"content"`            // Markdown or HTML body.
	Tags      []string  `json:"tags"`               // Ordered tags.
	Slug      string    `json:"slug"`               // URL slug derived from the title.
	ImageKey  string    `json:"imageKey,omitempty"` // Optional image reference.
	CreatedAt time.Time `json:"createdAt"`          // Creation time (UTC).
	Generated bool      `json:"generated"`          // True for AI generated posts.
}
