package models

import "time"

// ContactSubmission is a stored contact form message.
type ContactSubmission struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	Page       string    `json:"page,omitempty"`
	FormID     string    `json:"formId,omitempty"`
	TrackingID string    `json:"trackingId,omitempty"`
	UserAgent  string    `json:"ua,omitempty"`
	IP         string    `json:"ip,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
