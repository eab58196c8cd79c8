package models

// Moderation decisions.
const (
	ModerationApprove = "APPROVE"
	ModerationReject  = "REJECT"
)

// PrayerRecord is a published prayer wall entry.
type PrayerRecord struct {
	ID          string `json:"id"`          // Random id, also the key suffix.
	FirstName   string `json:"firstName"`   // Submitter first name.
	RequestText string `json:"requestText"` // Prayer request body.
	CreatedAt   string `json:"createdAt"`   // Equals the paired log entry timestamp.
}

// PrayerLogEntry is the audit record written for every submission.
type PrayerLogEntry struct {
	ID               string `json:"id,omitempty"`     // Store key; filled on read.
	Timestamp        string `json:"timestamp"`        // Submission time, RFC 3339 with milliseconds.
	FirstName        string `json:"firstName"`        // Submitter first name.
	RequestText      string `json:"requestText"`      // Raw submitted text.
	ModerationStatus string `json:"moderationStatus"` // APPROVE or REJECT.
	SourceIP         string `json:"sourceIp"`         // Caller network origin.
}
