package model

import "time"

// Notification type constants
const (
	NotifTypeAnnouncement     = "announcement"
	NotifTypeNews             = "news"
	NotifTypeDeadlineReminder = "deadline_reminder"
	NotifTypeCountdown        = "countdown"
)

// Notification is a record consumed by the mobile client.
type Notification struct {
	ID              int64          `json:"id"`
	Type            string         `json:"type"`
	Title           string         `json:"title"`
	Body            string         `json:"body"`
	Metadata        map[string]any `json:"metadata"`
	TargetFaculties []string       `json:"target_faculties"`
	AudienceSize    int            `json:"audience_size"`
	CreatedAt       time.Time      `json:"created_at"`
}
