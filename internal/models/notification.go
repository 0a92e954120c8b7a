// internal/models/notification.go
package models

// Notification event kinds
const (
	NotifyPending  = "pending"
	NotifyApproved = "approved"
	NotifyRejected = "rejected"
)

// Notification delivery statuses
const (
	NotificationSent     = "sent"
	NotificationFailed   = "failed"
	NotificationDisabled = "disabled"
)

type Notification struct {
	ID           string                 `json:"id"`
	SubmissionID string                 `json:"submissionId"`
	Recipient    string                 `json:"recipient"`
	Kind         string                 `json:"kind"`    // "pending", "approved", "rejected"
	Channel      string                 `json:"channel"` // "email", "sms"
	Status       string                 `json:"status"`  // "sent", "failed", "disabled"
	Payload      map[string]interface{} `json:"payload,omitempty"`
	SentAt       string                 `json:"sentAt"`
}
