// internal/models/submission.go
package models

// Approval statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Announcement platforms
const (
	PlatformEmailBlast    = "Email Blast"
	PlatformBulletin      = "Bulletin"
	PlatformChurchScreens = "Church Screens"
)

// ValidStatus reports whether s is a known approval status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Submission is an announcement request created via the public form.
// requiresApproval is snapshotted at creation time and never changes, even if
// the ministry's directory entry is edited later.
type Submission struct {
	ID string `json:"id"`

	SubmitterName  string `json:"submitterName"`
	SubmitterEmail string `json:"submitterEmail"`

	Ministry         string   `json:"ministry"`
	EventDate        string   `json:"eventDate,omitempty"`
	EventTime        string   `json:"eventTime,omitempty"`
	PromotionStart   string   `json:"promotionStart,omitempty"`
	Platforms        []string `json:"platforms"`
	AnnouncementBody string   `json:"announcementBody"`
	AddToCalendar    bool     `json:"addToCalendar"`
	FileLinks        []string `json:"fileLinks,omitempty"`

	ApprovalStatus      string  `json:"approvalStatus"`
	RequiresApproval    bool    `json:"requiresApproval"`
	EditorialReview     bool    `json:"editorialReview"`
	MinistryID          *string `json:"ministryId,omitempty"`
	ApprovalCoordinator *string `json:"approvalCoordinator,omitempty"`
	SubmittedAt         string  `json:"submittedAt"`
	ApprovedBy          *string `json:"approvedBy,omitempty"`
	ApprovedAt          *string `json:"approvedAt,omitempty"`
	RejectionReason     *string `json:"rejectionReason,omitempty"`
}

// SubmissionDraft is the public form payload before routing decides its
// initial workflow state.
type SubmissionDraft struct {
	SubmitterName    string   `json:"name"`
	SubmitterEmail   string   `json:"email"`
	Ministry         string   `json:"ministry"`
	EventDate        string   `json:"eventDate,omitempty"`
	EventTime        string   `json:"eventTime,omitempty"`
	PromotionStart   string   `json:"promotionStart,omitempty"`
	Platforms        []string `json:"platforms"`
	AnnouncementBody string   `json:"announcementBody"`
	AddToCalendar    bool     `json:"addToCalendar"`
	FileLinks        []string `json:"fileLinks,omitempty"`
}
