package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeProjectCreated   ActivityType = "project_created"
	TypeProjectUpdated   ActivityType = "project_updated"
	TypeProjectDeleted   ActivityType = "project_deleted"
	TypeProjectApproved  ActivityType = "project_approved"
	TypePaymentAttempted ActivityType = "payment_attempted"
	TypePaymentDeclined  ActivityType = "payment_declined"
	TypeProjectPaid      ActivityType = "project_paid"
	TypeReportSubmitted  ActivityType = "report_submitted"
)

// ActivityEntry represents an event in the audit trail
type ActivityEntry struct {
	ID           int64        `json:"id"`
	ProjectID    string       `json:"project_id"`
	ReportID     *string      `json:"report_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Actor        string       `json:"actor,omitempty"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
