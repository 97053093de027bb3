package domain

import "time"

// ContactInfo is a completed contact record handed to the submission service.
// Company and Phone are nil when the visitor skipped them.
type ContactInfo struct {
	Name    string  `json:"name"`
	Company *string `json:"company,omitempty"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone,omitempty"`
}

// ContactDraft accumulates contact fields while the form is in progress.
type ContactDraft struct {
	Name    string  `json:"name,omitempty"`
	Company *string `json:"company,omitempty"`
	Email   string  `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

// Complete returns true once the required fields are present.
func (d ContactDraft) Complete() bool {
	return d.Name != "" && d.Email != ""
}

// Info converts the draft into a contact record.
func (d ContactDraft) Info() ContactInfo {
	return ContactInfo{
		Name:    d.Name,
		Company: d.Company,
		Email:   d.Email,
		Phone:   d.Phone,
	}
}

// LeadStatus tracks delivery of a recorded lead.
type LeadStatus string

const (
	LeadPending   LeadStatus = "pending"
	LeadDelivered LeadStatus = "delivered"
	LeadFailed    LeadStatus = "failed"
	LeadRecorded  LeadStatus = "recorded"
)

// Lead is a persisted contact submission.
type Lead struct {
	ID        int64       `json:"id"`
	VisitorID string      `json:"visitor_id,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Contact   ContactInfo `json:"contact"`
	Status    LeadStatus  `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
