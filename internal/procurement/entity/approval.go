package entity

import "time"

// Approval request statuses
const (
	ApprovalRequestPending      = "PENDING"
	ApprovalRequestApproved     = "APPROVED"
	ApprovalRequestNeedsChanges = "NEEDS_CHANGES"
	ApprovalRequestCanceled     = "CANCELED"
)

// Individual approval statuses
const (
	ApprovalPending      = "PENDING"
	ApprovalApproved     = "APPROVED"
	ApprovalNeedsChanges = "NEEDS_CHANGES"
)

// ProcurementApprovalRequest BOM-level gate, decided by all of its approvers.
type ProcurementApprovalRequest struct {
	ID            string     `json:"id" gorm:"primaryKey;size:32"`
	BomID         string     `json:"bom_id" gorm:"size:32;not null;index"`
	RequestedByID *string    `json:"requested_by_id" gorm:"size:32"`
	Status        string     `json:"status" gorm:"size:20;not null;index"`
	Comment       string     `json:"comment" gorm:"type:text"`
	DecidedAt     *time.Time `json:"decided_at"`
	CreatedAt     time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Approvals []ProcurementApproval `json:"approvals,omitempty" gorm:"foreignKey:RequestID"`
}

func (ProcurementApprovalRequest) TableName() string {
	return "procurement_approval_requests"
}

// ProcurementApproval one approver's vote on a request.
type ProcurementApproval struct {
	ID         string     `json:"id" gorm:"primaryKey;size:32"`
	RequestID  string     `json:"request_id" gorm:"size:32;not null;uniqueIndex:idx_request_approver"`
	ApproverID string     `json:"approver_id" gorm:"size:32;not null;uniqueIndex:idx_request_approver;index"`
	Status     string     `json:"status" gorm:"size:20;not null;index"`
	Comment    string     `json:"comment" gorm:"type:text"`
	DecidedAt  *time.Time `json:"decided_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Request  *ProcurementApprovalRequest `json:"request,omitempty" gorm:"foreignKey:RequestID"`
	Approver *User                       `json:"approver,omitempty" gorm:"foreignKey:ApproverID"`
}

func (ProcurementApproval) TableName() string {
	return "procurement_approvals"
}
