package entity

import "time"

// Bill statuses
const (
	BillStatusDraft     = "DRAFT"
	BillStatusSubmitted = "SUBMITTED"
	BillStatusApproved  = "APPROVED"
	BillStatusRejected  = "REJECTED"
	BillStatusPaid      = "PAID"
	BillStatusCanceled  = "CANCELED"
)

// Bill vendor invoice, optionally tied to a BOM and/or PO.
type Bill struct {
	ID              string     `json:"id" gorm:"primaryKey;size:32"`
	Title           string     `json:"title" gorm:"size:200;not null"`
	VendorName      string     `json:"vendor_name" gorm:"size:200;index"`
	Amount          float64    `json:"amount" gorm:"type:decimal(14,2);not null;default:0"`
	Currency        string     `json:"currency" gorm:"size:20"`
	DueDate         *time.Time `json:"due_date" gorm:"type:date"`
	Notes           string     `json:"notes" gorm:"type:text"`
	Data            JSONB      `json:"data" gorm:"type:jsonb"`
	Status          string     `json:"status" gorm:"size:20;not null;index"`
	BomID           *string    `json:"bom_id" gorm:"size:32;index"`
	PurchaseOrderID *string    `json:"purchase_order_id" gorm:"size:32;index"`
	CreatedByID     *string    `json:"created_by_id" gorm:"size:32;index"`
	ApprovedByID    *string    `json:"approved_by_id" gorm:"size:32"`
	ApprovedAt      *time.Time `json:"approved_at"`
	PaidAt          *time.Time `json:"paid_at"`
	CreatedAt       time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Bill) TableName() string {
	return "bills"
}
