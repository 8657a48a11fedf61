package entity

import "time"

// Attachment uploaded file, optionally linked to a BOM, PO or bill.
type Attachment struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	OwnerID         string    `json:"owner_id" gorm:"size:32;not null;index"`
	StorageKey      string    `json:"-" gorm:"size:500;not null"`
	FileName        string    `json:"file_name" gorm:"size:255;not null"`
	ContentType     string    `json:"content_type" gorm:"size:150"`
	SizeBytes       int64     `json:"size_bytes"`
	BomID           *string   `json:"bom_id" gorm:"size:32;index"`
	PurchaseOrderID *string   `json:"purchase_order_id" gorm:"size:32;index"`
	BillID          *string   `json:"bill_id" gorm:"size:32;index"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}
