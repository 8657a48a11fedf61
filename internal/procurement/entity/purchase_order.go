package entity

import "time"

// PO statuses
const (
	POStatusDraft    = "DRAFT"
	POStatusSent     = "SENT"
	POStatusPartial  = "PARTIAL"
	POStatusReceived = "RECEIVED"
	POStatusCanceled = "CANCELED"
)

// PurchaseOrder order issued to a single vendor.
type PurchaseOrder struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	BomID       *string   `json:"bom_id" gorm:"size:32;index"`
	CreatedByID *string   `json:"created_by_id" gorm:"size:32;index"`
	Status      string    `json:"status" gorm:"size:20;not null;index"`
	PONumber    string    `json:"po_number" gorm:"size:50;uniqueIndex;not null"`
	VendorName  string    `json:"vendor_name" gorm:"size:200;index"`
	Currency    string    `json:"currency" gorm:"size:20"`
	Notes       string    `json:"notes" gorm:"type:text"`
	Data        JSONB     `json:"data" gorm:"type:jsonb"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Items     []PurchaseOrderItem `json:"items,omitempty" gorm:"foreignKey:PurchaseOrderID"`
	Bom       *Bom                `json:"-" gorm:"foreignKey:BomID"`
	CreatedBy *User               `json:"created_by,omitempty" gorm:"foreignKey:CreatedByID"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderItem PO line item.
type PurchaseOrderItem struct {
	ID              string   `json:"id" gorm:"primaryKey;size:32"`
	PurchaseOrderID string   `json:"purchase_order_id" gorm:"size:32;not null;index"`
	BomItemID       *string  `json:"bom_item_id" gorm:"size:32;index"`
	Name            string   `json:"name" gorm:"size:300;not null"`
	Description     string   `json:"description" gorm:"type:text"`
	Quantity        float64  `json:"quantity" gorm:"type:decimal(12,3);not null"`
	Unit            string   `json:"unit" gorm:"size:50"`
	Currency        string   `json:"currency" gorm:"size:20"`
	UnitPrice       *float64 `json:"unit_price" gorm:"type:decimal(14,4)"`
	TaxPercent      *float64 `json:"tax_percent" gorm:"type:decimal(6,3)"`
	Vendor          string   `json:"vendor" gorm:"size:200"`
	Category        string   `json:"category" gorm:"size:200"`
	Link            string   `json:"link" gorm:"size:500"`
	Notes           string   `json:"notes" gorm:"type:text"`
	Data            JSONB    `json:"data" gorm:"type:jsonb"`

	OrderedAt        *time.Time `json:"ordered_at"`
	ETADate          *time.Time `json:"eta_date" gorm:"type:date;index"`
	ReceivedQuantity float64    `json:"received_quantity" gorm:"type:decimal(12,3);not null;default:0"`
	ReceivedAt       *time.Time `json:"received_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

func (i *PurchaseOrderItem) IsFullyReceived() bool {
	return QuantityReached(i.ReceivedQuantity, i.Quantity)
}
