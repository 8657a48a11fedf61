package entity

import "time"

// Asset statuses
const (
	AssetStatusActive      = "ACTIVE"
	AssetStatusTransferred = "TRANSFERRED"
	AssetStatusDisposed    = "DISPOSED"
)

// Asset inventory created from a fully received BOM or PO line.
type Asset struct {
	ID                  string    `json:"id" gorm:"primaryKey;size:32"`
	SourceBomItemID     *string   `json:"source_bom_item_id" gorm:"size:32;uniqueIndex"`
	SourcePOItemID      *string   `json:"source_po_item_id" gorm:"column:source_po_item_id;size:32;uniqueIndex"`
	CreatedByID         *string   `json:"created_by_id" gorm:"size:32;index"`
	Name                string    `json:"name" gorm:"size:300;not null"`
	Description         string    `json:"description" gorm:"type:text"`
	Category            string    `json:"category" gorm:"size:200;index"`
	Vendor              string    `json:"vendor" gorm:"size:200"`
	Quantity            float64   `json:"quantity" gorm:"type:decimal(12,3);not null"`
	TransferredQuantity float64   `json:"transferred_quantity" gorm:"type:decimal(12,3);not null;default:0"`
	Unit                string    `json:"unit" gorm:"size:50"`
	Status              string    `json:"status" gorm:"size:20;not null;index"`
	Data                JSONB     `json:"data" gorm:"type:jsonb"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	SourceBomItem *BomItem           `json:"-" gorm:"foreignKey:SourceBomItemID"`
	SourcePOItem  *PurchaseOrderItem `json:"-" gorm:"foreignKey:SourcePOItemID"`
}

func (Asset) TableName() string {
	return "assets"
}

// AvailableQuantity quantity not yet moved to a partner.
func (a *Asset) AvailableQuantity() float64 {
	return RoundQuantity(a.Quantity - a.TransferredQuantity)
}
