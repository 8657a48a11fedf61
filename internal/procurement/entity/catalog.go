package entity

import "time"

// CatalogItem reusable product entry for filling BOM lines.
type CatalogItem struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	OwnerID     string    `json:"owner_id" gorm:"size:32;not null;index"`
	Name        string    `json:"name" gorm:"size:300;not null;index"`
	Description string    `json:"description" gorm:"type:text"`
	Category    string    `json:"category" gorm:"size:200;index"`
	VendorName  string    `json:"vendor_name" gorm:"size:200;index"`
	VendorURL   string    `json:"vendor_url" gorm:"size:500"`
	Currency    string    `json:"currency" gorm:"size:20"`
	UnitPrice   *float64  `json:"unit_price" gorm:"type:decimal(14,4)"`
	TaxPercent  *float64  `json:"tax_percent" gorm:"type:decimal(6,3)"`
	Data        JSONB     `json:"data" gorm:"type:jsonb"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (CatalogItem) TableName() string {
	return "catalog_items"
}
