package entity

import "time"

// Search history entity types
const (
	SearchEntityBOM     = "BOM"
	SearchEntityCatalog = "CATALOG"
	SearchEntityPO      = "PO"
	SearchEntityRFQ     = "RFQ"
	SearchEntityQuote   = "QUOTE"
	SearchEntityOther   = "OTHER"
)

var SearchEntityTypes = []string{
	SearchEntityBOM, SearchEntityCatalog, SearchEntityPO,
	SearchEntityRFQ, SearchEntityQuote, SearchEntityOther,
}

type SearchHistory struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	UserID     string    `json:"user_id" gorm:"size:32;not null;index"`
	EntityType string    `json:"entity_type" gorm:"size:20;not null;index"`
	Query      string    `json:"query" gorm:"size:500"`
	Filters    JSONB     `json:"filters" gorm:"type:jsonb"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

func (SearchHistory) TableName() string {
	return "search_history"
}
