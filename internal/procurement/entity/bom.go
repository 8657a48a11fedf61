package entity

import "time"

// BOM statuses
const (
	BomStatusDraft           = "DRAFT"
	BomStatusSignoffPending  = "SIGNOFF_PENDING"
	BomStatusApprovalPending = "APPROVAL_PENDING"
	BomStatusApproved        = "APPROVED"
	BomStatusNeedsChanges    = "NEEDS_CHANGES"
	BomStatusOrdered         = "ORDERED"
	BomStatusReceiving       = "RECEIVING"
	BomStatusCompleted       = "COMPLETED"
	BomStatusCanceled        = "CANCELED"
)

// Item signoff states
const (
	SignoffNone         = "NONE"
	SignoffRequested    = "REQUESTED"
	SignoffApproved     = "APPROVED"
	SignoffNeedsChanges = "NEEDS_CHANGES"
	SignoffCanceled     = "CANCELED"
)

// Bom bill of materials, a purchase request with line items.
type Bom struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	OwnerID       string    `json:"owner_id" gorm:"size:32;not null;index"`
	TemplateID    *string   `json:"template_id" gorm:"size:32;index"`
	Title         string    `json:"title" gorm:"size:200;not null"`
	Project       string    `json:"project" gorm:"size:200;index"`
	Status        string    `json:"status" gorm:"size:30;not null;index"`
	Data          JSONB     `json:"data" gorm:"type:jsonb"`
	CancelComment string    `json:"cancel_comment" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"index"`

	Owner         *User             `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Template      *BomTemplate      `json:"template,omitempty" gorm:"foreignKey:TemplateID"`
	Items         []BomItem         `json:"items,omitempty" gorm:"foreignKey:BomID"`
	Collaborators []BomCollaborator `json:"collaborators,omitempty" gorm:"foreignKey:BomID"`
}

func (Bom) TableName() string {
	return "boms"
}

// BomItem BOM line item.
type BomItem struct {
	ID          string   `json:"id" gorm:"primaryKey;size:32"`
	BomID       string   `json:"bom_id" gorm:"size:32;not null;index"`
	Name        string   `json:"name" gorm:"size:300;not null"`
	Description string   `json:"description" gorm:"type:text"`
	Quantity    float64  `json:"quantity" gorm:"type:decimal(12,3);not null"`
	Unit        string   `json:"unit" gorm:"size:50"`
	Currency    string   `json:"currency" gorm:"size:20"`
	UnitPrice   *float64 `json:"unit_price" gorm:"type:decimal(14,4)"`
	TaxPercent  *float64 `json:"tax_percent" gorm:"type:decimal(6,3)"`
	Vendor      string   `json:"vendor" gorm:"size:200"`
	Category    string   `json:"category" gorm:"size:200"`
	Link        string   `json:"link" gorm:"size:500"`
	Notes       string   `json:"notes" gorm:"type:text"`
	Data        JSONB    `json:"data" gorm:"type:jsonb"`

	// signoff
	SignoffAssigneeID *string `json:"signoff_assignee_id" gorm:"size:32;index"`
	SignoffStatus     string  `json:"signoff_status" gorm:"size:20;not null;index"`
	SignoffComment    string  `json:"signoff_comment" gorm:"type:text"`

	// ordering and receiving
	OrderedAt        *time.Time `json:"ordered_at"`
	ETADate          *time.Time `json:"eta_date" gorm:"type:date;index"`
	ReceivedQuantity float64    `json:"received_quantity" gorm:"type:decimal(12,3);not null;default:0"`
	ReceivedAt       *time.Time `json:"received_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SignoffAssignee *User `json:"signoff_assignee,omitempty" gorm:"foreignKey:SignoffAssigneeID"`
}

func (BomItem) TableName() string {
	return "bom_items"
}

// IsFullyReceived received quantity has reached the ordered quantity.
func (i *BomItem) IsFullyReceived() bool {
	return QuantityReached(i.ReceivedQuantity, i.Quantity)
}

// BomCollaborator user allowed to edit someone else's BOM.
type BomCollaborator struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	BomID     string    `json:"bom_id" gorm:"size:32;not null;uniqueIndex:idx_bom_collaborator"`
	UserID    string    `json:"user_id" gorm:"size:32;not null;uniqueIndex:idx_bom_collaborator"`
	AddedByID *string   `json:"added_by_id" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (BomCollaborator) TableName() string {
	return "bom_collaborators"
}

// BomEvent audit trail entry.
type BomEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	BomID     string    `json:"bom_id" gorm:"size:32;not null;index"`
	ActorID   *string   `json:"actor_id" gorm:"size:32;index"`
	EventType string    `json:"event_type" gorm:"size:100;not null;index"`
	Message   string    `json:"message" gorm:"type:text"`
	Data      JSONB     `json:"data" gorm:"type:jsonb"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	Actor *User `json:"actor,omitempty" gorm:"foreignKey:ActorID"`
}

func (BomEvent) TableName() string {
	return "bom_events"
}

// BomTemplate reusable schema. A nil owner marks a global template.
type BomTemplate struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	OwnerID     *string   `json:"owner_id" gorm:"size:32;index"`
	Name        string    `json:"name" gorm:"size:200;not null"`
	Description string    `json:"description" gorm:"type:text"`
	Schema      JSONB     `json:"schema" gorm:"type:jsonb"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (BomTemplate) TableName() string {
	return "bom_templates"
}

// IsGlobal template is visible to everyone.
func (t *BomTemplate) IsGlobal() bool {
	return t.OwnerID == nil
}
