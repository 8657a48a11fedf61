package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories procurement repository set.
type Repositories struct {
	db           *gorm.DB
	User         *UserRepository
	Bom          *BomRepository
	Approval     *ApprovalRepository
	PO           *PORepository
	Asset        *AssetRepository
	Transfer     *TransferRepository
	Notification *NotificationRepository
	Attachment   *AttachmentRepository
	Catalog      *CatalogRepository
	Search       *SearchRepository
	Feedback     *FeedbackRepository
	Bill         *BillRepository
}

// NewRepositories creates the repository set on db.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		User:         NewUserRepository(db),
		Bom:          NewBomRepository(db),
		Approval:     NewApprovalRepository(db),
		PO:           NewPORepository(db),
		Asset:        NewAssetRepository(db),
		Transfer:     NewTransferRepository(db),
		Notification: NewNotificationRepository(db),
		Attachment:   NewAttachmentRepository(db),
		Catalog:      NewCatalogRepository(db),
		Search:       NewSearchRepository(db),
		Feedback:     NewFeedbackRepository(db),
		Bill:         NewBillRepository(db),
	}
}

// DB exposes the underlying handle for health checks.
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// Transaction runs fn with a repository set bound to a single transaction.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// Page pagination window.
type Page struct {
	Page     int
	PageSize int
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	if p.PageSize <= 0 {
		return q
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return q.Offset((page - 1) * p.PageSize).Limit(p.PageSize)
}

// TimeRange inclusive bounds, either may be nil.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

func (tr TimeRange) apply(q *gorm.DB, column string) *gorm.DB {
	if tr.From != nil {
		q = q.Where(column+" >= ?", *tr.From)
	}
	if tr.To != nil {
		q = q.Where(column+" <= ?", *tr.To)
	}
	return q
}

// contains builds a case-insensitive LIKE pattern.
func contains(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
	return "%" + s + "%"
}

// ilike portable case-insensitive match on column.
func ilike(column string) string {
	return "LOWER(" + column + ") LIKE ? ESCAPE '\\'"
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
