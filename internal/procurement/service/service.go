package service

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/uthejd-slx/procura-backend/internal/config"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/shared/storage"
)

// Mailer sends plain-text mail. A disabled mailer is skipped silently.
type Mailer interface {
	Enabled() bool
	SendMail(ctx context.Context, to []string, subject, body string) error
}

// Publisher pushes live events to a user's open streams.
type Publisher interface {
	PublishToUser(userID, eventType string, payload interface{})
}

// Services procurement service set.
type Services struct {
	Auth           *AuthService
	Users          *UserService
	Notifications  *NotificationService
	Boms           *BomService
	Templates      *TemplateService
	Approvals      *ApprovalService
	Receiving      *ReceivingService
	PurchaseOrders *PurchaseOrderService
	Assets         *AssetService
	Transfers      *TransferService
	Attachments    *AttachmentService
	Catalog        *CatalogService
	Searches       *SearchService
	Feedback       *FeedbackService
	Bills          *BillService
}

// NewServices wires the service set. mailer and publisher may be nil.
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, store storage.Store, mailer Mailer, publisher Publisher) *Services {
	notifications := NewNotificationService(repos, mailer, publisher, cfg)
	assets := NewAssetService(repos)

	return &Services{
		Auth:           NewAuthService(repos, rdb, cfg, mailer),
		Users:          NewUserService(repos),
		Notifications:  notifications,
		Boms:           NewBomService(repos, notifications, cfg.Workflow),
		Templates:      NewTemplateService(repos),
		Approvals:      NewApprovalService(repos, notifications),
		Receiving:      NewReceivingService(repos, assets),
		PurchaseOrders: NewPurchaseOrderService(repos, assets, cfg.Workflow),
		Assets:         assets,
		Transfers:      NewTransferService(repos, assets),
		Attachments:    NewAttachmentService(repos, store, cfg.Storage.AttachmentMaxMB),
		Catalog:        NewCatalogService(repos),
		Searches:       NewSearchService(repos),
		Feedback:       NewFeedbackService(repos),
		Bills:          NewBillService(repos),
	}
}
