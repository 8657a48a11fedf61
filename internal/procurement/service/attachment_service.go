package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/shared/storage"
	"go.uber.org/zap"
)

// AttachmentService uploaded files and their links to BOMs, POs and bills.
type AttachmentService struct {
	repos    *repository.Repositories
	store    storage.Store
	maxBytes int64
}

func NewAttachmentService(repos *repository.Repositories, store storage.Store, maxMB int64) *AttachmentService {
	if maxMB <= 0 {
		maxMB = 20
	}
	return &AttachmentService{repos: repos, store: store, maxBytes: maxMB << 20}
}

// MaxBytes upload size limit.
func (s *AttachmentService) MaxBytes() int64 {
	return s.maxBytes
}

// UploadInput file stream plus optional link ids.
type UploadInput struct {
	FileName        string
	ContentType     string
	Size            int64
	Body            io.Reader
	BomID           string
	PurchaseOrderID string
	BillID          string
}

func (s *AttachmentService) List(ctx context.Context, actor Actor, f repository.AttachmentFilter) ([]entity.Attachment, int64, error) {
	f.OwnerID = actor.visibleTo()
	return s.repos.Attachment.List(ctx, f)
}

// canAccess the uploader, staff, and whoever owns the linked records.
func (s *AttachmentService) canAccess(ctx context.Context, actor Actor, a *entity.Attachment) bool {
	if a.OwnerID == actor.ID || actor.SeesAll() {
		return true
	}
	if a.BomID != nil && s.ownsBom(ctx, actor, *a.BomID) {
		return true
	}
	if a.PurchaseOrderID != nil && s.ownsPO(ctx, actor, *a.PurchaseOrderID) {
		return true
	}
	if a.BillID != nil {
		bill, err := s.repos.Bill.FindByID(ctx, *a.BillID)
		if err != nil {
			return false
		}
		if deref(bill.CreatedByID) == actor.ID {
			return true
		}
		if bill.BomID != nil && s.ownsBom(ctx, actor, *bill.BomID) {
			return true
		}
		if bill.PurchaseOrderID != nil {
			po, err := s.repos.PO.FindByID(ctx, *bill.PurchaseOrderID)
			if err == nil && deref(po.CreatedByID) == actor.ID {
				return true
			}
		}
	}
	return false
}

func (s *AttachmentService) ownsBom(ctx context.Context, actor Actor, bomID string) bool {
	bom, err := s.repos.Bom.FindByID(ctx, bomID)
	return err == nil && bom.OwnerID == actor.ID
}

func (s *AttachmentService) ownsPO(ctx context.Context, actor Actor, poID string) bool {
	po, err := s.repos.PO.FindByID(ctx, poID)
	if err != nil {
		return false
	}
	return deref(po.CreatedByID) == actor.ID || (po.Bom != nil && po.Bom.OwnerID == actor.ID)
}

func (s *AttachmentService) Get(ctx context.Context, actor Actor, id string) (*entity.Attachment, error) {
	a, err := s.repos.Attachment.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "attachment")
	}
	if !s.canAccess(ctx, actor, a) {
		return nil, notFound("attachment")
	}
	return a, nil
}

// checkLinks verifies that linked records exist and are visible to the actor.
func (s *AttachmentService) checkLinks(ctx context.Context, actor Actor, in UploadInput) error {
	if in.BomID != "" {
		bom, err := s.repos.Bom.FindByID(ctx, in.BomID)
		if err != nil {
			return lookup(err, "BOM")
		}
		ok, err := canViewBom(ctx, s.repos, actor, bom)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("BOM")
		}
	}
	if in.PurchaseOrderID != "" {
		po, err := s.repos.PO.FindByID(ctx, in.PurchaseOrderID)
		if err != nil {
			return lookup(err, "purchase order")
		}
		if !canViewPO(actor, po) {
			return notFound("purchase order")
		}
	}
	if in.BillID != "" {
		if _, err := s.repos.Bill.FindByID(ctx, in.BillID); err != nil {
			return lookup(err, "bill")
		}
	}
	return nil
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

// Upload stores the file and records it.
func (s *AttachmentService) Upload(ctx context.Context, actor Actor, in UploadInput) (*entity.Attachment, error) {
	if in.Body == nil {
		return nil, invalid("file is required")
	}
	if in.Size > s.maxBytes {
		return nil, invalid("file exceeds the %d MB limit", s.maxBytes>>20)
	}
	if err := s.checkLinks(ctx, actor, in); err != nil {
		return nil, err
	}

	name := sanitizeFileName(in.FileName)
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	a := &entity.Attachment{
		ID:              entity.NewID(),
		OwnerID:         actor.ID,
		FileName:        name,
		ContentType:     contentType,
		SizeBytes:       in.Size,
		BomID:           strPtr(in.BomID),
		PurchaseOrderID: strPtr(in.PurchaseOrderID),
		BillID:          strPtr(in.BillID),
	}
	a.StorageKey = fmt.Sprintf("attachments/%s/%s/%s", time.Now().UTC().Format("2006/01"), a.ID, name)

	if err := s.store.Put(ctx, a.StorageKey, in.Body, in.Size, contentType); err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}
	if err := s.repos.Attachment.Create(ctx, a); err != nil {
		if derr := s.store.Delete(ctx, a.StorageKey); derr != nil {
			zap.L().Warn("orphaned attachment object", zap.String("key", a.StorageKey), zap.Error(derr))
		}
		return nil, err
	}
	return a, nil
}

// Open returns the attachment and its content. The caller closes the reader.
func (s *AttachmentService) Open(ctx context.Context, actor Actor, id string) (*entity.Attachment, io.ReadCloser, error) {
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, a.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open attachment: %w", err)
	}
	return a, rc, nil
}

func (s *AttachmentService) Delete(ctx context.Context, actor Actor, id string) error {
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if a.OwnerID != actor.ID && !actor.IsAdmin() {
		return forbidden("only the uploader can delete this attachment")
	}
	if err := s.repos.Attachment.Delete(ctx, a.ID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, a.StorageKey); err != nil {
		zap.L().Warn("delete attachment object", zap.String("key", a.StorageKey), zap.Error(err))
	}
	return nil
}
