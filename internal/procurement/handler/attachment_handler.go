package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
	"go.uber.org/zap"
)

type AttachmentHandler struct {
	svc *service.AttachmentService
}

func NewAttachmentHandler(svc *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{svc: svc}
}

// List GET /attachments
func (h *AttachmentHandler) List(c *gin.Context) {
	page := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), actorOf(c), repository.AttachmentFilter{
		BomID:           c.Query("bom_id"),
		PurchaseOrderID: c.Query("purchase_order_id"),
		BillID:          c.Query("bill_id"),
		Page:            page,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, total, page)
}

// Get GET /attachments/:id
func (h *AttachmentHandler) Get(c *gin.Context) {
	a, err := h.svc.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, a)
}

// Upload POST /attachments (multipart "file" plus optional link ids)
func (h *AttachmentHandler) Upload(c *gin.Context) {
	// room for the multipart envelope on top of the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.svc.MaxBytes()+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required and must not exceed "+strconv.FormatInt(h.svc.MaxBytes()>>20, 10)+" MB")
		return
	}
	if header.Size > h.svc.MaxBytes() {
		BadRequest(c, fmt.Sprintf("file exceeds the %d MB limit", h.svc.MaxBytes()>>20))
		return
	}
	f, err := header.Open()
	if err != nil {
		BadRequest(c, "could not read upload")
		return
	}
	defer f.Close()

	a, err := h.svc.Upload(c.Request.Context(), actorOf(c), service.UploadInput{
		FileName:        header.Filename,
		ContentType:     header.Header.Get("Content-Type"),
		Size:            header.Size,
		Body:            f,
		BomID:           c.PostForm("bom_id"),
		PurchaseOrderID: c.PostForm("purchase_order_id"),
		BillID:          c.PostForm("bill_id"),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, a)
}

// Download GET /attachments/:id/download
func (h *AttachmentHandler) Download(c *gin.Context) {
	a, rc, err := h.svc.Open(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.FileName))
	c.Header("Content-Type", a.ContentType)
	c.Header("Content-Length", strconv.FormatInt(a.SizeBytes, 10))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		zap.L().Warn("attachment download interrupted", zap.String("id", a.ID), zap.Error(err))
	}
}

// Delete DELETE /attachments/:id
func (h *AttachmentHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}
