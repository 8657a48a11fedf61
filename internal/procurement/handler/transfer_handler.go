package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
)

type TransferHandler struct {
	svc *service.TransferService
}

func NewTransferHandler(svc *service.TransferService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// ListPartners GET /partners
func (h *TransferHandler) ListPartners(c *gin.Context) {
	page := GetPagination(c)
	partners, total, err := h.svc.ListPartners(c.Request.Context(), searchQuery(c), page)
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, partners, total, page)
}

// GetPartner GET /partners/:id
func (h *TransferHandler) GetPartner(c *gin.Context) {
	partner, err := h.svc.GetPartner(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, partner)
}

// CreatePartner POST /partners
func (h *TransferHandler) CreatePartner(c *gin.Context) {
	var input service.PartnerInput
	if !bind(c, &input) {
		return
	}
	partner, err := h.svc.CreatePartner(c.Request.Context(), actorOf(c), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, partner)
}

// UpdatePartner PATCH /partners/:id
func (h *TransferHandler) UpdatePartner(c *gin.Context) {
	var input service.PartnerInput
	if !bind(c, &input) {
		return
	}
	partner, err := h.svc.UpdatePartner(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, partner)
}

// DeletePartner DELETE /partners/:id
func (h *TransferHandler) DeletePartner(c *gin.Context) {
	if err := h.svc.DeletePartner(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// List GET /transfers
func (h *TransferHandler) List(c *gin.Context) {
	page := GetPagination(c)
	transfers, total, err := h.svc.List(c.Request.Context(), actorOf(c), repository.TransferFilter{
		Statuses:  csvQuery(c, "status"),
		PartnerID: c.Query("partner_id"),
		Page:      page,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, transfers, total, page)
}

// Get GET /transfers/:id
func (h *TransferHandler) Get(c *gin.Context) {
	transfer, err := h.svc.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, transfer)
}

// Create POST /transfers
func (h *TransferHandler) Create(c *gin.Context) {
	var input service.TransferInput
	if !bind(c, &input) {
		return
	}
	transfer, err := h.svc.Create(c.Request.Context(), actorOf(c), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, transfer)
}

// Update PATCH /transfers/:id
func (h *TransferHandler) Update(c *gin.Context) {
	var input service.TransferInput
	if !bind(c, &input) {
		return
	}
	transfer, err := h.svc.Update(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, transfer)
}

// Delete DELETE /transfers/:id
func (h *TransferHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// AddItem POST /transfers/:id/items
func (h *TransferHandler) AddItem(c *gin.Context) {
	var input service.TransferItemInput
	if !bind(c, &input) {
		return
	}
	item, err := h.svc.AddItem(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, item)
}

type transferStep func(ctx context.Context, actor service.Actor, id string) (*entity.Transfer, error)

func (h *TransferHandler) step(fn transferStep) gin.HandlerFunc {
	return func(c *gin.Context) {
		transfer, err := fn(c.Request.Context(), actorOf(c), c.Param("id"))
		if err != nil {
			handleError(c, err)
			return
		}
		Success(c, transfer)
	}
}

// Submit POST /transfers/:id/submit
func (h *TransferHandler) Submit(c *gin.Context) { h.step(h.svc.Submit)(c) }

// Approve POST /transfers/:id/approve
func (h *TransferHandler) Approve(c *gin.Context) { h.step(h.svc.Approve)(c) }

// Cancel POST /transfers/:id/cancel
func (h *TransferHandler) Cancel(c *gin.Context) { h.step(h.svc.Cancel)(c) }

// Complete POST /transfers/:id/complete
func (h *TransferHandler) Complete(c *gin.Context) { h.step(h.svc.Complete)(c) }
