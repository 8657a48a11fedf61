package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
)

type BillHandler struct {
	svc *service.BillService
}

func NewBillHandler(svc *service.BillService) *BillHandler {
	return &BillHandler{svc: svc}
}

// List GET /bills
func (h *BillHandler) List(c *gin.Context) {
	created, ok := timeRange(c, "created")
	if !ok {
		return
	}
	page := GetPagination(c)
	bills, total, err := h.svc.List(c.Request.Context(), actorOf(c), repository.BillFilter{
		Statuses:        csvQuery(c, "status"),
		Vendor:          c.Query("vendor"),
		BomID:           c.Query("bom_id"),
		PurchaseOrderID: c.Query("purchase_order_id"),
		Created:         created,
		Page:            page,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, bills, total, page)
}

// Get GET /bills/:id
func (h *BillHandler) Get(c *gin.Context) {
	bill, err := h.svc.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, bill)
}

// Create POST /bills
func (h *BillHandler) Create(c *gin.Context) {
	var input service.BillInput
	if !bind(c, &input) {
		return
	}
	bill, err := h.svc.Create(c.Request.Context(), actorOf(c), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, bill)
}

// Update PATCH /bills/:id
func (h *BillHandler) Update(c *gin.Context) {
	var input service.BillInput
	if !bind(c, &input) {
		return
	}
	bill, err := h.svc.Update(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, bill)
}

// Delete DELETE /bills/:id
func (h *BillHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

type billStep func(ctx context.Context, actor service.Actor, id string) (*entity.Bill, error)

func (h *BillHandler) step(fn billStep) gin.HandlerFunc {
	return func(c *gin.Context) {
		bill, err := fn(c.Request.Context(), actorOf(c), c.Param("id"))
		if err != nil {
			handleError(c, err)
			return
		}
		Success(c, bill)
	}
}

// Submit POST /bills/:id/submit
func (h *BillHandler) Submit(c *gin.Context) { h.step(h.svc.Submit)(c) }

// Approve POST /bills/:id/approve
func (h *BillHandler) Approve(c *gin.Context) { h.step(h.svc.Approve)(c) }

// Reject POST /bills/:id/reject
func (h *BillHandler) Reject(c *gin.Context) { h.step(h.svc.Reject)(c) }

// MarkPaid POST /bills/:id/mark-paid
func (h *BillHandler) MarkPaid(c *gin.Context) { h.step(h.svc.MarkPaid)(c) }

// Cancel POST /bills/:id/cancel
func (h *BillHandler) Cancel(c *gin.Context) { h.step(h.svc.Cancel)(c) }
