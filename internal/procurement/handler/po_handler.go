package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
)

type PurchaseOrderHandler struct {
	svc *service.PurchaseOrderService
}

func NewPurchaseOrderHandler(svc *service.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{svc: svc}
}

// List GET /purchase-orders
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	created, ok := timeRange(c, "created")
	if !ok {
		return
	}
	updated, ok := timeRange(c, "updated")
	if !ok {
		return
	}
	page := GetPagination(c)
	pos, total, err := h.svc.List(c.Request.Context(), actorOf(c), repository.POFilter{
		Statuses: csvQuery(c, "status"),
		BomID:    c.Query("bom_id"),
		Vendor:   c.Query("vendor"),
		Category: c.Query("category"),
		Search:   searchQuery(c),
		Created:  created,
		Updated:  updated,
		Page:     page,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, pos, total, page)
}

// Get GET /purchase-orders/:id
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	po, err := h.svc.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, po)
}

// Create POST /purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var input service.POInput
	if !bind(c, &input) {
		return
	}
	po, err := h.svc.Create(c.Request.Context(), actorOf(c), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, po)
}

// Update PATCH /purchase-orders/:id
func (h *PurchaseOrderHandler) Update(c *gin.Context) {
	var input service.POInput
	if !bind(c, &input) {
		return
	}
	po, err := h.svc.Update(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, po)
}

// Delete DELETE /purchase-orders/:id
func (h *PurchaseOrderHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// AddItem POST /purchase-orders/:id/items
func (h *PurchaseOrderHandler) AddItem(c *gin.Context) {
	var input service.POItemInput
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

// MarkSent POST /purchase-orders/:id/mark-sent
func (h *PurchaseOrderHandler) MarkSent(c *gin.Context) {
	po, err := h.svc.MarkSent(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, po)
}

// Cancel POST /purchase-orders/:id/cancel
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	po, err := h.svc.Cancel(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, po)
}

// Receive POST /purchase-orders/:id/receive
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	var input service.ReceiveInput
	if !bind(c, &input) {
		return
	}
	result, err := h.svc.Receive(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, result)
}
