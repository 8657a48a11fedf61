package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
)

type ApprovalHandler struct {
	svc *service.ApprovalService
}

func NewApprovalHandler(svc *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{svc: svc}
}

// List GET /procurement-approvals
func (h *ApprovalHandler) List(c *gin.Context) {
	page := GetPagination(c)
	approvals, total, err := h.svc.List(c.Request.Context(), actorOf(c), repository.ApprovalFilter{
		Statuses:  csvQuery(c, "status"),
		BomID:     c.Query("bom_id"),
		RequestID: c.Query("request_id"),
		Page:      page,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, approvals, total, page)
}

// Decide POST /procurement-approvals/:id/decide
func (h *ApprovalHandler) Decide(c *gin.Context) {
	var input service.ApprovalDecision
	if !bind(c, &input) {
		return
	}
	approval, err := h.svc.Decide(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, approval)
}

// ============================================================
// Receiving against BOM lines
// ============================================================

type ReceivingHandler struct {
	svc *service.ReceivingService
}

func NewReceivingHandler(svc *service.ReceivingService) *ReceivingHandler {
	return &ReceivingHandler{svc: svc}
}

// MarkOrdered POST /procurement-actions/:bomId/mark-ordered
func (h *ReceivingHandler) MarkOrdered(c *gin.Context) {
	var input service.MarkOrderedInput
	if !bindOptional(c, &input) {
		return
	}
	updated, err := h.svc.MarkOrdered(c.Request.Context(), actorOf(c), c.Param("bomId"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"updated": updated})
}

// Receive POST /procurement-actions/:bomId/receive
func (h *ReceivingHandler) Receive(c *gin.Context) {
	var input service.ReceiveInput
	if !bind(c, &input) {
		return
	}
	result, err := h.svc.Receive(c.Request.Context(), actorOf(c), c.Param("bomId"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, result)
}
