package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
)

type BomHandler struct {
	svc *service.BomService
	pos *service.PurchaseOrderService
}

func NewBomHandler(svc *service.BomService, pos *service.PurchaseOrderService) *BomHandler {
	return &BomHandler{svc: svc, pos: pos}
}

// List GET /boms
func (h *BomHandler) List(c *gin.Context) {
	created, ok := timeRange(c, "created")
	if !ok {
		return
	}
	updated, ok := timeRange(c, "updated")
	if !ok {
		return
	}
	page := GetPagination(c)
	boms, total, err := h.svc.List(c.Request.Context(), actorOf(c), repository.BomFilter{
		Statuses:   csvQuery(c, "status"),
		Search:     searchQuery(c),
		Project:    c.Query("project"),
		OwnerID:    c.Query("owner_id"),
		TemplateID: c.Query("template_id"),
		Created:    created,
		Updated:    updated,
		Page:       page,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, boms, total, page)
}

// Create POST /boms
func (h *BomHandler) Create(c *gin.Context) {
	var input service.CreateBomInput
	if !bind(c, &input) {
		return
	}
	bom, err := h.svc.Create(c.Request.Context(), actorOf(c), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, bom)
}

// Get GET /boms/:id
func (h *BomHandler) Get(c *gin.Context) {
	bom, err := h.svc.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, bom)
}

// Update PATCH /boms/:id
func (h *BomHandler) Update(c *gin.Context) {
	var input service.UpdateBomInput
	if !bind(c, &input) {
		return
	}
	bom, err := h.svc.Update(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, bom)
}

// Delete DELETE /boms/:id
func (h *BomHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// AddItem POST /boms/:id/items
func (h *BomHandler) AddItem(c *gin.Context) {
	var input service.BomItemInput
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

type commentRequest struct {
	Comment string `json:"comment"`
}

// Cancel POST /boms/:id/cancel
func (h *BomHandler) Cancel(c *gin.Context) {
	var req commentRequest
	if !bindOptional(c, &req) {
		return
	}
	bom, err := h.svc.Cancel(c.Request.Context(), actorOf(c), c.Param("id"), req.Comment)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, bom)
}

// RequestSignoff POST /boms/:id/request-signoff
func (h *BomHandler) RequestSignoff(c *gin.Context) {
	var input service.SignoffRequestInput
	if !bind(c, &input) {
		return
	}
	ids, err := h.svc.RequestSignoff(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"item_ids": ids})
}

// RequestProcurementApproval POST /boms/:id/request-procurement-approval
func (h *BomHandler) RequestProcurementApproval(c *gin.Context) {
	var input service.ApprovalRequestInput
	if !bind(c, &input) {
		return
	}
	req, err := h.svc.RequestProcurementApproval(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, req)
}

// ListCollaborators GET /boms/:id/collaborators
func (h *BomHandler) ListCollaborators(c *gin.Context) {
	collaborators, err := h.svc.ListCollaborators(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": collaborators})
}

type collaboratorRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// AddCollaborator POST /boms/:id/collaborators
func (h *BomHandler) AddCollaborator(c *gin.Context) {
	var req collaboratorRequest
	if !bind(c, &req) {
		return
	}
	collaborator, err := h.svc.AddCollaborator(c.Request.Context(), actorOf(c), c.Param("id"), req.UserID)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, collaborator)
}

// RemoveCollaborator DELETE /boms/:id/collaborators/:userId
func (h *BomHandler) RemoveCollaborator(c *gin.Context) {
	if err := h.svc.RemoveCollaborator(c.Request.Context(), actorOf(c), c.Param("id"), c.Param("userId")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Export GET /boms/:id/export?format=pdf|csv|json|xlsx
func (h *BomHandler) Export(c *gin.Context) {
	file, err := h.svc.Export(c.Request.Context(), actorOf(c), c.Param("id"), c.Query("format"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

// Import POST /boms/:id/import (multipart "file")
func (h *BomHandler) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}
	f, err := header.Open()
	if err != nil {
		BadRequest(c, "could not read upload")
		return
	}
	defer f.Close()

	result, err := h.svc.Import(c.Request.Context(), actorOf(c), c.Param("id"), header.Filename, f)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, result)
}

// CreatePurchaseOrders POST /boms/:id/purchase-orders
func (h *BomHandler) CreatePurchaseOrders(c *gin.Context) {
	var input service.FromBomInput
	if !bindOptional(c, &input) {
		return
	}
	pos, err := h.pos.CreateFromBom(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, gin.H{"items": pos})
}

// ListEvents GET /bom-events
func (h *BomHandler) ListEvents(c *gin.Context) {
	created, ok := timeRange(c, "created")
	if !ok {
		return
	}
	ordering := c.DefaultQuery("ordering", "-created_at")
	if ordering != "created_at" && ordering != "-created_at" {
		BadRequest(c, "ordering must be created_at or -created_at")
		return
	}
	page := GetPagination(c)
	events, total, err := h.svc.ListEvents(c.Request.Context(), actorOf(c), repository.BomEventFilter{
		BomID:     c.Query("bom_id"),
		ActorID:   c.Query("actor_id"),
		EventType: c.Query("event_type"),
		Created:   created,
		Ascending: ordering == "created_at",
		Page:      page,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, events, total, page)
}

// ============================================================
// BOM items
// ============================================================

type BomItemHandler struct {
	svc *service.BomService
}

func NewBomItemHandler(svc *service.BomService) *BomItemHandler {
	return &BomItemHandler{svc: svc}
}

// List GET /bom-items
func (h *BomItemHandler) List(c *gin.Context) {
	page := GetPagination(c)
	items, total, err := h.svc.ListItems(c.Request.Context(), actorOf(c), repository.BomItemFilter{
		BomID:           c.Query("bom_id"),
		AssigneeID:      c.Query("assignee_id"),
		SignoffStatuses: csvQuery(c, "signoff_status"),
		Search:          searchQuery(c),
		Page:            page,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, total, page)
}

// Update PATCH /bom-items/:id
func (h *BomItemHandler) Update(c *gin.Context) {
	var patch service.BomItemPatch
	if !bind(c, &patch) {
		return
	}
	item, err := h.svc.UpdateItem(c.Request.Context(), actorOf(c), c.Param("id"), patch)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// Delete DELETE /bom-items/:id
func (h *BomItemHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteItem(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// Signoff POST /bom-items/:id/signoff
func (h *BomItemHandler) Signoff(c *gin.Context) {
	var input service.SignoffDecision
	if !bind(c, &input) {
		return
	}
	item, err := h.svc.DecideSignoff(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// ============================================================
// BOM templates
// ============================================================

type TemplateHandler struct {
	svc *service.TemplateService
}

func NewTemplateHandler(svc *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// List GET /bom-templates
func (h *TemplateHandler) List(c *gin.Context) {
	page := GetPagination(c)
	templates, total, err := h.svc.List(c.Request.Context(), actorOf(c), page)
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, templates, total, page)
}

// Get GET /bom-templates/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, t)
}

// Create POST /bom-templates
func (h *TemplateHandler) Create(c *gin.Context) {
	var input service.TemplateInput
	if !bind(c, &input) {
		return
	}
	t, err := h.svc.Create(c.Request.Context(), actorOf(c), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, t)
}

// Update PATCH /bom-templates/:id; a private copy of a global template is
// answered with 201.
func (h *TemplateHandler) Update(c *gin.Context) {
	var input service.TemplateInput
	if !bind(c, &input) {
		return
	}
	t, copied, err := h.svc.Update(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	if copied {
		Created(c, t)
		return
	}
	Success(c, t)
}

// Delete DELETE /bom-templates/:id
func (h *TemplateHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}
