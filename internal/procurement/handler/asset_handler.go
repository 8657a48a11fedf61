package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
)

type AssetHandler struct {
	svc *service.AssetService
}

func NewAssetHandler(svc *service.AssetService) *AssetHandler {
	return &AssetHandler{svc: svc}
}

// List GET /assets
func (h *AssetHandler) List(c *gin.Context) {
	page := GetPagination(c)
	assets, total, err := h.svc.List(c.Request.Context(), actorOf(c), repository.AssetFilter{
		Statuses:        csvQuery(c, "status"),
		BomID:           c.Query("bom_id"),
		PurchaseOrderID: c.Query("purchase_order_id"),
		Category:        c.Query("category"),
		Vendor:          c.Query("vendor"),
		Search:          searchQuery(c),
		Page:            page,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, assets, total, page)
}

// Get GET /assets/:id
func (h *AssetHandler) Get(c *gin.Context) {
	asset, err := h.svc.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, asset)
}

// Create POST /assets
func (h *AssetHandler) Create(c *gin.Context) {
	var input service.AssetInput
	if !bind(c, &input) {
		return
	}
	asset, err := h.svc.Create(c.Request.Context(), actorOf(c), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, asset)
}

// Update PATCH /assets/:id
func (h *AssetHandler) Update(c *gin.Context) {
	var input service.AssetInput
	if !bind(c, &input) {
		return
	}
	asset, err := h.svc.Update(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, asset)
}

// Delete DELETE /assets/:id
func (h *AssetHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}
