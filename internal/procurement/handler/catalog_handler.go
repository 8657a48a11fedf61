package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
)

type CatalogHandler struct {
	svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// List GET /catalog-items
func (h *CatalogHandler) List(c *gin.Context) {
	page := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), actorOf(c), repository.CatalogFilter{
		Search:   searchQuery(c),
		Category: c.Query("category"),
		Vendor:   c.Query("vendor"),
		Page:     page,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, total, page)
}

// Get GET /catalog-items/:id
func (h *CatalogHandler) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// Create POST /catalog-items
func (h *CatalogHandler) Create(c *gin.Context) {
	var input service.CatalogInput
	if !bind(c, &input) {
		return
	}
	item, err := h.svc.Create(c.Request.Context(), actorOf(c), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, item)
}

// Update PATCH /catalog-items/:id
func (h *CatalogHandler) Update(c *gin.Context) {
	var input service.CatalogInput
	if !bind(c, &input) {
		return
	}
	item, err := h.svc.Update(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// Delete DELETE /catalog-items/:id
func (h *CatalogHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// ============================================================
// Saved searches
// ============================================================

type SearchHandler struct {
	svc *service.SearchService
}

func NewSearchHandler(svc *service.SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// List GET /searches
func (h *SearchHandler) List(c *gin.Context) {
	page := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), actorOf(c), c.Query("entity_type"), page)
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, total, page)
}

// Get GET /searches/:id
func (h *SearchHandler) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// Create POST /searches
func (h *SearchHandler) Create(c *gin.Context) {
	var input service.SearchInput
	if !bind(c, &input) {
		return
	}
	item, err := h.svc.Create(c.Request.Context(), actorOf(c), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, item)
}

// Update PATCH|PUT /searches/:id
func (h *SearchHandler) Update(c *gin.Context) {
	handleError(c, h.svc.Update(c.Request.Context(), actorOf(c), c.Param("id")))
}

// Delete DELETE /searches/:id
func (h *SearchHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// ============================================================
// Feedback
// ============================================================

type FeedbackHandler struct {
	svc *service.FeedbackService
}

func NewFeedbackHandler(svc *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

// List GET /feedback
func (h *FeedbackHandler) List(c *gin.Context) {
	page := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), actorOf(c), c.Query("status"), page)
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, total, page)
}

// Get GET /feedback/:id
func (h *FeedbackHandler) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// Create POST /feedback
func (h *FeedbackHandler) Create(c *gin.Context) {
	var input service.FeedbackInput
	if !bind(c, &input) {
		return
	}
	item, err := h.svc.Create(c.Request.Context(), actorOf(c), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, item)
}

// Review PATCH /feedback/:id
func (h *FeedbackHandler) Review(c *gin.Context) {
	var input service.FeedbackReview
	if !bind(c, &input) {
		return
	}
	item, err := h.svc.Review(c.Request.Context(), actorOf(c), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// Delete DELETE /feedback/:id
func (h *FeedbackHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}
