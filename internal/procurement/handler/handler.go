package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
	"github.com/uthejd-slx/procura-backend/internal/procurement/sse"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handlers procurement handler set.
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Bom          *BomHandler
	BomItem      *BomItemHandler
	Template     *TemplateHandler
	Approval     *ApprovalHandler
	Receiving    *ReceivingHandler
	PO           *PurchaseOrderHandler
	Asset        *AssetHandler
	Transfer     *TransferHandler
	Notification *NotificationHandler
	Attachment   *AttachmentHandler
	Catalog      *CatalogHandler
	Search       *SearchHandler
	Feedback     *FeedbackHandler
	Bill         *BillHandler
	Health       *HealthHandler
}

// NewHandlers creates the handler set. rdb may be nil.
func NewHandlers(svc *service.Services, hub *sse.Hub, db *gorm.DB, rdb *redis.Client, version string) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.Users),
		Bom:          NewBomHandler(svc.Boms, svc.PurchaseOrders),
		BomItem:      NewBomItemHandler(svc.Boms),
		Template:     NewTemplateHandler(svc.Templates),
		Approval:     NewApprovalHandler(svc.Approvals),
		Receiving:    NewReceivingHandler(svc.Receiving),
		PO:           NewPurchaseOrderHandler(svc.PurchaseOrders),
		Asset:        NewAssetHandler(svc.Assets),
		Transfer:     NewTransferHandler(svc.Transfers),
		Notification: NewNotificationHandler(svc.Notifications, hub),
		Attachment:   NewAttachmentHandler(svc.Attachments),
		Catalog:      NewCatalogHandler(svc.Catalog),
		Search:       NewSearchHandler(svc.Searches),
		Feedback:     NewFeedbackHandler(svc.Feedback),
		Bill:         NewBillHandler(svc.Bills),
		Health:       NewHealthHandler(db, rdb, version),
	}
}

// Response envelope of every JSON reply.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse paged list payload.
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// List writes a paged list.
func List(c *gin.Context, items interface{}, total int64, page repository.Page) {
	totalPages := 0
	if page.PageSize > 0 {
		totalPages = int((total + int64(page.PageSize) - 1) / int64(page.PageSize))
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page.Page,
			PageSize:   page.PageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// Error writes an error envelope; the HTTP status is code / 100.
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

const debugErrorsKey = "debug_errors"

// DebugErrors exposes internal error details in responses when enabled.
func DebugErrors(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(debugErrorsKey, enabled)
		c.Next()
	}
}

// handleError maps service error kinds to statuses.
func handleError(c *gin.Context, err error) {
	message := err.Error()
	var se *service.Error
	if errors.As(err, &se) {
		message = se.Message
	}

	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidState):
		Error(c, 40000, message)
	case errors.Is(err, service.ErrUnauthorized):
		Error(c, 40100, message)
	case errors.Is(err, service.ErrForbidden):
		Error(c, 40300, message)
	case errors.Is(err, service.ErrNotFound):
		Error(c, 40400, message)
	case errors.Is(err, service.ErrMethodNotAllowed):
		Error(c, 40500, message)
	case errors.Is(err, service.ErrConflict):
		Error(c, 40900, message)
	default:
		zap.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		if c.GetBool(debugErrorsKey) {
			InternalError(c, "internal server error: "+err.Error())
			return
		}
		InternalError(c, "internal server error")
	}
}

// bind decodes the JSON body, answering 400 on failure.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// bindOptional is bind for endpoints whose body may be empty.
func bindOptional(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// GetUserID returns the authenticated user id.
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// actorOf builds the service actor from the auth middleware context.
func actorOf(c *gin.Context) service.Actor {
	v, _ := c.Get("roles")
	userRoles, _ := v.([]string)
	return service.Actor{
		ID:    GetUserID(c),
		Email: c.GetString("user_email"),
		Roles: userRoles,
	}
}

// GetPagination reads page (default 1) and page_size (default 20, max 100).
func GetPagination(c *gin.Context) repository.Page {
	page, pageSize := 1, 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return repository.Page{Page: page, PageSize: pageSize}
}

// csvQuery splits a comma separated query value into upper-case tokens.
func csvQuery(c *gin.Context, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// searchQuery accepts both search and q.
func searchQuery(c *gin.Context) string {
	if s := strings.TrimSpace(c.Query("search")); s != "" {
		return s
	}
	return strings.TrimSpace(c.Query("q"))
}

func parseInstant(raw string, endOfDay bool) (*time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// timeRange reads <prefix>_from and <prefix>_to. A date-only _to covers the
// whole day.
func timeRange(c *gin.Context, prefix string) (repository.TimeRange, bool) {
	var tr repository.TimeRange
	if raw := c.Query(prefix + "_from"); raw != "" {
		t, err := parseInstant(raw, false)
		if err != nil {
			BadRequest(c, "invalid "+prefix+"_from: use RFC3339 or YYYY-MM-DD")
			return tr, false
		}
		tr.From = t
	}
	if raw := c.Query(prefix + "_to"); raw != "" {
		t, err := parseInstant(raw, true)
		if err != nil {
			BadRequest(c, "invalid "+prefix+"_to: use RFC3339 or YYYY-MM-DD")
			return tr, false
		}
		tr.To = t
	}
	return tr, true
}
