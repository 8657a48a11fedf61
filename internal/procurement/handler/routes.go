package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/uthejd-slx/procura-backend/internal/config"
	"github.com/uthejd-slx/procura-backend/internal/middleware"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
)

// RegisterRoutes mounts the health endpoints and the /api/v1 tree.
func RegisterRoutes(r *gin.Engine, h *Handlers, cfg *config.Config, resolver middleware.ActorResolver) {
	r.Use(DebugErrors(cfg.Server.DebugErrors))
	r.Use(middleware.Metrics())

	r.GET("/health/live", h.Health.Live)
	r.GET("/health/ready", h.Health.Ready)
	r.GET("/version", h.Health.Version)
	r.GET("/metrics", h.Health.Metrics)

	v1 := r.Group("/api/v1")

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", middleware.RateLimit(limiter), h.Auth.Register)
		auth.POST("/activate", h.Auth.Activate)
		auth.POST("/login", middleware.RateLimit(limiter), h.Auth.Login)
		auth.POST("/token/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
		auth.POST("/password-reset", middleware.RateLimit(limiter), h.Auth.RequestPasswordReset)
		auth.POST("/password-reset/confirm", h.Auth.ConfirmPasswordReset)
	}

	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(cfg.JWT.Secret), middleware.LoadActor(resolver))
	{
		authorized.GET("/auth/me", h.Auth.Me)

		authorized.GET("/users", h.User.List)
		authorized.GET("/profile", h.User.GetProfile)
		authorized.PATCH("/profile", h.User.UpdateProfile)

		admin := authorized.Group("/admin", middleware.RequireStrictRole(roles.Admin))
		{
			admin.PATCH("/users/:id", h.User.AdminUpdate)
		}

		boms := authorized.Group("/boms")
		{
			boms.GET("", h.Bom.List)
			boms.POST("", h.Bom.Create)
			boms.GET("/:id", h.Bom.Get)
			boms.PATCH("/:id", h.Bom.Update)
			boms.DELETE("/:id", h.Bom.Delete)
			boms.POST("/:id/items", h.Bom.AddItem)
			boms.POST("/:id/cancel", h.Bom.Cancel)
			boms.POST("/:id/request-signoff", h.Bom.RequestSignoff)
			boms.POST("/:id/request-procurement-approval", h.Bom.RequestProcurementApproval)
			boms.GET("/:id/collaborators", h.Bom.ListCollaborators)
			boms.POST("/:id/collaborators", h.Bom.AddCollaborator)
			boms.DELETE("/:id/collaborators/:userId", h.Bom.RemoveCollaborator)
			boms.GET("/:id/export", h.Bom.Export)
			boms.POST("/:id/import", h.Bom.Import)
			boms.POST("/:id/purchase-orders", middleware.RequireStrictRole(roles.Procurement), h.Bom.CreatePurchaseOrders)
		}

		items := authorized.Group("/bom-items")
		{
			items.GET("", h.BomItem.List)
			items.PATCH("/:id", h.BomItem.Update)
			items.DELETE("/:id", h.BomItem.Delete)
			items.POST("/:id/signoff", h.BomItem.Signoff)
		}

		templates := authorized.Group("/bom-templates")
		{
			templates.GET("", h.Template.List)
			templates.POST("", h.Template.Create)
			templates.GET("/:id", h.Template.Get)
			templates.PATCH("/:id", h.Template.Update)
			templates.DELETE("/:id", h.Template.Delete)
		}

		authorized.GET("/bom-events", h.Bom.ListEvents)

		approvals := authorized.Group("/procurement-approvals")
		{
			approvals.GET("", h.Approval.List)
			approvals.POST("/:id/decide", middleware.RequireRole(roles.Approver), h.Approval.Decide)
		}

		actions := authorized.Group("/procurement-actions", middleware.RequireStrictRole(roles.Procurement))
		{
			actions.POST("/:bomId/mark-ordered", h.Receiving.MarkOrdered)
			actions.POST("/:bomId/receive", h.Receiving.Receive)
		}

		pos := authorized.Group("/purchase-orders")
		{
			pos.GET("", h.PO.List)
			pos.POST("", h.PO.Create)
			pos.GET("/:id", h.PO.Get)
			pos.PATCH("/:id", h.PO.Update)
			pos.DELETE("/:id", h.PO.Delete)
			pos.POST("/:id/items", h.PO.AddItem)
			pos.POST("/:id/mark-sent", h.PO.MarkSent)
			pos.POST("/:id/cancel", h.PO.Cancel)
			pos.POST("/:id/receive", h.PO.Receive)
		}

		// procurement or admin may change assets and partners
		staff := middleware.RequireRole(roles.Procurement)

		assets := authorized.Group("/assets")
		{
			assets.GET("", h.Asset.List)
			assets.POST("", staff, h.Asset.Create)
			assets.GET("/:id", h.Asset.Get)
			assets.PATCH("/:id", staff, h.Asset.Update)
			assets.DELETE("/:id", staff, h.Asset.Delete)
		}

		partners := authorized.Group("/partners")
		{
			partners.GET("", h.Transfer.ListPartners)
			partners.POST("", staff, h.Transfer.CreatePartner)
			partners.GET("/:id", h.Transfer.GetPartner)
			partners.PATCH("/:id", staff, h.Transfer.UpdatePartner)
			partners.DELETE("/:id", staff, h.Transfer.DeletePartner)
		}

		transfers := authorized.Group("/transfers")
		{
			transfers.GET("", h.Transfer.List)
			transfers.POST("", h.Transfer.Create)
			transfers.GET("/:id", h.Transfer.Get)
			transfers.PATCH("/:id", h.Transfer.Update)
			transfers.DELETE("/:id", h.Transfer.Delete)
			transfers.POST("/:id/items", h.Transfer.AddItem)
			transfers.POST("/:id/submit", h.Transfer.Submit)
			transfers.POST("/:id/approve", h.Transfer.Approve)
			transfers.POST("/:id/cancel", h.Transfer.Cancel)
			transfers.POST("/:id/complete", h.Transfer.Complete)
		}

		notifications := authorized.Group("/notifications")
		{
			notifications.GET("", h.Notification.List)
			notifications.GET("/unread-count", h.Notification.UnreadCount)
			notifications.GET("/stream", h.Notification.Stream)
			notifications.POST("/mark-all-read", h.Notification.MarkAllRead)
			notifications.POST("/:id/mark-read", h.Notification.MarkRead)
		}

		attachments := authorized.Group("/attachments")
		{
			attachments.GET("", h.Attachment.List)
			attachments.POST("", h.Attachment.Upload)
			attachments.GET("/:id", h.Attachment.Get)
			attachments.GET("/:id/download", h.Attachment.Download)
			attachments.DELETE("/:id", h.Attachment.Delete)
		}

		catalog := authorized.Group("/catalog-items")
		{
			catalog.GET("", h.Catalog.List)
			catalog.POST("", h.Catalog.Create)
			catalog.GET("/:id", h.Catalog.Get)
			catalog.PATCH("/:id", h.Catalog.Update)
			catalog.DELETE("/:id", h.Catalog.Delete)
		}

		searches := authorized.Group("/searches")
		{
			searches.GET("", h.Search.List)
			searches.POST("", h.Search.Create)
			searches.GET("/:id", h.Search.Get)
			searches.PATCH("/:id", h.Search.Update)
			searches.PUT("/:id", h.Search.Update)
			searches.DELETE("/:id", h.Search.Delete)
		}

		feedback := authorized.Group("/feedback")
		{
			feedback.GET("", h.Feedback.List)
			feedback.POST("", h.Feedback.Create)
			feedback.GET("/:id", h.Feedback.Get)
			feedback.PATCH("/:id", h.Feedback.Review)
			feedback.DELETE("/:id", h.Feedback.Delete)
		}

		bills := authorized.Group("/bills")
		{
			bills.GET("", h.Bill.List)
			bills.POST("", h.Bill.Create)
			bills.GET("/:id", h.Bill.Get)
			bills.PATCH("/:id", h.Bill.Update)
			bills.DELETE("/:id", h.Bill.Delete)
			bills.POST("/:id/submit", h.Bill.Submit)
			bills.POST("/:id/approve", h.Bill.Approve)
			bills.POST("/:id/reject", h.Bill.Reject)
			bills.POST("/:id/mark-paid", h.Bill.MarkPaid)
			bills.POST("/:id/cancel", h.Bill.Cancel)
		}
	}
}
