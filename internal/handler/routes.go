package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campus-ops/equiploan-api/internal/middleware"
	"github.com/campus-ops/equiploan-api/internal/models"
	"github.com/campus-ops/equiploan-api/internal/repository"
	"github.com/campus-ops/equiploan-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Resource     *ResourceHandler
	Borrow       *BorrowHandler
	Reservation  *ReservationHandler
	Penalty      *PenaltyHandler
	Payment      *PaymentHandler
	Feedback     *FeedbackHandler
	Notification *NotificationHandler
	Announcement *AnnouncementHandler
	Report       *ReportHandler
}

// RegisterRoutes mounts the API surface under the given prefix. auditRepo
// backs the audit trail on privileged mutations.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authSvc *service.AuthService, auditRepo *repository.UserRepository) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.User.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/forgot-password", h.Auth.ForgotPassword)
		auth.POST("/reset-password", h.Auth.ResetPassword)

		auth.POST("/logout", middleware.JWT(authSvc), h.Auth.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), h.Auth.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), h.Auth.Me)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("", middleware.Staff(), h.User.List)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleAssistant), string(models.RoleStaff), middleware.SelfRole), h.User.Get)
		users.POST("", middleware.AdminOnly(), middleware.Audit(auditRepo, models.AuditActionUserCreate, "user"), h.User.Create)
		users.PUT("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.SelfRole), middleware.Audit(auditRepo, models.AuditActionUserUpdate, "user"), h.User.Update)
		users.PATCH("/:id/status", middleware.AdminOnly(), middleware.Audit(auditRepo, models.AuditActionStatusChange, "user"), h.User.SetStatus)
	}

	resources := api.Group("/resources", middleware.JWT(authSvc))
	{
		resources.GET("", h.Resource.List)
		resources.GET("/:id", h.Resource.Get)
		resources.GET("/barcode/:code", middleware.Staff(), h.Resource.GetByBarcode)
		resources.POST("", middleware.Staff(), h.Resource.Create)
		resources.PUT("/:id", middleware.Staff(), h.Resource.Update)
		resources.PATCH("/:id/status", middleware.Staff(), middleware.Audit(auditRepo, models.AuditActionStatusChange, "resource"), h.Resource.SetStatus)
	}

	borrows := api.Group("/borrows", middleware.JWT(authSvc))
	{
		borrows.GET("", middleware.Staff(), h.Borrow.List)
		borrows.GET("/:id", h.Borrow.Get)
		borrows.POST("", middleware.Staff(), h.Borrow.Create)
		borrows.POST("/:id/return", middleware.Staff(), h.Borrow.Return)
		borrows.POST("/:id/approve", middleware.Staff(), h.Borrow.Approve)
		borrows.POST("/:id/lost", middleware.Staff(), h.Borrow.MarkLost)
	}

	reservations := api.Group("/reservations", middleware.JWT(authSvc))
	{
		reservations.GET("", h.Reservation.List)
		reservations.GET("/:id", h.Reservation.Get)
		reservations.POST("", h.Reservation.Create)
		reservations.POST("/:id/confirm", middleware.Staff(), h.Reservation.Confirm)
		reservations.POST("/:id/complete", middleware.Staff(), h.Reservation.Complete)
		reservations.POST("/:id/cancel", h.Reservation.Cancel)
	}

	penalties := api.Group("/penalties", middleware.JWT(authSvc))
	{
		penalties.GET("", h.Penalty.List)
		penalties.GET("/:id", h.Penalty.Get)
		penalties.POST("", middleware.Staff(), h.Penalty.Create)
		penalties.POST("/:id/resolve", middleware.Staff(), h.Penalty.Resolve)
	}

	payments := api.Group("/payments", middleware.JWT(authSvc))
	{
		payments.GET("", h.Payment.List)
		payments.GET("/:id", h.Payment.Get)
		payments.POST("", h.Payment.Create)
		payments.POST("/:id/complete", middleware.Staff(), h.Payment.Complete)
		payments.POST("/:id/fail", middleware.Staff(), h.Payment.Fail)
		payments.POST("/:id/refund", middleware.AdminOnly(), middleware.Audit(auditRepo, models.AuditActionRefund, "payment"), h.Payment.Refund)
	}

	feedback := api.Group("/feedback", middleware.JWT(authSvc))
	{
		feedback.GET("", middleware.Staff(), h.Feedback.List)
		feedback.GET("/:id", h.Feedback.Get)
		feedback.POST("", h.Feedback.Create)
		feedback.PATCH("/:id/status", middleware.Staff(), h.Feedback.SetStatus)
	}

	notifications := api.Group("/notifications", middleware.JWT(authSvc))
	{
		notifications.GET("", h.Notification.List)
		notifications.POST("", middleware.Staff(), h.Notification.Create)
		notifications.POST("/:id/read", h.Notification.MarkRead)
		notifications.POST("/read-all", h.Notification.MarkAllRead)
	}

	announcements := api.Group("/announcements", middleware.JWT(authSvc))
	{
		announcements.GET("", h.Announcement.List)
		announcements.GET("/:id", h.Announcement.Get)
		announcements.POST("", middleware.Staff(), h.Announcement.Create)
		announcements.PUT("/:id", middleware.Staff(), h.Announcement.Update)
		announcements.DELETE("/:id", middleware.Staff(), h.Announcement.Deactivate)
	}

	if h.Report != nil {
		reports := api.Group("/reports", middleware.JWT(authSvc), middleware.Staff())
		{
			reports.POST("/borrows", h.Report.Create)
			reports.GET("/:id", h.Report.Get)
		}
	}
}
