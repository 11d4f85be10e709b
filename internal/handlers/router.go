package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the engine with CORS applied and every route registered.
func NewRouter(h *APIHandler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(allowedOrigins)))
	h.RegisterRoutes(router)
	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerActorID, headerActorRole},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
		cfg.AllowCredentials = true
	}
	return cfg
}

func (h *APIHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		orders := api.Group("/orders")
		orders.POST("", h.PlaceOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.DELETE("/:id", h.ArchiveOrder)
		orders.GET("/:id/quote", h.QuoteOrder)
		orders.PUT("/:id/discount", h.SetDiscount)
		orders.PUT("/:id/other-charges", h.SetOtherCharges)
		orders.POST("/:id/workflow", h.TransitionWorkflow)
		orders.POST("/:id/workflow/resume", h.ResumeWorkflow)
		orders.POST("/:id/payment-status", h.ChangePaymentStatus)

		orders.PUT("/:id/items/:itemId/quote", h.SetQuotedPrice)
		orders.PUT("/:id/items/:itemId/supplier-pricing", h.SetSupplierPricing)
		orders.POST("/:id/items/:itemId/confirm", h.ConfirmItem)
		orders.GET("/:id/items/:itemId/eligible-suppliers", h.EligibleSuppliers)
		orders.POST("/:id/items/:itemId/assign-supplier", h.AssignSupplier)
		orders.POST("/:id/items/:itemId/deliveries", h.ScheduleDelivery)
		orders.PUT("/:id/items/:itemId/deliveries", h.ReplaceSchedule)

		orders.PUT("/:id/deliveries/:deliveryId", h.RescheduleDelivery)
		orders.DELETE("/:id/deliveries/:deliveryId", h.RemoveDelivery)
		orders.POST("/:id/deliveries/:deliveryId/confirm", h.ConfirmDelivery)

		orders.POST("/:id/invoices/preview", h.PreviewInvoice)
		orders.POST("/:id/invoices", h.CreateInvoice)
		orders.GET("/:id/invoices", h.ListInvoices)

		api.POST("/payment-proposals/:token/confirm", h.ConfirmPaymentProposal)
		api.GET("/invoices/:id", h.GetInvoice)
		api.POST("/invoices/:id/status", h.TransitionInvoice)
	}
}
