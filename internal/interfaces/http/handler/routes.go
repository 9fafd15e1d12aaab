package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes registers document lifecycle routes
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	documents := rg.Group("/documents")
	{
		documents.POST("", h.Create)
		documents.GET("", h.List)
		documents.GET("/by-number/:type/:number", h.GetByNumber)
		documents.GET("/:id", h.Get)
		documents.GET("/:id/actions", h.AllowedActions)
		documents.POST("/:id/lines", h.AddLine)
		documents.PUT("/:id/lines/:lineId", h.UpdateLine)
		documents.DELETE("/:id/lines/:lineId", h.RemoveLine)
		documents.POST("/:id/transition", h.Transition)
	}
}

// RegisterRoutes registers conversion routes
func (h *ConversionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	documents := rg.Group("/documents")
	{
		documents.POST("/:id/convert", h.Convert)
		documents.GET("/:id/conversion-targets", h.Targets)
	}
}

// RegisterRoutes registers payment and credit routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("/:id/payments", h.ApplyPayment)
		invoices.POST("/:id/credits", h.ApplyCredit)
	}
}

// RegisterRoutes registers party balance routes
func (h *BalanceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	parties := rg.Group("/parties")
	{
		parties.GET("/:id/balance", h.Get)
		parties.GET("/:id/statement", h.Statement)
		parties.POST("/:id/reconcile", h.Reconcile)
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/info", h.Info)
		system.GET("/health", h.Health)
		system.GET("/ready", h.Ready)
	}
}
