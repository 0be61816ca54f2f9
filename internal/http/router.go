package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(handler *Handler, authMiddleware gin.HandlerFunc, environment string) *gin.Engine {
	if environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if environment == "development" {
		router.Use(cors.Default())
	}

	// Customer-facing approval link endpoints carry no access token.
	public := router.Group("/public")
	public.POST("/quotes/:id/view", handler.viewQuote)
	public.POST("/quotes/:id/approve", handler.approveQuote)
	public.POST("/quotes/:id/reject", handler.rejectQuote)

	protected := router.Group("/")
	protected.Use(authMiddleware)
	protected.POST("/quotes", handler.createQuote)
	protected.POST("/invoices", handler.createInvoice)
	protected.GET("/documents/export", handler.exportRegister)
	protected.GET("/documents/:id", handler.getDocument)
	protected.GET("/documents/:id/pdf", handler.documentPDF)
	protected.POST("/documents/:id/revisions", handler.reviseDocument)
	protected.GET("/jobs/:jobId/documents", handler.listJobDocuments)
	protected.POST("/quotes/:id/send", handler.sendQuote)
	protected.POST("/quotes/:id/convert", handler.convertQuote)
	protected.POST("/invoices/:id/payments", handler.recordPayment)

	return router
}
