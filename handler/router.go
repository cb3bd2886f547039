package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Aashish23092/conciliador/metrics"
)

// Handlers groups the handler layer mounted by NewRouter.
type Handlers struct {
	Expedientes *ExpedienteHandler
	Processing  *ProcessingHandler
	Sync        *SyncHandler
}

// NewRouter builds the gin engine. maxUploadMB bounds the multipart memory.
func NewRouter(h Handlers, registry *metrics.Registry, logger *zerolog.Logger, maxUploadMB int64) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))
	router.MaxMultipartMemory = maxUploadMB << 20

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "conciliador",
		})
	})
	if registry != nil {
		router.GET("/metrics", gin.WrapH(registry.Handler()))
	}

	// API routes
	api := router.Group("/api/v1")
	{
		expedientes := api.Group("/expedientes")
		{
			expedientes.GET("", h.Expedientes.List)
			expedientes.POST("/sync", h.Sync.Sync)
			expedientes.GET("/:cliente/:numero", h.Expedientes.Get)
		}
		api.GET("/pedidos/:numeroPedido", h.Expedientes.ByPedido)
		api.GET("/facturas/:numero", h.Expedientes.ByFactura)
		api.GET("/duplicados", h.Expedientes.Duplicates)
		api.GET("/estadisticas", h.Expedientes.Stats)
		api.POST("/invoices/detect", h.Processing.DetectInvoices)
		api.POST("/orders/extract", h.Processing.ExtractOrders)
	}
	return router
}
