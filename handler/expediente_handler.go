package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/service"
)

type ExpedienteHandler struct {
	expedienteService *service.ExpedienteService
}

func NewExpedienteHandler(expedienteService *service.ExpedienteService) *ExpedienteHandler {
	return &ExpedienteHandler{
		expedienteService: expedienteService,
	}
}

// List handles GET /api/v1/expedientes
func (h *ExpedienteHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		sendError(c, "Invalid query", dto.NewValidationError("query", c.Request.URL.RawQuery, err.Error()))
		return
	}

	response, err := h.expedienteService.List(c.Request.Context(), q)
	if err != nil {
		sendError(c, "Failed to list expedientes", err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/v1/expedientes/:cliente/:numero
func (h *ExpedienteHandler) Get(c *gin.Context) {
	doc, err := h.expedienteService.Get(c.Request.Context(), c.Param("cliente"), c.Param("numero"))
	if err != nil {
		sendError(c, "Failed to get expediente", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ByPedido handles GET /api/v1/pedidos/:numeroPedido
func (h *ExpedienteHandler) ByPedido(c *gin.Context) {
	docs, err := h.expedienteService.FindByOrder(c.Request.Context(), c.Param("numeroPedido"))
	if err != nil {
		sendError(c, "Failed to find order", err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// ByFactura handles GET /api/v1/facturas/:numero
func (h *ExpedienteHandler) ByFactura(c *gin.Context) {
	docs, err := h.expedienteService.FindByInvoice(c.Request.Context(), c.Param("numero"))
	if err != nil {
		sendError(c, "Failed to find invoice", err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// Duplicates handles GET /api/v1/duplicados. The text report is returned when
// format=text.
func (h *ExpedienteHandler) Duplicates(c *gin.Context) {
	groups, err := h.expedienteService.Duplicates(c.Request.Context(), c.Query("cliente"))
	if err != nil {
		sendError(c, "Failed to analyze duplicates", err)
		return
	}
	if c.Query("format") == "text" {
		c.String(http.StatusOK, service.FormatDuplicateReport(groups))
		return
	}
	c.JSON(http.StatusOK, groups)
}

// Stats handles GET /api/v1/estadisticas
func (h *ExpedienteHandler) Stats(c *gin.Context) {
	stats, err := h.expedienteService.Stats(c.Request.Context(), c.Query("cliente"))
	if err != nil {
		sendError(c, "Failed to compute statistics", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
