package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/logging"
	"github.com/Aashish23092/conciliador/service"
)

// ProcessingHandler runs invoice detection and purchase order extraction on
// uploaded PDFs.
type ProcessingHandler struct {
	invoiceService *service.InvoiceService
	orderService   *service.OrderService
	syncService    *service.SyncService
	clientID       string
}

func NewProcessingHandler(
	invoiceService *service.InvoiceService,
	orderService *service.OrderService,
	syncService *service.SyncService,
	clientID string,
) *ProcessingHandler {
	return &ProcessingHandler{
		invoiceService: invoiceService,
		orderService:   orderService,
		syncService:    syncService,
		clientID:       clientID,
	}
}

// DetectInvoices handles POST /api/v1/invoices/detect
func (h *ProcessingHandler) DetectInvoices(c *gin.Context) {
	docs, err := uploadedDocuments(c)
	if err != nil {
		sendError(c, "Invalid upload", err)
		return
	}

	ctx := c.Request.Context()
	logging.FromContext(ctx).Info().Int("documents", len(docs)).Msg("detecting invoice references")

	result, err := h.invoiceService.Detect(ctx, docs)
	if err != nil {
		sendError(c, "Failed to detect references", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExtractOrders handles POST /api/v1/orders/extract. Stored order lines act
// as the existing table for dedupe and duplicate analysis.
func (h *ProcessingHandler) ExtractOrders(c *gin.Context) {
	docs, err := uploadedDocuments(c)
	if err != nil {
		sendError(c, "Invalid upload", err)
		return
	}

	ctx := c.Request.Context()
	existing, err := h.syncService.Export(ctx, h.clientID)
	if err != nil {
		sendError(c, "Failed to read stored orders", err)
		return
	}
	logging.FromContext(ctx).Info().
		Int("documents", len(docs)).
		Int("existing", len(existing)).
		Msg("extracting purchase orders")

	result, err := h.orderService.Extract(ctx, docs, existing)
	if err != nil {
		sendError(c, "Failed to extract orders", err)
		return
	}
	c.JSON(http.StatusOK, dto.ExtractionResponse{
		Result: *result,
		Report: service.FormatExtractionReport(result),
	})
}
