package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/service"
)

type SyncHandler struct {
	syncService *service.SyncService
}

func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
	}
}

// Sync handles POST /api/v1/expedientes/sync?force=&dry_run=
func (h *SyncHandler) Sync(c *gin.Context) {
	var request dto.SyncRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		sendError(c, "Invalid body", dto.NewValidationError("body", nil, err.Error()))
		return
	}
	if err := request.Validate(); err != nil {
		sendError(c, "Invalid body", err)
		return
	}

	force, err := boolQuery(c, "force")
	if err != nil {
		sendError(c, "Invalid query", err)
		return
	}
	dryRun, err := boolQuery(c, "dry_run")
	if err != nil {
		sendError(c, "Invalid query", err)
		return
	}

	summary := h.syncService.Sync(c.Request.Context(), request.Cliente, request.Rows, service.MergeOptions{Force: force, DryRun: dryRun})
	c.JSON(http.StatusOK, summary)
}

func boolQuery(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, dto.NewValidationError(name, raw, "must be a boolean")
	}
	return v, nil
}
