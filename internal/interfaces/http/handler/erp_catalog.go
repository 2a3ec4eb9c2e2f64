package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sechic/backend/internal/domain/integration"
)

// RefreshOperations controls the background ERP catalog refresh
type RefreshOperations interface {
	Start(ctx context.Context, userID string, forceDelete bool) (*integration.RefreshProgress, error)
	Progress(ctx context.Context) (*integration.RefreshProgress, error)
	Cancel(ctx context.Context) (bool, error)
}

// ERPCatalogHandler handles the ERP mirror refresh endpoints
type ERPCatalogHandler struct {
	BaseHandler
	refresh RefreshOperations
}

// NewERPCatalogHandler creates an ERPCatalogHandler
func NewERPCatalogHandler(refresh RefreshOperations) *ERPCatalogHandler {
	return &ERPCatalogHandler{refresh: refresh}
}

// RefreshRequest starts a refresh. ForceDelete removes mirror rows that no
// longer exist in the ERP.
type RefreshRequest struct {
	ForceDelete bool `json:"force_delete"`
}

// CancelResponse reports whether a running refresh was asked to stop
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// StartRefresh handles POST /erp-catalog/refresh
func (h *ERPCatalogHandler) StartRefresh(c *gin.Context) {
	var req RefreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	progress, err := h.refresh.Start(c.Request.Context(), actor(c), req.ForceDelete)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, progress)
}

// GetRefresh handles GET /erp-catalog/refresh
func (h *ERPCatalogHandler) GetRefresh(c *gin.Context) {
	progress, err := h.refresh.Progress(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, progress)
}

// CancelRefresh handles POST /erp-catalog/refresh/cancel
func (h *ERPCatalogHandler) CancelRefresh(c *gin.Context) {
	cancelled, err := h.refresh.Cancel(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CancelResponse{Cancelled: cancelled})
}
