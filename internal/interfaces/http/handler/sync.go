package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sechic/backend/internal/domain/integration"
	"github.com/sechic/backend/internal/domain/shared"
	"github.com/sechic/backend/internal/interfaces/http/dto"
)

// Platform path segments
const (
	platformMoloni  = "moloni"
	platformShopify = "shopify"
	platformBoth    = "both"
)

// ComparisonOperations detects conflicts between a batch and a sync target
type ComparisonOperations interface {
	CompareERP(ctx context.Context, batchID uuid.UUID) (*integration.ComparisonResult, error)
	CompareShop(ctx context.Context, batchID uuid.UUID) (*integration.ComparisonResult, error)
}

// SyncOperations pushes batches to the sync targets
type SyncOperations interface {
	SyncERP(ctx context.Context, batchID uuid.UUID, indices []int) (*integration.SyncResult, error)
	SyncShop(ctx context.Context, batchID uuid.UUID, indices []int) (*integration.SyncResult, error)
	SyncBoth(ctx context.Context, batchID uuid.UUID) (*integration.CombinedResult, error)
}

// SyncHandler handles conflict detection and sync endpoints
type SyncHandler struct {
	BaseHandler
	comparisons ComparisonOperations
	syncs       SyncOperations
}

// NewSyncHandler creates a SyncHandler
func NewSyncHandler(comparisons ComparisonOperations, syncs SyncOperations) *SyncHandler {
	return &SyncHandler{
		comparisons: comparisons,
		syncs:       syncs,
	}
}

// SyncRequest optionally restricts a sync to batch product positions,
// typically the safe indices returned by a comparison
type SyncRequest struct {
	Indices []int `json:"indices" binding:"omitempty,dive,gte=0"`
}

var errUnknownPlatform = shared.NewFieldError(dto.ErrCodeInvalidInput, "platform", "Platform must be moloni or shopify")

// Compare handles POST /batches/:id/compare/:platform
func (h *SyncHandler) Compare(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var (
		result *integration.ComparisonResult
		err    error
	)
	switch c.Param("platform") {
	case platformMoloni:
		result, err = h.comparisons.CompareERP(ctx, id)
	case platformShopify:
		result, err = h.comparisons.CompareShop(ctx, id)
	default:
		err = errUnknownPlatform
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Sync handles POST /batches/:id/sync/:platform
func (h *SyncHandler) Sync(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req SyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	ctx := c.Request.Context()

	var (
		result any
		err    error
	)
	switch c.Param("platform") {
	case platformMoloni:
		var r *integration.SyncResult
		r, err = h.syncs.SyncERP(ctx, id, req.Indices)
		result = resultOrNil(r)
	case platformShopify:
		var r *integration.SyncResult
		r, err = h.syncs.SyncShop(ctx, id, req.Indices)
		result = resultOrNil(r)
	case platformBoth:
		if req.Indices != nil {
			h.BadRequest(c, "indices are only accepted when syncing a single platform")
			return
		}
		var r *integration.CombinedResult
		r, err = h.syncs.SyncBoth(ctx, id)
		if r != nil {
			result = r
		}
	default:
		err = errUnknownPlatform
	}

	if err != nil {
		h.syncError(c, err, result)
		return
	}
	h.Success(c, result)
}

// syncError reports a failed run together with whatever was pushed before it stopped
func (h *SyncHandler) syncError(c *gin.Context, err error, partial any) {
	var domainErr *shared.DomainError
	code, ok := upstreamErrorCode(err)
	if partial == nil || errors.As(err, &domainErr) || !ok {
		h.HandleError(c, err)
		return
	}
	resp := dto.NewErrorResponse(code, err.Error())
	resp.Data = partial
	h.respondError(c, dto.GetHTTPStatus(code), resp)
}

func resultOrNil(r *integration.SyncResult) any {
	if r == nil {
		return nil
	}
	return r
}
