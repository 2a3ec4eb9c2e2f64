package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sechic/backend/internal/domain/integration"
	"github.com/sechic/backend/internal/domain/shared"
	"github.com/sechic/backend/internal/infrastructure/extraction"
	"github.com/sechic/backend/internal/infrastructure/logger"
	"github.com/sechic/backend/internal/infrastructure/telemetry"
	"github.com/sechic/backend/internal/interfaces/http/dto"
	"github.com/sechic/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the status derived from code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	h.respondError(c, dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// BindError reports a request binding failure, with field details for
// validation errors
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); details != nil {
		h.respondError(c, http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", details))
		return
	}
	h.BadRequest(c, "Invalid request body")
}

func (h *BaseHandler) respondError(c *gin.Context, status int, resp dto.Response) {
	c.JSON(status, resp.WithRequest(middleware.GetRequestID(c), telemetry.TraceID(c.Request.Context())))
}

// HandleError maps domain, platform and extraction errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		resp := dto.NewErrorResponse(domainErr.Code, domainErr.Message).WithField(domainErr.Field)
		h.respondError(c, dto.GetHTTPStatus(domainErr.Code), resp)
		return
	}

	if code, ok := upstreamErrorCode(err); ok {
		logger.L(c.Request.Context()).Warn("Request failed upstream", zap.String("code", code), zap.Error(err))
		h.Error(c, code, err.Error())
		return
	}

	logger.L(c.Request.Context()).Error("Unhandled request error", zap.Error(err))
	h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred")
}

func upstreamErrorCode(err error) (string, bool) {
	switch {
	case errors.Is(err, integration.ErrSyncAlreadyRunning):
		return dto.ErrCodeSyncAlreadyRunning, true
	case errors.Is(err, integration.ErrNoRefresh):
		return dto.ErrCodeRefreshNotFound, true
	case errors.Is(err, integration.ErrPlatformNotConfigured):
		return dto.ErrCodePlatformNotConfigured, true
	case errors.Is(err, integration.ErrMissingDefaults):
		return dto.ErrCodeMissingDefaults, true
	case errors.Is(err, integration.ErrNoLocation):
		return dto.ErrCodeNoLocation, true
	case errors.Is(err, integration.ErrPlatformAuthFailed):
		return dto.ErrCodePlatformAuthFailed, true
	case errors.Is(err, integration.ErrPlatformUnavailable):
		return dto.ErrCodePlatformUnavailable, true
	case errors.Is(err, integration.ErrPlatformInvalidResponse):
		return dto.ErrCodePlatformInvalidResponse, true
	case errors.Is(err, integration.ErrPlatformRequestFailed):
		return dto.ErrCodePlatformRequestFailed, true
	case errors.Is(err, extraction.ErrExtractionTimeout):
		return dto.ErrCodeExtractionTimeout, true
	case errors.Is(err, extraction.ErrServiceUnavailable):
		return dto.ErrCodeExtractionUnavailable, true
	case errors.Is(err, extraction.ErrExtractionFailed), errors.Is(err, extraction.ErrInvalidResponse):
		return dto.ErrCodeExtractionFailed, true
	}
	return "", false
}

// pathUUID parses a uuid path parameter
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.respondError(c, http.StatusBadRequest,
			dto.NewErrorResponse(dto.ErrCodeInvalidInput, "Invalid "+name).WithField(name))
		return uuid.Nil, false
	}
	return id, true
}

// pathIndex parses a non-negative integer path parameter
func (h *BaseHandler) pathIndex(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 0 {
		h.respondError(c, http.StatusBadRequest,
			dto.NewErrorResponse(dto.ErrCodeInvalidInput, "Invalid "+name).WithField(name))
		return 0, false
	}
	return n, true
}

// actor names the authenticated user for audit columns
func actor(c *gin.Context) string {
	if name := middleware.GetJWTUsername(c); name != "" {
		return name
	}
	return "system"
}
