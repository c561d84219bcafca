package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/logger"
	"github.com/meterbill/backend/internal/interfaces/http/dto"
	"github.com/meterbill/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// ActorHeader optionally names the operator performing a wallet movement
const ActorHeader = "X-User-ID"

const internalErrorMessage = "An unexpected error occurred"

// BaseHandler holds the response and binding helpers every handler embeds.
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	id := c.GetString(middleware.RequestIDContextKey)
	if id == "" {
		id = c.GetHeader(middleware.RequestIDHeader)
	}
	return id
}

// getActorID is nil unless the actor header holds a valid UUID
func getActorID(c *gin.Context) *uuid.UUID {
	id, err := uuid.Parse(c.GetHeader(ActorHeader))
	if err != nil {
		return nil
	}
	return &id
}

func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error writes the error envelope tagged with the request ID
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// HandleError answers with the status mapped from a domain error code.
// Other errors are logged and hidden behind a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	log := logger.GetGinLogger(c)

	var de *shared.DomainError
	if !errors.As(err, &de) {
		log.Error("unexpected error", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, internalErrorMessage)
		return
	}

	code := dto.NormalizeErrorCode(de.Code)
	status := dto.GetHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("code", de.Code), zap.Error(err))
	}
	h.Error(c, status, code, de.Message)
}

// invalidField reports a request field that bound but did not parse
func (h *BaseHandler) invalidField(c *gin.Context, field string, err error) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, field+": "+err.Error())
}

// bindJSON and bindQuery write the 400 themselves and report whether the
// handler should continue.
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	return h.bound(c, c.ShouldBindJSON(req))
}

func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	return h.bound(c, c.ShouldBindQuery(req))
}

func (h *BaseHandler) bound(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		middleware.HandleValidationError(c, err)
	} else {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, err.Error())
	}
	return false
}

func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
