package handlers

import (
	"net/http"

	"hercules_backend/internal/middleware"
	"hercules_backend/internal/validator"
	"hercules_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// GetDB is the request-scoped database handle.
var GetDB = middleware.GetDB

// BaseHandler carries the shared request plumbing every handler needs.
type BaseHandler struct {
	validator *validator.Validator
}

func NewBaseHandler(v *validator.Validator) BaseHandler {
	return BaseHandler{validator: v}
}

// BindAndValidateJSON decodes the body into req and runs the validation
// rules. On failure it writes the error response and returns false.
func (h *BaseHandler) BindAndValidateJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Malformed JSON body"))
		return false
	}
	if err := h.validator.Validate(req); err != nil {
		var vErr *validator.ValidationError
		if apperrors.As(err, &vErr) {
			apperrors.HandleError(c, apperrors.ValidationError(vErr.Errors))
		} else {
			apperrors.HandleError(c, apperrors.NewBadRequestError(err.Error()))
		}
		return false
	}
	return true
}

// CurrentUserID returns the authenticated caller's ID.
func (h *BaseHandler) CurrentUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}

// HandleServiceError maps a service error onto the HTTP response.
func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	apperrors.HandleError(c, err)
}

// OK writes a 200 with the payload under "data".
func (h *BaseHandler) OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

// Created writes a 201 with the payload under "data".
func (h *BaseHandler) Created(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": payload})
}
