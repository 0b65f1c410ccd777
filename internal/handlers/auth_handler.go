package handlers

import (
	"hercules_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	BaseHandler
	auth *services.AuthService
}

func NewAuthHandler(base BaseHandler, auth *services.AuthService) *AuthHandler {
	return &AuthHandler{BaseHandler: base, auth: auth}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=120"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates the account and starts the trial window.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	result, err := h.auth.Register(c.Request.Context(), GetDB(c), req.Email, req.Password, req.Name)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.Created(c, gin.H{
		"user":    result.User,
		"token":   result.Token,
		"billing": result.Billing,
	})
}

// Login authenticates and reconciles the account's billing state; an
// expired trial is charged right here.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), GetDB(c), req.Email, req.Password)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, gin.H{
		"user":    result.User,
		"token":   result.Token,
		"billing": result.Billing,
	})
}
