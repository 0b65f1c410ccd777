package handlers

import (
	"hercules_backend/internal/models"
	"hercules_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	BaseHandler
	users *services.UserService
}

func NewUserHandler(base BaseHandler, users *services.UserService) *UserHandler {
	return &UserHandler{BaseHandler: base, users: users}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.users.GetProfile(GetDB(c), h.CurrentUserID(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, gin.H{"user": user, "can_switch_view": user.CanSwitchView()})
}

type updateProfileRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateProfile(GetDB(c), h.CurrentUserID(c), req.Name)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, user)
}

// RequestCoach applies for the coach role.
func (h *UserHandler) RequestCoach(c *gin.Context) {
	user, err := h.users.RequestCoachRole(c.Request.Context(), GetDB(c), h.CurrentUserID(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, user)
}

// ListCoaches lists approved coaches for the matching feature.
func (h *UserHandler) ListCoaches(c *gin.Context) {
	coaches, err := h.users.ListCoaches(GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, coaches)
}

// ListCoachRequests lists pending applications (admin).
func (h *UserHandler) ListCoachRequests(c *gin.Context) {
	requests, err := h.users.ListCoachRequests(GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, requests)
}

// ListUsers lists all accounts (admin).
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, users)
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin customer customer_coach"`
}

// SetUserRole changes a user's role (admin).
func (h *UserHandler) SetUserRole(c *gin.Context) {
	var req setRoleRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	user, err := h.users.SetRole(c.Request.Context(), GetDB(c), c.Param("id"), models.UserRole(req.Role))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, user)
}

// ApproveCoach grants the coach role (admin).
func (h *UserHandler) ApproveCoach(c *gin.Context) {
	user, err := h.users.ApproveCoach(c.Request.Context(), GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, user)
}
