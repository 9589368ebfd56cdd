package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/pdfchat/internal/pkg/response"
	"github.com/xxxsen/pdfchat/internal/service"
)

type UserHandler struct {
	auth *service.AuthService
}

func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.NewPassword == "" {
		invalidRequest(c)
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), getUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.auth.DeleteAccount(c.Request.Context(), getUserID(c)); err != nil {
		handleError(c, err)
		return
	}
	clearSessionCookie(c)
	response.Success(c, gin.H{"ok": true})
}
