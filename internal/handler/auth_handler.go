package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/pdfchat/internal/pkg/errcode"
	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
	"github.com/xxxsen/pdfchat/internal/pkg/jwt"
	"github.com/xxxsen/pdfchat/internal/pkg/response"
	"github.com/xxxsen/pdfchat/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		invalidRequest(c)
		return
	}
	user, token, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	setSessionCookie(c, token, jwt.SessionTTL)
	response.Success(c, gin.H{"user": user, "token": token})
}

func (h *AuthHandler) Signin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		invalidRequest(c)
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	setSessionCookie(c, token, jwt.SessionTTL)
	response.Success(c, gin.H{"user": user, "token": token})
}

// GetToken exposes the cookie token to script code that must send it as a bearer header.
func (h *AuthHandler) GetToken(c *gin.Context) {
	response.Success(c, gin.H{"token": getToken(c)})
}

func (h *AuthHandler) CurrentUser(c *gin.Context) {
	user, err := h.auth.CurrentUser(c.Request.Context(), getUserID(c))
	if appErr.IsNotFound(err) {
		clearSessionCookie(c)
		response.Error(c, errcode.ErrUnauthorized, "account no longer exists")
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": user})
}

func (h *AuthHandler) Signout(c *gin.Context) {
	clearSessionCookie(c)
	response.Success(c, gin.H{"ok": true})
}
