package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
	"github.com/xxxsen/pdfchat/internal/pkg/jwt"
	"github.com/xxxsen/pdfchat/internal/pkg/response"
	"github.com/xxxsen/pdfchat/internal/service"
)

const (
	oauthStateTTL      = 10 * time.Minute
	oauthStateCapacity = 4096
	defaultReturnTo    = "/chat"
)

type oauthState struct {
	Provider string
	ReturnTo string
}

type OAuthHandler struct {
	oauth  *service.OAuthService
	states *expirable.LRU[string, oauthState]
}

func NewOAuthHandler(oauth *service.OAuthService) *OAuthHandler {
	return &OAuthHandler{
		oauth:  oauth,
		states: expirable.NewLRU[string, oauthState](oauthStateCapacity, nil, oauthStateTTL),
	}
}

func (h *OAuthHandler) AuthURL(c *gin.Context) {
	provider := strings.ToLower(c.Param("provider"))
	state := uuid.NewString()
	authURL, err := h.oauth.GetAuthURL(provider, state)
	if err != nil {
		handleError(c, err)
		return
	}
	h.states.Add(state, oauthState{Provider: provider, ReturnTo: safeReturnTo(c.Query("return"))})
	response.Success(c, gin.H{"url": authURL})
}

// Callback completes the code exchange, sets the session cookie and redirects into the app.
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider := strings.ToLower(c.Param("provider"))
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		h.redirectError(c, "invalid", provider)
		return
	}
	stored, ok := h.consume(state)
	if !ok || stored.Provider != provider {
		h.redirectError(c, "invalid_state", provider)
		return
	}
	profile, err := h.oauth.ExchangeCode(c.Request.Context(), provider, code)
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Warn("oauth exchange failed", zap.String("provider", provider), zap.Error(err))
		h.redirectError(c, mapOAuthError(err), provider)
		return
	}
	_, token, err := h.oauth.LoginOrCreate(c.Request.Context(), profile)
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Error("oauth login failed", zap.String("provider", provider), zap.Error(err))
		h.redirectError(c, mapOAuthError(err), provider)
		return
	}
	setSessionCookie(c, token, jwt.OAuthTTL)
	c.Redirect(http.StatusFound, stored.ReturnTo)
}

func (h *OAuthHandler) consume(state string) (oauthState, bool) {
	stored, ok := h.states.Get(state)
	if !ok {
		return oauthState{}, false
	}
	h.states.Remove(state)
	return stored, true
}

func (h *OAuthHandler) redirectError(c *gin.Context, code, provider string) {
	params := url.Values{}
	params.Set("error", code)
	if provider != "" {
		params.Set("provider", provider)
	}
	c.Redirect(http.StatusFound, "/signin?"+params.Encode())
}

func safeReturnTo(returnTo string) string {
	if returnTo == "" || !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") {
		return defaultReturnTo
	}
	return returnTo
}

func mapOAuthError(err error) string {
	switch {
	case appErr.IsConflict(err):
		return "conflict"
	case appErr.IsNotFound(err):
		return "not_found"
	case errors.Is(err, appErr.ErrInvalid), errors.Is(err, appErr.ErrUnauthorized):
		return "invalid"
	default:
		return "internal"
	}
}
