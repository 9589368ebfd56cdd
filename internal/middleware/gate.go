package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/pdfchat/internal/config"
	"github.com/xxxsen/pdfchat/internal/pkg/response"
)

type routeClass int

const (
	routeOpen routeClass = iota
	routePage
	routeAPI
)

// Gate guards page and API prefixes with the session token. Pages without a valid token
// are redirected to the unauthorized page; APIs get 401 {"error": "Unauthorized"}.
// Bypass paths are never checked.
func Gate(secret []byte, cfg config.GateConfig) gin.HandlerFunc {
	unauthorized := cfg.UnauthorizedPath
	if unauthorized == "" {
		unauthorized = "/unauthorized"
	}
	return func(c *gin.Context) {
		switch classify(c.Request.URL.Path, cfg) {
		case routeOpen:
			authenticate(c, secret)
			c.Next()
		case routePage:
			if !authenticate(c, secret) {
				target := unauthorized + "?from=" + url.QueryEscape(c.Request.URL.RequestURI())
				c.Redirect(http.StatusFound, target)
				c.Abort()
				return
			}
			c.Next()
		case routeAPI:
			if c.Request.Method == http.MethodOptions {
				c.Next()
				return
			}
			if !authenticate(c, secret) {
				response.Abort(c, http.StatusUnauthorized, "Unauthorized")
				return
			}
			c.Next()
		}
	}
}

func classify(path string, cfg config.GateConfig) routeClass {
	for _, p := range cfg.BypassPaths {
		if matchPrefix(path, p) {
			return routeOpen
		}
	}
	for _, p := range cfg.APIPrefixes {
		if matchPrefix(path, p) {
			return routeAPI
		}
	}
	for _, p := range cfg.PagePrefixes {
		if matchPrefix(path, p) {
			return routePage
		}
	}
	return routeOpen
}

// matchPrefix matches whole path segments, so /chat guards /chat/1 but not /chatroom.
func matchPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
