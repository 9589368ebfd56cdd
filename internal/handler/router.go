package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/pdfchat/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	OAuth     *OAuthHandler
	Users     *UserHandler
	PDFs      *PDFHandler
	Chats     *ChatHandler
	Demo      *DemoHandler
	Files     *FileHandler
	JWTSecret []byte
	// AuthRateWindow throttles repeated sign-in and sign-up attempts per client.
	AuthRateWindow time.Duration
}

// RegisterRoutes mounts every route on the root group. Access control for the gated
// prefixes is applied globally by middleware.Gate; JWTAuth here covers routes reached
// without a configured prefix.
func RegisterRoutes(root *gin.RouterGroup, deps RouterDeps) {
	root.GET("/unauthorized", Unauthorized)

	api := root.Group("/api")
	authLimit := middleware.RateLimit(deps.AuthRateWindow)
	api.POST("/auth/signin", authLimit, deps.Auth.Signin)
	api.POST("/auth/signup", authLimit, deps.Auth.Signup)
	api.POST("/auth/signout", deps.Auth.Signout)
	api.GET("/auth/:provider/url", deps.OAuth.AuthURL)
	api.GET("/auth/:provider/callback", deps.OAuth.Callback)

	api.GET("/demo/pdfs", deps.Demo.Documents)
	api.GET("/demo/options", deps.Demo.Options)
	api.POST("/demo/chat/send", deps.Demo.Send)
	api.GET("/demo/chat/stream/:id", deps.Demo.Stream)

	api.GET("/files/*key", deps.Files.Get)

	authed := api.Group("")
	authed.Use(middleware.JWTAuth(deps.JWTSecret))
	authed.GET("/auth/get-token", deps.Auth.GetToken)
	authed.GET("/auth/current-user", deps.Auth.CurrentUser)

	authed.PUT("/user/password", deps.Users.ChangePassword)
	authed.DELETE("/user/delete", deps.Users.Delete)

	authed.POST("/pdf/upload", deps.PDFs.Upload)
	authed.GET("/pdf/get-user-pdfs", deps.PDFs.List)
	authed.DELETE("/pdf/:id", deps.PDFs.Delete)

	authed.GET("/chat", deps.Chats.List)
	authed.POST("/chat", deps.Chats.Save)
	authed.POST("/chat/send", deps.Chats.Send)
	authed.GET("/chat/stream/:id", deps.Chats.Stream)
	authed.GET("/chat/:id", deps.Chats.Get)
}
