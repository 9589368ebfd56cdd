package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/pdfchat/internal/chat"
	"github.com/xxxsen/pdfchat/internal/pkg/response"
	"github.com/xxxsen/pdfchat/internal/service"
)

// DemoHandler serves the unauthenticated demo: the preloaded documents and a relay to
// the backend demo chat endpoints.
type DemoHandler struct {
	catalog *service.DemoCatalog
	chats   *service.ChatService
}

func NewDemoHandler(catalog *service.DemoCatalog, chats *service.ChatService) *DemoHandler {
	return &DemoHandler{catalog: catalog, chats: chats}
}

func (h *DemoHandler) Documents(c *gin.Context) {
	response.Success(c, gin.H{"documents": h.catalog.Documents()})
}

func (h *DemoHandler) Options(c *gin.Context) {
	response.Success(c, gin.H{
		"models":            chat.ModelOptions,
		"retrieval_methods": chat.RetrievalOptions,
	})
}

func (h *DemoHandler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	if err := h.chats.DemoSend(c.Request.Context(), req.input()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *DemoHandler) Stream(c *gin.Context) {
	stream, err := h.chats.OpenStream(c.Request.Context(), c.Param("id"), "", true)
	if err != nil {
		handleError(c, err)
		return
	}
	relayStream(c, stream)
}
