package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/pdfchat/internal/model"
	"github.com/xxxsen/pdfchat/internal/pkg/response"
	"github.com/xxxsen/pdfchat/internal/service"
)

type ChatHandler struct {
	chats *service.ChatService
}

func NewChatHandler(chats *service.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

func (h *ChatHandler) List(c *gin.Context) {
	sessions, err := h.chats.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	if sessions == nil {
		sessions = []model.ChatSession{}
	}
	response.Success(c, gin.H{"sessions": sessions})
}

// Get returns one session, or its rendered transcript when format=html.
func (h *ChatHandler) Get(c *gin.Context) {
	if c.Query("format") == "html" {
		html, err := h.chats.RenderHTML(c.Request.Context(), getUserID(c), c.Param("id"))
		if err != nil {
			handleError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
		return
	}
	session, err := h.chats.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, session)
}

func (h *ChatHandler) Save(c *gin.Context) {
	var req model.ChatSession
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	saved, err := h.chats.Save(c.Request.Context(), getUserID(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, saved)
}

type sendRequest struct {
	Message         string `json:"message"`
	ChatSessionID   string `json:"chat_session_id"`
	PdfID           string `json:"pdf_id"`
	PdfIDAlt        string `json:"pdfId"`
	Model           string `json:"model"`
	RetrievalMethod string `json:"retrieval_method"`
}

func (r sendRequest) input() service.SendInput {
	pdfID := r.PdfID
	if pdfID == "" {
		pdfID = r.PdfIDAlt
	}
	return service.SendInput{
		Message:         r.Message,
		ChatSessionID:   r.ChatSessionID,
		PdfID:           pdfID,
		Model:           r.Model,
		RetrievalMethod: r.RetrievalMethod,
	}
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	if err := h.chats.Send(c.Request.Context(), getUserID(c), getToken(c), req.input()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ChatHandler) Stream(c *gin.Context) {
	stream, err := h.chats.OpenUserStream(c.Request.Context(), getUserID(c), c.Param("id"), getToken(c))
	if err != nil {
		handleError(c, err)
		return
	}
	relayStream(c, stream)
}
