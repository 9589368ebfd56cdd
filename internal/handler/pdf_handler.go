package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/pdfchat/internal/middleware"
	"github.com/xxxsen/pdfchat/internal/pkg/errcode"
	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
	"github.com/xxxsen/pdfchat/internal/pkg/response"
	"github.com/xxxsen/pdfchat/internal/service"
)

type PDFHandler struct {
	docs    *service.DocumentService
	maxSize int64
}

func NewPDFHandler(docs *service.DocumentService, maxSize int64) *PDFHandler {
	return &PDFHandler{docs: docs, maxSize: maxSize}
}

// Upload accepts multipart form fields file, userId and userName. The response is sent
// once the document is stored as pending; ingestion finishes in the background.
func (h *PDFHandler) Upload(c *gin.Context) {
	if c.ContentType() != "multipart/form-data" {
		response.Error(c, errcode.ErrInvalid, "multipart/form-data required")
		return
	}
	limitRequestBody(c, h.maxSize)
	identity, _ := middleware.IdentityFrom(c)
	userID := getUserID(c)
	if formUser := strings.TrimSpace(c.PostForm("userId")); formUser != "" && formUser != userID {
		handleError(c, appErr.ErrForbidden)
		return
	}
	userName := strings.TrimSpace(c.PostForm("userName"))
	if userName == "" {
		userName = identity.Name
	}
	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, errcode.ErrInvalidFile, "file exceeds "+formatUploadLimit(h.maxSize))
			return
		}
		response.Error(c, errcode.ErrInvalid, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "failed to read file")
		return
	}
	defer func() { _ = file.Close() }()

	doc, err := h.docs.Upload(c.Request.Context(), service.UploadInput{
		UserID:      userID,
		UserName:    userName,
		Token:       getToken(c),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		BaseURL:     requestBaseURL(c),
	})
	if err != nil {
		if errors.Is(err, appErr.ErrInvalidFile) && h.maxSize > 0 && header.Size > h.maxSize {
			response.Error(c, errcode.ErrInvalidFile, fmt.Sprintf("file exceeds %s", formatUploadLimit(h.maxSize)))
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *PDFHandler) List(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"documents": docs})
}

func (h *PDFHandler) Delete(c *gin.Context) {
	if err := h.docs.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
