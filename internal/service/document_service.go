package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfchat/internal/filestore"
	"github.com/xxxsen/pdfchat/internal/ingest"
	"github.com/xxxsen/pdfchat/internal/model"
	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
	"github.com/xxxsen/pdfchat/internal/pkg/timeutil"
)

const (
	PDFContentType = "application/pdf"
	keyPrefixLen   = 8
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, userID, pdfID string) (*model.Document, error)
	ListByUser(ctx context.Context, userID string) ([]model.Document, error)
	Delete(ctx context.Context, userID, pdfID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type IngestTrigger interface {
	Trigger(ctx context.Context, req ingest.Request) bool
}

type UploadInput struct {
	UserID      string
	UserName    string
	Token       string
	FileName    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
	// BaseURL is the request origin, used by stores serving objects through this process.
	BaseURL string
}

type DocumentService struct {
	docs    DocumentRepository
	store   filestore.Store
	ingest  IngestTrigger
	maxSize int64
	newID   func() string
}

func NewDocumentService(docs DocumentRepository, store filestore.Store, trigger IngestTrigger, maxSize int64) *DocumentService {
	return &DocumentService{docs: docs, store: store, ingest: trigger, maxSize: maxSize, newID: newID}
}

// Upload stores the PDF, records it as pending and starts ingestion in the background.
// The returned document is still pending; callers learn the outcome by listing again.
func (s *DocumentService) Upload(ctx context.Context, in UploadInput) (*model.Document, error) {
	if err := validateUpload(in, s.maxSize); err != nil {
		return nil, err
	}
	pdfID := s.newID()
	fileName := cleanFileName(in.FileName)
	key := StorageKey(in.UserID, pdfID, fileName)
	if err := s.store.Save(ctx, key, in.Body, in.Size, PDFContentType); err != nil {
		return nil, fmt.Errorf("save pdf: %w", err)
	}
	now := timeutil.NowUnix()
	doc := &model.Document{
		PdfID:           pdfID,
		UserID:          in.UserID,
		PdfName:         fileName,
		PdfURL:          s.store.URL(key, in.BaseURL),
		StorageKey:      key,
		Size:            in.Size,
		IngestionStatus: model.IngestionPending,
		UploadedAt:      now,
		Mtime:           now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			logutil.GetLogger(ctx).Warn("remove orphan pdf failed", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	s.ingest.Trigger(ctx, ingest.Request{PdfID: pdfID, UserID: in.UserID, Token: in.Token})
	logutil.GetLogger(ctx).Info("pdf uploaded",
		zap.String("pdf_id", pdfID), zap.String("user_id", in.UserID), zap.Int64("size", in.Size))
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, userID string) ([]model.Document, error) {
	return s.docs.ListByUser(ctx, userID)
}

func (s *DocumentService) Get(ctx context.Context, userID, pdfID string) (*model.Document, error) {
	return s.docs.GetByID(ctx, userID, pdfID)
}

func (s *DocumentService) Delete(ctx context.Context, userID, pdfID string) error {
	doc, err := s.docs.GetByID(ctx, userID, pdfID)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, userID, pdfID); err != nil {
		return err
	}
	s.removeObject(ctx, doc.StorageKey)
	return nil
}

// PurgeUser removes every document of the user and its stored object.
func (s *DocumentService) PurgeUser(ctx context.Context, userID string) error {
	docs, err := s.docs.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.docs.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	for _, doc := range docs {
		s.removeObject(ctx, doc.StorageKey)
	}
	return nil
}

func (s *DocumentService) removeObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, appErr.ErrNotFound) {
		logutil.GetLogger(ctx).Warn("delete stored pdf failed", zap.String("key", key), zap.Error(err))
	}
}

func validateUpload(in UploadInput, maxSize int64) error {
	switch {
	case strings.TrimSpace(in.Token) == "":
		return fmt.Errorf("missing bearer token: %w", appErr.ErrUnauthorized)
	case strings.TrimSpace(in.UserID) == "", strings.TrimSpace(in.UserName) == "":
		return fmt.Errorf("user id and name are required: %w", appErr.ErrInvalid)
	case in.Body == nil || in.FileName == "":
		return fmt.Errorf("file is required: %w", appErr.ErrInvalid)
	case mediaType(in.ContentType) != PDFContentType:
		return fmt.Errorf("only pdf files are accepted: %w", appErr.ErrInvalidFile)
	case in.Size <= 0:
		return fmt.Errorf("file is empty: %w", appErr.ErrInvalidFile)
	case maxSize > 0 && in.Size > maxSize:
		return fmt.Errorf("file exceeds %d bytes: %w", maxSize, appErr.ErrInvalidFile)
	}
	return nil
}

// StorageKey namespaces an object by the leading characters of the user and document ids.
func StorageKey(userID, pdfID, fileName string) string {
	return path.Join("pdfs", truncate(userID, keyPrefixLen), truncate(pdfID, keyPrefixLen), fileName)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "document.pdf"
	}
	return name
}

func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
