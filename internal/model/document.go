package model

type IngestionStatus string

const (
	IngestionPending IngestionStatus = "pending"
	IngestionSuccess IngestionStatus = "success"
	IngestionFailed  IngestionStatus = "failed"
)

// Selectable reports whether a document in this state may back a chat.
func (s IngestionStatus) Selectable() bool {
	return s != IngestionPending && s != IngestionFailed
}

// Document is an uploaded PDF and its ingestion state.
type Document struct {
	PdfID           string          `json:"pdfId"`
	UserID          string          `json:"userId,omitempty"`
	PdfName         string          `json:"pdfName"`
	PdfURL          string          `json:"pdfUrl"`
	StorageKey      string          `json:"-"`
	Size            int64           `json:"size"`
	IngestionStatus IngestionStatus `json:"pdfIngestionStatus"`
	IngestionError  string          `json:"ingestionError,omitempty"`
	IngestionResult string          `json:"ingestionResult,omitempty"`
	Summary         string          `json:"summary,omitempty"`
	UploadedAt      int64           `json:"uploadedAt"`
	Mtime           int64           `json:"mtime"`
}
