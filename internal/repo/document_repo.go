package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/pdfchat/internal/model"
	"github.com/xxxsen/pdfchat/internal/pkg/dbutil"
	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
)

const documentTable = "pdf_documents"

var documentFields = []string{
	"pdf_id", "user_id", "pdf_name", "pdf_url", "storage_key", "size",
	"ingestion_status", "ingestion_error", "ingestion_result", "summary", "uploaded_at", "mtime",
}

type documentRow struct {
	PdfID           string `db:"pdf_id"`
	UserID          string `db:"user_id"`
	PdfName         string `db:"pdf_name"`
	PdfURL          string `db:"pdf_url"`
	StorageKey      string `db:"storage_key"`
	Size            int64  `db:"size"`
	IngestionStatus string `db:"ingestion_status"`
	IngestionError  string `db:"ingestion_error"`
	IngestionResult string `db:"ingestion_result"`
	Summary         string `db:"summary"`
	UploadedAt      int64  `db:"uploaded_at"`
	Mtime           int64  `db:"mtime"`
}

func (r documentRow) toModel() model.Document {
	return model.Document{
		PdfID:           r.PdfID,
		UserID:          r.UserID,
		PdfName:         r.PdfName,
		PdfURL:          r.PdfURL,
		StorageKey:      r.StorageKey,
		Size:            r.Size,
		IngestionStatus: model.IngestionStatus(r.IngestionStatus),
		IngestionError:  r.IngestionError,
		IngestionResult: r.IngestionResult,
		Summary:         r.Summary,
		UploadedAt:      r.UploadedAt,
		Mtime:           r.Mtime,
	}
}

type DocumentRepo struct {
	db *sqlx.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: sqlx.NewDb(db, "postgres")}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"pdf_id":           doc.PdfID,
		"user_id":          doc.UserID,
		"pdf_name":         doc.PdfName,
		"pdf_url":          doc.PdfURL,
		"storage_key":      doc.StorageKey,
		"size":             doc.Size,
		"ingestion_status": string(doc.IngestionStatus),
		"ingestion_error":  doc.IngestionError,
		"ingestion_result": doc.IngestionResult,
		"summary":          doc.Summary,
		"uploaded_at":      doc.UploadedAt,
		"mtime":            doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert(documentTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, userID, pdfID string) (*model.Document, error) {
	where := map[string]interface{}{"user_id": userID, "pdf_id": pdfID}
	docs, err := r.selectDocs(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &docs[0], nil
}

func (r *DocumentRepo) ListByUser(ctx context.Context, userID string) ([]model.Document, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "uploaded_at desc",
	}
	return r.selectDocs(ctx, where)
}

// ListStalePending returns documents still pending that were uploaded before the cutoff.
func (r *DocumentRepo) ListStalePending(ctx context.Context, before int64, limit uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"ingestion_status": string(model.IngestionPending),
		"uploaded_at <":    before,
		"_orderby":         "uploaded_at asc",
		"_limit":           []uint{0, limit},
	}
	return r.selectDocs(ctx, where)
}

func (r *DocumentRepo) selectDocs(ctx context.Context, where map[string]interface{}) ([]model.Document, error) {
	sqlStr, args, err := builder.BuildSelect(documentTable, where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	docs := make([]model.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.toModel())
	}
	return docs, nil
}

// MarkIngestionSuccess moves a pending document to success. Non-pending documents are left alone.
func (r *DocumentRepo) MarkIngestionSuccess(ctx context.Context, pdfID, result string, mtime int64) error {
	return r.finishIngestion(ctx, pdfID, map[string]interface{}{
		"ingestion_status": string(model.IngestionSuccess),
		"ingestion_result": result,
		"ingestion_error":  "",
		"mtime":            mtime,
	})
}

// MarkIngestionFailed moves a pending document to failed. Non-pending documents are left alone.
func (r *DocumentRepo) MarkIngestionFailed(ctx context.Context, pdfID, errMsg string, mtime int64) error {
	return r.finishIngestion(ctx, pdfID, map[string]interface{}{
		"ingestion_status": string(model.IngestionFailed),
		"ingestion_error":  errMsg,
		"mtime":            mtime,
	})
}

func (r *DocumentRepo) finishIngestion(ctx context.Context, pdfID string, update map[string]interface{}) error {
	where := map[string]interface{}{
		"pdf_id":           pdfID,
		"ingestion_status": string(model.IngestionPending),
	}
	sqlStr, args, err := builder.BuildUpdate(documentTable, where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrConflict
	}
	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, userID, pdfID string) error {
	sqlStr, args, err := builder.BuildDelete(documentTable, map[string]interface{}{"user_id": userID, "pdf_id": pdfID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) DeleteByUser(ctx context.Context, userID string) error {
	sqlStr, args, err := builder.BuildDelete(documentTable, map[string]interface{}{"user_id": userID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
