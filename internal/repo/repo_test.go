package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfchat/internal/model"
	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
	"github.com/xxxsen/pdfchat/internal/repo"
	"github.com/xxxsen/pdfchat/internal/testutil"
)

func newPendingDoc(id, userID string, uploadedAt int64) *model.Document {
	return &model.Document{
		PdfID:           id,
		UserID:          userID,
		PdfName:         id + ".pdf",
		PdfURL:          "http://localhost/api/files/" + id,
		StorageKey:      "pdfs/" + id,
		Size:            10,
		IngestionStatus: model.IngestionPending,
		UploadedAt:      uploadedAt,
		Mtime:           uploadedAt,
	}
}

func TestDocumentRepoOwnershipAndDelete(t *testing.T) {
	docs := repo.NewDocumentRepo(testutil.OpenTestDB(t))
	ctx := context.Background()
	require.NoError(t, docs.Create(ctx, newPendingDoc("pdf-1", "user-1", 100)))
	require.ErrorIs(t, docs.Create(ctx, newPendingDoc("pdf-1", "user-1", 100)), appErr.ErrConflict)

	got, err := docs.GetByID(ctx, "user-1", "pdf-1")
	require.NoError(t, err)
	require.Equal(t, model.IngestionPending, got.IngestionStatus)

	_, err = docs.GetByID(ctx, "user-2", "pdf-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.ErrorIs(t, docs.Delete(ctx, "user-2", "pdf-1"), appErr.ErrNotFound)

	require.NoError(t, docs.Delete(ctx, "user-1", "pdf-1"))
	list, err := docs.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestDocumentIngestionStatusIsFinalOnce(t *testing.T) {
	docs := repo.NewDocumentRepo(testutil.OpenTestDB(t))
	ctx := context.Background()
	require.NoError(t, docs.Create(ctx, newPendingDoc("pdf-1", "user-1", 100)))

	require.NoError(t, docs.MarkIngestionSuccess(ctx, "pdf-1", `{"chunks":3}`, 200))
	require.ErrorIs(t, docs.MarkIngestionFailed(ctx, "pdf-1", "late failure", 300), appErr.ErrConflict)

	got, err := docs.GetByID(ctx, "user-1", "pdf-1")
	require.NoError(t, err)
	require.Equal(t, model.IngestionSuccess, got.IngestionStatus)
	require.Equal(t, `{"chunks":3}`, got.IngestionResult)
	require.Empty(t, got.IngestionError)
}

func TestDocumentListStalePending(t *testing.T) {
	docs := repo.NewDocumentRepo(testutil.OpenTestDB(t))
	ctx := context.Background()
	require.NoError(t, docs.Create(ctx, newPendingDoc("old", "user-1", 100)))
	require.NoError(t, docs.Create(ctx, newPendingDoc("fresh", "user-1", 900)))
	require.NoError(t, docs.Create(ctx, newPendingDoc("done", "user-1", 50)))
	require.NoError(t, docs.MarkIngestionFailed(ctx, "done", "boom", 60))

	stale, err := docs.ListStalePending(ctx, 500, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	require.Equal(t, "old", stale[0].PdfID)
}

func TestChatSessionUpsertKeepsOwner(t *testing.T) {
	sessions := repo.NewChatSessionRepo(testutil.OpenTestDB(t))
	ctx := context.Background()
	activity := int64(150)
	session := &model.ChatSession{
		ChatSessionID: "s-1",
		UserID:        "user-1",
		Title:         "first",
		LatestPdfID:   "pdf-1",
		ChatHistory:   []model.ChatMessage{{Role: model.RoleHuman, Content: "hi", PdfID: "pdf-1"}},
		LastActivity:  &activity,
	}
	require.NoError(t, sessions.Upsert(ctx, session, 100))

	session.Title = "renamed"
	session.ChatHistory = append(session.ChatHistory, model.ChatMessage{Role: model.RoleAI, Content: "hello"})
	require.NoError(t, sessions.Upsert(ctx, session, 200))

	stolen := *session
	stolen.UserID = "user-2"
	require.ErrorIs(t, sessions.Upsert(ctx, &stolen, 300), appErr.ErrConflict)

	got, err := sessions.GetByID(ctx, "user-1", "s-1")
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Title)
	require.Len(t, got.ChatHistory, 2)
	require.Equal(t, int64(150), *got.LastActivity)

	_, err = sessions.GetByID(ctx, "user-2", "s-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	owner, err := sessions.OwnerOf(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", owner)
	_, err = sessions.OwnerOf(ctx, "never-saved")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.NoError(t, sessions.DeleteByUser(ctx, "user-1"))
	list, err := sessions.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, list)
}
