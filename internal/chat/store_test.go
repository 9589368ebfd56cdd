package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfchat/internal/model"
)

type staticSource struct {
	docs     []model.Document
	sessions []model.ChatSession
	err      error
}

func (s staticSource) ListDocuments(ctx context.Context) ([]model.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

func (s staticSource) ListSessions(ctx context.Context) ([]model.ChatSession, error) {
	return s.sessions, nil
}

func TestSetCurrentChatDerivesPdfID(t *testing.T) {
	tests := []struct {
		name   string
		latest string
	}{
		{name: "with document", latest: "pdf-1"},
		{name: "empty document", latest: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.SetCurrentDocument(&model.Document{PdfID: "other"})
			s.SetCurrentChat(&model.ChatSession{ChatSessionID: "s1", LatestPdfID: tt.latest})
			require.Equal(t, tt.latest, s.CurrentPdfID())
			require.Equal(t, "s1", s.CurrentChat().ChatSessionID)
		})
	}
}

func TestSetCurrentChatResolvesKnownDocument(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.FetchOptions(context.Background(), staticSource{docs: []model.Document{
		{PdfID: "pdf-1", PdfName: "a.pdf", IngestionStatus: model.IngestionSuccess},
	}}))
	s.SetCurrentChat(&model.ChatSession{ChatSessionID: "s1", LatestPdfID: "pdf-1"})
	require.NotNil(t, s.CurrentDocument())
	require.Equal(t, "a.pdf", s.CurrentDocument().PdfName)
}

func TestSetCurrentDocumentDerivesPdfID(t *testing.T) {
	s := NewStore()
	s.SetCurrentDocument(&model.Document{PdfID: "pdf-9"})
	require.Equal(t, "pdf-9", s.CurrentPdfID())
	s.SetCurrentDocument(nil)
	require.Equal(t, "", s.CurrentPdfID())
}

func TestFetchOptionsReplacesOrRecordsError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.FetchOptions(ctx, staticSource{
		docs:     []model.Document{{PdfID: "a"}, {PdfID: "b"}},
		sessions: []model.ChatSession{{ChatSessionID: "s1"}},
	}))
	require.NoError(t, s.FetchOptions(ctx, staticSource{docs: []model.Document{{PdfID: "c"}}}))
	snap := s.Snapshot()
	require.Equal(t, []model.Document{{PdfID: "c"}}, snap.Documents)
	require.Empty(t, snap.Sessions)

	err := s.FetchOptions(ctx, staticSource{err: errors.New("offline")})
	require.Error(t, err)
	snap = s.Snapshot()
	require.Equal(t, "offline", snap.OptionsError)
	require.Equal(t, []model.Document{{PdfID: "c"}}, snap.Documents)
}

func TestRegisterSessionIsOptimisticAndCurrent(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.FetchOptions(context.Background(), staticSource{sessions: []model.ChatSession{{ChatSessionID: "old"}}}))
	s.SetCurrentDocument(&model.Document{PdfID: "pdf-1", IngestionStatus: model.IngestionSuccess})

	session := s.RegisterSession("new", "pdf-1")
	require.True(t, session.IsNewSession)

	snap := s.Snapshot()
	require.Equal(t, "new", snap.Sessions[0].ChatSessionID)
	require.Equal(t, "old", snap.Sessions[1].ChatSessionID)
	require.Equal(t, "new", snap.CurrentChat.ChatSessionID)
	require.Equal(t, "pdf-1", snap.CurrentPdfID)
	require.NotNil(t, snap.CurrentDocument)
}

func TestSettingsRejectDisabledOptions(t *testing.T) {
	s := NewStore()
	modelName, retrieval := s.Settings()
	require.Equal(t, "gpt-4o-mini", modelName)
	require.Equal(t, "similarity", retrieval)

	require.ErrorIs(t, s.SetModel("gpt-4o"), ErrOptionUnavailable)
	require.ErrorIs(t, s.SetModel("nope"), ErrOptionUnavailable)
	require.ErrorIs(t, s.SetRetrievalMethod("hybrid"), ErrOptionUnavailable)
	require.NoError(t, s.SetModel("gpt-4o-mini"))
}

func TestResetClearsChatFields(t *testing.T) {
	s := NewStore()
	s.SetCurrentDocument(&model.Document{PdfID: "pdf-1"})
	s.RegisterSession("s1", "pdf-1")
	s.AppendMessage(model.ChatMessage{Role: model.RoleHuman, Content: "hi"})
	s.SetLoading(true)
	s.SetError("bad")
	s.SetInput("draft")

	s.Reset()
	snap := s.Snapshot()
	require.Empty(t, snap.Messages)
	require.False(t, snap.Loading)
	require.Empty(t, snap.Error)
	require.Empty(t, snap.Input)
	require.Nil(t, snap.CurrentChat)
	require.Nil(t, snap.CurrentDocument)
	require.Empty(t, snap.CurrentPdfID)
	require.Equal(t, "gpt-4o-mini", snap.Model)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.AppendMessage(model.ChatMessage{Role: model.RoleHuman, Content: "hi"})
	snap := s.Snapshot()
	snap.Messages[0].Content = "changed"
	require.Equal(t, "hi", s.Messages()[0].Content)
}
