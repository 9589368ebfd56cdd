package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfchat/internal/model"
)

func TestAPIClientDecodesEnvelope(t *testing.T) {
	var saved model.ChatSession
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/auth/current-user":
			_, _ = w.Write([]byte(`{"code":0,"message":"success","data":{"user":{"id":"u1","email":"a@b.c"}}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/pdf/get-user-pdfs":
			_, _ = w.Write([]byte(`{"code":0,"message":"success","data":{"documents":[{"pdfId":"p1","pdfName":"a.pdf"}]}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/chat":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&saved))
			_, _ = w.Write([]byte(`{"code":0,"message":"success"}`))
		default:
			_, _ = w.Write([]byte(`{"code":10000004,"message":"not found"}`))
		}
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL+"/", "tok")
	ctx := t.Context()

	user, err := api.CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)

	docs, err := api.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "p1", docs[0].PdfID)

	require.NoError(t, api.SaveSession(ctx, &model.ChatSession{ChatSessionID: "s1", LatestPdfID: "p1"}))
	require.Equal(t, "s1", saved.ChatSessionID)

	_, err = api.ListSessions(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestAPIClientReportsGateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL, "").CurrentUser(t.Context())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unauthorized")
}
