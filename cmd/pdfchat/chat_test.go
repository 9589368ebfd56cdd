package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfchat/internal/chat"
	"github.com/xxxsen/pdfchat/internal/model"
)

func TestPickDocument(t *testing.T) {
	docs := []model.Document{
		{PdfID: "a", PdfName: "A", IngestionStatus: model.IngestionPending},
		{PdfID: "b", PdfName: "B", IngestionStatus: model.IngestionSuccess},
	}
	doc, err := pickDocument(docs, "")
	require.NoError(t, err)
	require.Equal(t, "b", doc.PdfID)

	_, err = pickDocument(docs, "a")
	require.ErrorIs(t, err, chat.ErrDocumentNotReady)

	_, err = pickDocument(docs, "missing")
	require.Error(t, err)

	_, err = pickDocument(nil, "")
	require.ErrorIs(t, err, chat.ErrNoDocument)
}

func TestRunChatDemo(t *testing.T) {
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/demo/pdfs":
			_, _ = io.WriteString(w, `{"code":0,"message":"","data":{"documents":[`+
				`{"pdfId":"bitcoin","pdfName":"Bitcoin","pdfIngestionStatus":"success"}]}}`)
		case r.URL.Path == "/chat_send":
			raw, _ := io.ReadAll(r.Body)
			sent = append(sent, string(raw))
		case strings.HasPrefix(r.URL.Path, "/demo_chat_stream/"):
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, "data: {\"type\":\"chunk\",\"content\":\"Hel\"}\n\n"+
				"data: {\"type\":\"chunk\",\"content\":\"lo\"}\n\n"+
				"event: end\ndata:\n\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out := &bytes.Buffer{}
	opts := &chatOptions{
		endpoint:        srv.URL,
		api:             srv.URL,
		demo:            true,
		model:           chat.DefaultModel(),
		retrievalMethod: chat.DefaultRetrievalMethod(),
	}
	err := runChat(context.Background(), opts, strings.NewReader("what is it?\n/quit\n"), out)
	require.NoError(t, err)
	require.Contains(t, out.String(), "chatting with Bitcoin")
	require.Contains(t, out.String(), "Hello")
	require.Len(t, sent, 1)
	require.Contains(t, sent[0], `"pdfId":"bitcoin"`)
}

func TestRunChatRequiresToken(t *testing.T) {
	err := runChat(context.Background(), &chatOptions{}, strings.NewReader(""), io.Discard)
	require.Error(t, err)
}
