package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfchat/internal/ingest"
	"github.com/xxxsen/pdfchat/internal/model"
)

type stubLister struct {
	docs   []model.Document
	err    error
	before int64
	limit  uint
}

func (s *stubLister) ListStalePending(ctx context.Context, before int64, limit uint) ([]model.Document, error) {
	s.before = before
	s.limit = limit
	return s.docs, s.err
}

type stubTrigger struct {
	busy map[string]bool
	reqs []ingest.Request
}

func (s *stubTrigger) Trigger(ctx context.Context, req ingest.Request) bool {
	if s.busy[req.PdfID] {
		return false
	}
	s.reqs = append(s.reqs, req)
	return true
}

func TestIngestSweepTriggersStaleDocuments(t *testing.T) {
	now := time.Unix(10_000, 0)
	lister := &stubLister{docs: []model.Document{
		{PdfID: "a", UserID: "u1"},
		{PdfID: "b", UserID: "u2"},
	}}
	trigger := &stubTrigger{busy: map[string]bool{"b": true}}
	j := NewIngestSweepJob(lister, trigger, "svc-token", 10*time.Minute)
	j.now = func() time.Time { return now }

	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.Add(-10*time.Minute).Unix(), lister.before)
	require.Equal(t, uint(ingestSweepBatch), lister.limit)
	require.Equal(t, []ingest.Request{{PdfID: "a", UserID: "u1", Token: "svc-token"}}, trigger.reqs)
}

func TestIngestSweepReturnsListError(t *testing.T) {
	j := NewIngestSweepJob(&stubLister{err: errors.New("db down")}, &stubTrigger{}, "", 0)
	require.Error(t, j.Run(context.Background()))
}
