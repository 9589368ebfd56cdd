package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
	"github.com/xxxsen/pdfchat/internal/pkg/timeutil"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 5 * time.Second
)

// Upserter hands a stored document to the AI backend for indexing.
type Upserter interface {
	UpsertPDF(ctx context.Context, pdfID, userID, token string) (string, error)
}

// StatusStore records the terminal ingestion status of a pending document.
type StatusStore interface {
	MarkIngestionSuccess(ctx context.Context, pdfID, result string, mtime int64) error
	MarkIngestionFailed(ctx context.Context, pdfID, errMsg string, mtime int64) error
}

type Request struct {
	PdfID  string
	UserID string
	Token  string
}

type Option func(n *Notifier)

func WithAttempts(attempts int) Option {
	return func(n *Notifier) {
		if attempts > 0 {
			n.attempts = attempts
		}
	}
}

func WithDelay(delay time.Duration) Option {
	return func(n *Notifier) {
		if delay >= 0 {
			n.delay = delay
		}
	}
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(n *Notifier) { n.sleep = fn }
}

// Notifier retries ingestion of uploaded documents and records the outcome.
// A document has at most one retry loop running in this process.
type Notifier struct {
	upserter Upserter
	store    StatusStore
	attempts int
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

func NewNotifier(upserter Upserter, store StatusStore, opts ...Option) *Notifier {
	n := &Notifier{
		upserter: upserter,
		store:    store,
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
		sleep:    sleepContext,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Trigger starts ingestion in the background and returns immediately. The run outlives
// ctx cancellation. It reports false when the document is already being ingested.
func (n *Notifier) Trigger(ctx context.Context, req Request) bool {
	if !n.acquire(req.PdfID) {
		return false
	}
	bg := context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer n.release(req.PdfID)
		if err := n.run(bg, req); err != nil {
			logutil.GetLogger(bg).Error("pdf ingestion failed",
				zap.String("pdf_id", req.PdfID), zap.Error(err))
		}
	}()
	return true
}

// Run ingests synchronously. It returns the last backend error once every attempt failed.
func (n *Notifier) Run(ctx context.Context, req Request) error {
	if !n.acquire(req.PdfID) {
		return fmt.Errorf("pdf %s: %w", req.PdfID, appErr.ErrConflict)
	}
	defer n.release(req.PdfID)
	return n.run(ctx, req)
}

func (n *Notifier) InFlight(pdfID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.inflight[pdfID]
	return ok
}

// Wait blocks until all background runs have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) run(ctx context.Context, req Request) error {
	logger := logutil.GetLogger(ctx).With(zap.String("pdf_id", req.PdfID))
	var lastErr error
	for attempt := 1; attempt <= n.attempts; attempt++ {
		if attempt > 1 {
			if err := n.sleep(ctx, n.delay); err != nil {
				lastErr = err
				break
			}
		}
		result, err := n.upserter.UpsertPDF(ctx, req.PdfID, req.UserID, req.Token)
		if err == nil {
			n.record(ctx, n.store.MarkIngestionSuccess(ctx, req.PdfID, result, timeutil.NowUnix()), req.PdfID)
			logger.Info("pdf ingested", zap.Int("attempt", attempt))
			return nil
		}
		lastErr = err
		logger.Warn("pdf ingestion attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}
	n.record(ctx, n.store.MarkIngestionFailed(ctx, req.PdfID, lastErr.Error(), timeutil.NowUnix()), req.PdfID)
	return lastErr
}

func (n *Notifier) record(ctx context.Context, err error, pdfID string) {
	if err == nil {
		return
	}
	logger := logutil.GetLogger(ctx).With(zap.String("pdf_id", pdfID))
	if errors.Is(err, appErr.ErrConflict) {
		logger.Info("ingestion status already final")
		return
	}
	logger.Error("record ingestion status failed", zap.Error(err))
}

func (n *Notifier) acquire(pdfID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.inflight[pdfID]; ok {
		return false
	}
	n.inflight[pdfID] = struct{}{}
	return true
}

func (n *Notifier) release(pdfID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.inflight, pdfID)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
