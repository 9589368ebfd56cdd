package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfchat/internal/ingest"
	"github.com/xxxsen/pdfchat/internal/model"
)

const ingestSweepBatch = 50

type StalePendingLister interface {
	ListStalePending(ctx context.Context, before int64, limit uint) ([]model.Document, error)
}

type IngestTrigger interface {
	Trigger(ctx context.Context, req ingest.Request) bool
}

// IngestSweepJob re-triggers ingestion for documents stuck in pending, such as uploads
// whose retry loop was lost to a restart.
type IngestSweepJob struct {
	docs         StalePendingLister
	trigger      IngestTrigger
	serviceToken string
	staleAfter   time.Duration
	now          func() time.Time
}

func NewIngestSweepJob(docs StalePendingLister, trigger IngestTrigger, serviceToken string, staleAfter time.Duration) *IngestSweepJob {
	return &IngestSweepJob{
		docs:         docs,
		trigger:      trigger,
		serviceToken: serviceToken,
		staleAfter:   staleAfter,
		now:          time.Now,
	}
}

func (j *IngestSweepJob) Name() string {
	return "ingest_sweep"
}

func (j *IngestSweepJob) Run(ctx context.Context) error {
	if j.docs == nil || j.trigger == nil {
		return nil
	}
	staleAfter := j.staleAfter
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	cutoff := j.now().Add(-staleAfter).Unix()
	docs, err := j.docs.ListStalePending(ctx, cutoff, ingestSweepBatch)
	if err != nil {
		return err
	}
	started := 0
	for _, doc := range docs {
		if j.trigger.Trigger(ctx, ingest.Request{PdfID: doc.PdfID, UserID: doc.UserID, Token: j.serviceToken}) {
			started++
		}
	}
	if len(docs) > 0 {
		logutil.GetLogger(ctx).Info("ingest sweep",
			zap.Int("stale", len(docs)), zap.Int("triggered", started))
	}
	return nil
}
