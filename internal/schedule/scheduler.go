package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// CronScheduler runs jobs on five-field cron specs. A job whose previous run is still
// going is skipped, whether it was fired by cron or by RunNow.
type CronScheduler struct {
	cron *cron.Cron

	mu    sync.Mutex
	ctx   context.Context
	tasks map[string]*task
}

type task struct {
	job     Job
	spec    string
	entry   cron.EntryID
	running atomic.Bool
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{
		cron:  cron.New(cron.WithParser(parser)),
		ctx:   context.Background(),
		tasks: make(map[string]*task),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", name), zap.String("spec", spec))
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tasks[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}
	t := &task{job: job, spec: spec}
	entry, err := c.cron.AddFunc(spec, func() { c.execute(t) })
	if err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	t.entry = entry
	c.tasks[name] = t
	logger.Info("job scheduled")
	return nil
}

// RunNow runs a scheduled job once in the caller's goroutine. It reports false when the
// job is unknown or already running.
func (c *CronScheduler) RunNow(name string) bool {
	c.mu.Lock()
	t, ok := c.tasks[name]
	c.mu.Unlock()
	if !ok {
		return false
	}
	return c.execute(t)
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx != nil {
		c.mu.Lock()
		c.ctx = ctx
		c.mu.Unlock()
	}
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	<-c.cron.Stop().Done()
}

func (c *CronScheduler) execute(t *task) bool {
	logger := logutil.GetLogger(context.Background()).With(
		zap.String("job", t.job.Name()),
		zap.String("spec", t.spec),
	)
	if !t.running.CompareAndSwap(false, true) {
		logger.Info("job skipped: still running")
		return false
	}
	defer t.running.Store(false)

	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	start := time.Now()
	err := t.job.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
		return true
	}
	logger.Debug("job finished", zap.Duration("duration", elapsed))
	return true
}
