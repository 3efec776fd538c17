// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/config"
	"github.com/mrlokans/lingua/internal/ipc"
	"github.com/mrlokans/lingua/internal/tasks"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CachePurgeScheduler removes expired cache objects on a schedule. When a
// task queue is available the purge is enqueued, otherwise it runs inline.
// The enqueuer is consulted on every run, so a queue that comes up later is
// picked up without rebuilding the scheduler.
type CachePurgeScheduler struct {
	cfg      config.Cache
	enqueuer tasks.Enqueuer
	purger   tasks.CachePurger
	emitter  ipc.Emitter
	log      *zap.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewCachePurgeScheduler creates a new scheduler instance. enqueuer may be nil.
func NewCachePurgeScheduler(cfg config.Cache, enqueuer tasks.Enqueuer, purger tasks.CachePurger, emitter ipc.Emitter, log *zap.Logger) *CachePurgeScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if emitter == nil {
		emitter = ipc.NopEmitter
	}
	return &CachePurgeScheduler{
		cfg:      cfg,
		enqueuer: enqueuer,
		purger:   purger,
		emitter:  emitter,
		log:      log.Named("scheduler"),
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// Start begins the scheduler if purging is enabled. It stops when ctx is done.
func (s *CachePurgeScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.PurgeEnabled {
		s.log.Info("cache purge scheduler disabled")
		return nil
	}

	schedule, err := parser.Parse(s.cfg.PurgeSchedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.PurgeSchedule, err)
	}

	s.entryID = s.cron.Schedule(schedule, cron.FuncJob(func() {
		if err := s.run(context.Background()); err != nil {
			s.log.Error("scheduled cache purge failed", zap.Error(err))
		}
	}))

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	s.log.Info("cache purge scheduler started",
		zap.String("schedule", s.cfg.PurgeSchedule),
		zap.Time("next_run", schedule.Next(time.Now())),
	)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running job to finish.
func (s *CachePurgeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron.Remove(s.entryID)
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.isRunning = false

	s.log.Info("cache purge scheduler stopped")
}

// RunNow triggers an immediate purge.
func (s *CachePurgeScheduler) RunNow(ctx context.Context) error {
	return s.run(ctx)
}

// IsRunning reports whether the cron loop is active.
func (s *CachePurgeScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the next purge will occur, or nil when stopped.
func (s *CachePurgeScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return nil
	}
	next := entry.Next
	return &next
}

// run enqueues the purge, falling back to an inline purge while the
// enqueuer reports the queue as unavailable.
func (s *CachePurgeScheduler) run(ctx context.Context) error {
	if s.enqueuer != nil {
		_, err := s.enqueuer.Enqueue(ctx, tasks.PurgeCacheObjectsTask{})
		if err == nil {
			s.log.Debug("cache purge enqueued")
			return nil
		}
		if !errors.Is(err, ipc.ErrUnavailable) {
			return err
		}
		s.log.Debug("task queue unavailable, purging inline", zap.Error(err))
	}
	_, err := tasks.PurgeCache(ctx, s.purger, s.emitter, s.log)
	return err
}
