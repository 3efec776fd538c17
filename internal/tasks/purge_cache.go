package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/ipc"
)

// CachePurger deletes expired cache objects.
type CachePurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// PurgeCacheObjectsTask removes expired cache objects.
type PurgeCacheObjectsTask struct{}

func (t PurgeCacheObjectsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "purge_cache_objects",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PurgedEvent is emitted after a purge removed expired entries.
type PurgedEvent struct {
	Deleted int64 `json:"deleted"`
}

// PurgeCache deletes expired cache objects and notifies the renderer when
// anything was removed. The scheduler calls it directly when the task
// queue is disabled.
func PurgeCache(ctx context.Context, purger CachePurger, emitter ipc.Emitter, log *zap.Logger) (int64, error) {
	deleted, err := purger.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge cache objects: %w", err)
	}
	if log != nil {
		log.Info("purged expired cache objects", zap.Int64("deleted", deleted))
	}
	if deleted > 0 && emitter != nil {
		emitter.Emit(ipc.EventCachePurged, PurgedEvent{Deleted: deleted})
	}
	return deleted, nil
}

func PurgeCacheObjectsProcessor(purger CachePurger, emitter ipc.Emitter, log *zap.Logger) backlite.QueueProcessor[PurgeCacheObjectsTask] {
	return func(ctx context.Context, task PurgeCacheObjectsTask) error {
		_, err := PurgeCache(ctx, purger, emitter, log)
		return err
	}
}

// NewPurgeCacheObjectsQueue registers the purge processor as a queue.
func NewPurgeCacheObjectsQueue(purger CachePurger, emitter ipc.Emitter, log *zap.Logger) backlite.Queue {
	return backlite.NewQueue(PurgeCacheObjectsProcessor(purger, emitter, log))
}
