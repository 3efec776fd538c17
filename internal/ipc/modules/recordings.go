package modules

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/database/recordings"
	"github.com/mrlokans/lingua/internal/entities"
	"github.com/mrlokans/lingua/internal/ipc"
	"github.com/mrlokans/lingua/internal/storage"
	"github.com/mrlokans/lingua/internal/tasks"
)

// TargetRequest names the media a recording was made against.
type TargetRequest struct {
	TargetType entities.TargetType `json:"targetType" validate:"required,oneof=Audio Video Document Segment"`
	TargetID   string              `json:"targetId" validate:"required"`
}

// TaskResult returns the id of an enqueued background task.
type TaskResult struct {
	TaskID string `json:"taskId"`
}

// RestoreResult reports where a recording blob was restored to.
type RestoreResult struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Restored bool   `json:"restored"` // False when the local file was already present
}

// recordingService deletes the recording blob along with its row.
type recordingService struct {
	*recordings.Repository
	blobs *storage.Blobs
	log   *zap.Logger
}

func (s *recordingService) Delete(ctx context.Context, id string) error {
	rec, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repository.Delete(ctx, id); err != nil {
		return err
	}
	if s.blobs == nil {
		return nil
	}
	// The row is gone either way; a leftover blob is only logged.
	key := s.blobs.Library.RecordingKey(*rec)
	if err := s.blobs.Remove(ctx, key); err != nil {
		s.log.Warn("remove recording blob", zap.String("id", id), zap.String("key", key), zap.Error(err))
	}
	return nil
}

// NewRecordings exposes recordings. enqueuer may be nil when the task
// queue is disabled; recordings:upload then reports UNAVAILABLE. blobs may
// be nil when no library is configured.
func NewRecordings(repo *recordings.Repository, enqueuer tasks.Enqueuer, blobs *storage.Blobs, log *zap.Logger) ipc.Module {
	if log == nil {
		log = zap.NewNop()
	}
	svc := &recordingService{Repository: repo, blobs: blobs, log: log}

	return NewEntity[entities.Recording]("recordings", svc,
		ipc.Route{
			Method:      "findByTarget",
			Description: "List recordings of a target, grouped by reference",
			Endpoint: ipc.Typed(func(ctx context.Context, req TargetRequest) ([]entities.Recording, error) {
				return repo.FindByTarget(ctx, req.TargetType, req.TargetID)
			}),
		},
		ipc.Route{
			Method:      "stats",
			Description: "Count and total duration of a target's recordings",
			Endpoint: ipc.Typed(func(ctx context.Context, req TargetRequest) (*entities.RecordingStats, error) {
				return repo.Stats(ctx, req.TargetType, req.TargetID)
			}),
		},
		ipc.Route{
			Method:      "upload",
			Description: "Queue the recording blob for upload to remote storage",
			Endpoint: ipc.Typed(func(ctx context.Context, req IDRequest) (TaskResult, error) {
				if enqueuer == nil {
					return TaskResult{}, ipc.Errorf(ipc.CodeUnavailable, "background tasks are disabled")
				}
				if _, err := repo.FindByID(ctx, req.ID); err != nil {
					return TaskResult{}, err
				}
				ids, err := enqueuer.Enqueue(ctx, tasks.UploadRecordingTask{RecordingID: req.ID})
				if err != nil {
					return TaskResult{}, err
				}
				return TaskResult{TaskID: ids[0]}, nil
			}),
		},
		ipc.Route{
			Method:      "restore",
			Description: "Download the recording blob from remote storage when the local file is missing",
			Endpoint: ipc.Typed(func(ctx context.Context, req IDRequest) (RestoreResult, error) {
				if blobs == nil {
					return RestoreResult{}, ipc.Errorf(ipc.CodeUnavailable, "storage is not configured")
				}
				rec, err := repo.FindByID(ctx, req.ID)
				if err != nil {
					return RestoreResult{}, err
				}
				key := blobs.Library.RecordingKey(*rec)
				restored, err := blobs.Restore(ctx, key)
				if errors.Is(err, storage.ErrNotFound) {
					return RestoreResult{}, ipc.Errorf(ipc.CodeNotFound, "no copy of %s in the library or remote storage", key)
				}
				if err != nil {
					return RestoreResult{}, err
				}
				return RestoreResult{ID: rec.ID, Key: key, Restored: restored}, nil
			}),
		},
		ipc.Route{
			Method:      "remoteFiles",
			Description: "List recording blobs present in remote storage",
			Endpoint: ipc.Typed(func(ctx context.Context, _ ipc.NoArgs) ([]storage.FileInfo, error) {
				if blobs == nil {
					return []storage.FileInfo{}, nil
				}
				return blobs.ListRemote(ctx, "recordings")
			}),
		},
	)
}
