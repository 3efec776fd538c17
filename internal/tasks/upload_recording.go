package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/entities"
	"github.com/mrlokans/lingua/internal/ipc"
	"github.com/mrlokans/lingua/internal/storage"
)

// RecordingStore is the part of the recordings repository used by uploads.
type RecordingStore interface {
	FindByID(ctx context.Context, id string) (*entities.Recording, error)
	MarkUploaded(ctx context.Context, id string, at time.Time) error
}

// UploadRecordingTask copies a recording blob from the library to remote storage.
type UploadRecordingTask struct {
	RecordingID string `json:"recording_id"`
}

func (t UploadRecordingTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "upload_recording",
		MaxAttempts: 5,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// UploadedEvent is pushed to the renderer after a successful upload.
type UploadedEvent struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// UploadDeps are the collaborators of the upload processor.
type UploadDeps struct {
	Recordings RecordingStore
	Library    *storage.Library
	Storage    storage.Client
	Emitter    ipc.Emitter
	Log        *zap.Logger
}

func UploadRecordingProcessor(deps UploadDeps) backlite.QueueProcessor[UploadRecordingTask] {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	emitter := deps.Emitter
	if emitter == nil {
		emitter = ipc.NopEmitter
	}

	return func(ctx context.Context, task UploadRecordingTask) error {
		recording, err := deps.Recordings.FindByID(ctx, task.RecordingID)
		if err != nil {
			return fmt.Errorf("get recording %s: %w", task.RecordingID, err)
		}
		if recording.IsUploaded() {
			return nil
		}

		key := deps.Library.RecordingKey(*recording)
		f, err := deps.Library.Open(key)
		if err != nil {
			return fmt.Errorf("open recording blob: %w", err)
		}
		defer f.Close()

		if err := deps.Storage.Upload(ctx, key, f); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}

		now := time.Now().UTC()
		if err := deps.Recordings.MarkUploaded(ctx, recording.ID, now); err != nil {
			return fmt.Errorf("mark recording %s uploaded: %w", recording.ID, err)
		}

		log.Info("recording uploaded", zap.String("id", recording.ID), zap.String("key", key))
		emitter.Emit(ipc.EventRecordUploaded, UploadedEvent{ID: recording.ID, Key: key, UploadedAt: now})
		return nil
	}
}

// NewUploadRecordingQueue registers the upload processor as a queue.
func NewUploadRecordingQueue(deps UploadDeps) backlite.Queue {
	return backlite.NewQueue(UploadRecordingProcessor(deps))
}
