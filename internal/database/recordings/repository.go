// Package recordings provides database operations for learner recordings.
// Creating or deleting a recording keeps the recordingsCount and
// recordingsDuration counters of its audio or video target in step.
package recordings

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/entities"
)

// Repository stores recordings and keeps target counters in step.
type Repository struct {
	*crud.Repository[entities.Recording]
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Repository: crud.New[entities.Recording](db, crud.Fields{
			Filterable: map[string]string{
				"targetId":    "target_id",
				"targetType":  "target_type",
				"referenceId": "reference_id",
				"md5":         "md5",
				"language":    "language",
				"syncedAt":    "synced_at",
				"uploadedAt":  "uploaded_at",
			},
			Updatable:    []string{"referenceText", "language"},
			DefaultOrder: "createdAt desc",
		}),
		db: db,
	}
}

// Create inserts the recording and bumps its target's counters.
func (r *Repository) Create(ctx context.Context, recording *entities.Recording) error {
	if !recording.TargetType.Valid() {
		return fmt.Errorf("%w: unknown target type %q", crud.ErrInvalidField, recording.TargetType)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(recording).Error; err != nil {
			return crud.Translate(err)
		}
		return adjustTarget(tx, recording, 1)
	})
}

// Delete removes the recording and reverses its contribution to the target's counters.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recording entities.Recording
		if err := tx.First(&recording, "id = ?", id).Error; err != nil {
			return crud.Translate(err)
		}
		if err := tx.Delete(&recording).Error; err != nil {
			return crud.Translate(err)
		}
		return adjustTarget(tx, &recording, -1)
	})
}

// FindByTarget lists recordings of a target by reference, newest first.
func (r *Repository) FindByTarget(ctx context.Context, targetType entities.TargetType, targetID string) ([]entities.Recording, error) {
	recordings := make([]entities.Recording, 0)
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("reference_id ASC, created_at DESC").
		Find(&recordings).Error
	if err != nil {
		return nil, crud.Translate(err)
	}
	return recordings, nil
}

// Stats returns the count and total duration of recordings for a target.
func (r *Repository) Stats(ctx context.Context, targetType entities.TargetType, targetID string) (*entities.RecordingStats, error) {
	stats := &entities.RecordingStats{TargetID: targetID, TargetType: targetType}
	err := r.db.WithContext(ctx).Model(&entities.Recording{}).
		Select("COUNT(*) AS count, COALESCE(SUM(duration), 0) AS duration").
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Row().Scan(&stats.Count, &stats.Duration)
	if err != nil {
		return nil, fmt.Errorf("failed to compute recording stats: %w", err)
	}
	return stats, nil
}

// MarkUploaded records that the recording blob reached remote storage.
func (r *Repository) MarkUploaded(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&entities.Recording{}).
		Where("id = ?", id).
		UpdateColumn("uploaded_at", at)
	if result.Error != nil {
		return crud.Translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return crud.ErrNotFound
	}
	return nil
}

func adjustTarget(tx *gorm.DB, recording *entities.Recording, sign int) error {
	var table string
	switch recording.TargetType {
	case entities.TargetAudio:
		table = entities.Audio{}.TableName()
	case entities.TargetVideo:
		table = entities.Video{}.TableName()
	default:
		return nil
	}

	err := tx.Table(table).
		Where("id = ?", recording.TargetID).
		UpdateColumns(map[string]any{
			"recordings_count":    gorm.Expr("recordings_count + ?", sign),
			"recordings_duration": gorm.Expr("recordings_duration + ?", int64(sign)*recording.Duration),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update %s counters: %w", table, err)
	}
	return nil
}
