// Package cloudsync tracks which syncable records changed since they were
// last pushed to the cloud.
package cloudsync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/entities"
)

// Pending is one record waiting to be synced.
type Pending struct {
	Table     string    `json:"table"`
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var syncable = map[string]any{
	entities.Audio{}.TableName():         &entities.Audio{},
	entities.Video{}.TableName():         &entities.Video{},
	entities.Document{}.TableName():      &entities.Document{},
	entities.Recording{}.TableName():     &entities.Recording{},
	entities.Segment{}.TableName():       &entities.Segment{},
	entities.Speech{}.TableName():        &entities.Speech{},
	entities.Transcription{}.TableName(): &entities.Transcription{},
}

// Tables lists the syncable tables in name order.
func Tables() []string {
	names := make([]string, 0, len(syncable))
	for name := range syncable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Repository queries the sync state of syncable tables.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Unsynced lists records of table that were never synced or changed after
// their last sync, oldest change first.
func (r *Repository) Unsynced(ctx context.Context, table string, limit int) ([]Pending, error) {
	model, ok := syncable[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not syncable", crud.ErrInvalidField, table)
	}
	if limit <= 0 {
		limit = crud.DefaultLimit
	}

	var rows []struct {
		ID        string
		UpdatedAt time.Time
	}
	err := r.db.WithContext(ctx).Model(model).
		Select("id", "updated_at").
		Where("synced_at IS NULL OR synced_at < updated_at").
		Order("updated_at ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, crud.Translate(err)
	}

	pending := make([]Pending, 0, len(rows))
	for _, row := range rows {
		pending = append(pending, Pending{Table: table, ID: row.ID, UpdatedAt: row.UpdatedAt})
	}
	return pending, nil
}

// MarkSynced stamps syncedAt without touching updatedAt.
func (r *Repository) MarkSynced(ctx context.Context, table, id string, at time.Time) error {
	model, ok := syncable[table]
	if !ok {
		return fmt.Errorf("%w: %s is not syncable", crud.ErrInvalidField, table)
	}
	result := r.db.WithContext(ctx).Model(model).Where("id = ?", id).UpdateColumn("synced_at", at)
	if result.Error != nil {
		return crud.Translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return crud.ErrNotFound
	}
	return nil
}
