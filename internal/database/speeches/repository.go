// Package speeches provides database operations for synthesized speech.
package speeches

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/entities"
)

type Repository struct {
	*crud.Repository[entities.Speech]
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Repository: crud.New[entities.Speech](db, crud.Fields{
			Filterable: map[string]string{
				"sourceId":   "source_id",
				"sourceType": "source_type",
				"engine":     "engine",
				"voice":      "voice",
				"md5":        "md5",
				"syncedAt":   "synced_at",
			},
			Updatable:    []string{"configuration"},
			DefaultOrder: "createdAt desc",
		}),
		db: db,
	}
}

// FindBySource lists the speech generated for a source record in reading order.
func (r *Repository) FindBySource(ctx context.Context, sourceType, sourceID string) ([]entities.Speech, error) {
	speeches := make([]entities.Speech, 0)
	err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Order("section ASC, segment ASC, created_at ASC").
		Find(&speeches).Error
	if err != nil {
		return nil, crud.Translate(err)
	}
	return speeches, nil
}
