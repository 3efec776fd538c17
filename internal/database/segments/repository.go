// Package segments provides database operations for caption-aligned media segments.
package segments

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/entities"
)

type Repository struct {
	*crud.Repository[entities.Segment]
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Repository: crud.New[entities.Segment](db, crud.Fields{
			Filterable: map[string]string{
				"targetId":     "target_id",
				"targetType":   "target_type",
				"segmentIndex": "segment_index",
				"md5":          "md5",
				"syncedAt":     "synced_at",
			},
			Updatable:    []string{"md5", "startTime", "endTime", "caption"},
			DefaultOrder: "segmentIndex asc",
		}),
		db: db,
	}
}

// FindOrCreateParams identifies a segment by its target and index; the
// remaining fields are only used when the segment does not exist yet.
type FindOrCreateParams struct {
	TargetID     string              `json:"targetId" validate:"required"`
	TargetType   entities.TargetType `json:"targetType" validate:"required,oneof=Audio Video"`
	SegmentIndex int                 `json:"segmentIndex" validate:"gte=0"`
	StartTime    float64             `json:"startTime" validate:"gte=0"`
	EndTime      float64             `json:"endTime" validate:"gtefield=StartTime"`
	Caption      map[string]any      `json:"caption,omitempty"`
}

// FindOrCreate returns the existing segment for (target, index) or creates it.
func (r *Repository) FindOrCreate(ctx context.Context, p FindOrCreateParams) (*entities.Segment, error) {
	if !p.TargetType.Valid() {
		return nil, fmt.Errorf("%w: unknown target type %q", crud.ErrInvalidField, p.TargetType)
	}

	db := r.db.WithContext(ctx)
	var segment entities.Segment
	err := db.Where("target_id = ? AND target_type = ? AND segment_index = ?", p.TargetID, p.TargetType, p.SegmentIndex).
		First(&segment).Error
	if err == nil {
		return &segment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, crud.Translate(err)
	}

	segment = entities.Segment{
		TargetID:     p.TargetID,
		TargetType:   p.TargetType,
		SegmentIndex: p.SegmentIndex,
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		Caption:      p.Caption,
	}
	if err := db.Create(&segment).Error; err != nil {
		return nil, crud.Translate(err)
	}
	return &segment, nil
}
