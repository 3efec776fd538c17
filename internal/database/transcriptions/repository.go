// Package transcriptions provides database operations for media transcriptions.
// A target has at most one transcription, which moves through
// pending -> processing -> finished and can be reset to pending.
package transcriptions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/entities"
)

var ErrInvalidTransition = fmt.Errorf("%w: invalid state transition", crud.ErrInvalidField)

type Repository struct {
	*crud.Repository[entities.Transcription]
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Repository: crud.New[entities.Transcription](db, crud.Fields{
			Filterable: map[string]string{
				"targetId":   "target_id",
				"targetType": "target_type",
				"targetMd5":  "target_md5",
				"state":      "state",
				"engine":     "engine",
				"syncedAt":   "synced_at",
			},
			Updatable:    []string{"language", "engine", "model"},
			DefaultOrder: "updatedAt desc",
		}),
		db: db,
	}
}

// FindOrCreateParams identifies the transcription of one target.
type FindOrCreateParams struct {
	TargetID   string              `json:"targetId" validate:"required"`
	TargetType entities.TargetType `json:"targetType" validate:"required"`
	TargetMD5  string              `json:"targetMd5,omitempty"`
	Language   string              `json:"language,omitempty"`
}

// FindOrCreateByTarget returns the target's transcription, creating a
// pending one on first use.
func (r *Repository) FindOrCreateByTarget(ctx context.Context, p FindOrCreateParams) (*entities.Transcription, error) {
	if !p.TargetType.Valid() {
		return nil, fmt.Errorf("%w: unknown target type %q", crud.ErrInvalidField, p.TargetType)
	}

	db := r.db.WithContext(ctx)
	var transcription entities.Transcription
	err := db.Where("target_id = ? AND target_type = ?", p.TargetID, p.TargetType).First(&transcription).Error
	if err == nil {
		return &transcription, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, crud.Translate(err)
	}

	transcription = entities.Transcription{
		TargetID:   p.TargetID,
		TargetType: p.TargetType,
		TargetMD5:  p.TargetMD5,
		Language:   p.Language,
		State:      entities.TranscriptionPending,
	}
	if err := db.Create(&transcription).Error; err != nil {
		return nil, crud.Translate(err)
	}
	return &transcription, nil
}

// UpdateResultParams moves a transcription to a new state with its result.
type UpdateResultParams struct {
	State    entities.TranscriptionState `json:"state" validate:"required,oneof=pending processing finished"`
	Engine   string                      `json:"engine,omitempty"`
	Model    string                      `json:"model,omitempty"`
	Language string                      `json:"language,omitempty"`
	Result   json.RawMessage             `json:"result,omitempty"`
}

// UpdateResult moves the transcription to a new state, storing the engine
// output alongside. Resetting to pending clears the previous result.
func (r *Repository) UpdateResult(ctx context.Context, id string, p UpdateResultParams) (*entities.Transcription, error) {
	var updated *entities.Transcription
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var transcription entities.Transcription
		if err := tx.First(&transcription, "id = ?", id).Error; err != nil {
			return crud.Translate(err)
		}
		if !transcription.State.CanTransition(p.State) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, transcription.State, p.State)
		}

		transcription.State = p.State
		if p.Engine != "" {
			transcription.Engine = p.Engine
		}
		if p.Model != "" {
			transcription.ModelName = p.Model
		}
		if p.Language != "" {
			transcription.Language = p.Language
		}
		switch {
		case p.State == entities.TranscriptionPending:
			transcription.Result = nil
		case len(p.Result) > 0:
			transcription.Result = p.Result
		}

		if err := tx.Save(&transcription).Error; err != nil {
			return crud.Translate(err)
		}
		updated = &transcription
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
