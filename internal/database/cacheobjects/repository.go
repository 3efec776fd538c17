// Package cacheobjects provides a keyed JSON cache persisted in the database.
// Expired entries read as misses and are removed lazily on access or in bulk
// by PurgeExpired.
package cacheobjects

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/entities"
)

// Repository stores cache entries with a per-entry TTL.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Get returns crud.ErrNotFound for missing and expired keys.
func (r *Repository) Get(ctx context.Context, key string) (json.RawMessage, error) {
	db := r.db.WithContext(ctx)
	var object entities.CacheObject
	if err := db.Where("key = ?", key).First(&object).Error; err != nil {
		return nil, crud.Translate(err)
	}
	if object.Expired(r.now()) {
		if err := db.Delete(&object).Error; err != nil {
			return nil, crud.Translate(err)
		}
		return nil, crud.ErrNotFound
	}
	return object.Value, nil
}

// Set stores value under key. A zero ttl keeps the value until deleted.
func (r *Repository) Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", crud.ErrInvalidField)
	}
	if !json.Valid(value) {
		return fmt.Errorf("%w: cache value is not valid JSON", crud.ErrInvalidField)
	}
	if ttl < 0 {
		return fmt.Errorf("%w: ttl must not be negative", crud.ErrInvalidField)
	}

	now := r.now()
	object := entities.CacheObject{
		Key:       key,
		Value:     value,
		TTL:       ttlSeconds(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "ttl", "updated_at"}),
	}).Create(&object).Error
	return crud.Translate(err)
}

// ttlSeconds rounds up, so a positive sub-second ttl still expires.
func ttlSeconds(ttl time.Duration) int64 {
	return int64((ttl + time.Second - 1) / time.Second)
}

// Delete removes key. A missing key is not an error.
func (r *Repository) Delete(ctx context.Context, key string) error {
	return crud.Translate(r.db.WithContext(ctx).Where("key = ?", key).Delete(&entities.CacheObject{}).Error)
}

// PurgeExpired deletes every entry expired at now and reports how many were removed.
func (r *Repository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	db := r.db.WithContext(ctx)

	var candidates []entities.CacheObject
	if err := db.Select("id", "ttl", "updated_at").Where("ttl > 0").Find(&candidates).Error; err != nil {
		return 0, crud.Translate(err)
	}

	var expired []uint
	for _, object := range candidates {
		if object.Expired(now) {
			expired = append(expired, object.ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	result := db.Delete(&entities.CacheObject{}, expired)
	if result.Error != nil {
		return 0, crud.Translate(result.Error)
	}
	return result.RowsAffected, nil
}
