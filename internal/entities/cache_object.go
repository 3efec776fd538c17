package entities

import (
	"encoding/json"
	"time"
)

// CacheObject is a keyed JSON value with an optional time-to-live.
type CacheObject struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	Key       string          `gorm:"uniqueIndex;size:512;not null" json:"key"`
	Value     json.RawMessage `gorm:"serializer:json;type:text" json:"value"`
	TTL       int64           `gorm:"column:ttl;default:0" json:"ttl"` // Seconds, 0 means no expiry
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `gorm:"index" json:"updatedAt"`
}

func (CacheObject) TableName() string {
	return "cache_objects"
}

// ExpiresAt returns the zero time when the object never expires.
func (c CacheObject) ExpiresAt() time.Time {
	if c.TTL <= 0 {
		return time.Time{}
	}
	return c.UpdatedAt.Add(time.Duration(c.TTL) * time.Second)
}

// Expired reports whether the entry outlived its TTL at now.
func (c CacheObject) Expired(now time.Time) bool {
	if c.TTL <= 0 {
		return false
	}
	return !now.Before(c.ExpiresAt())
}
