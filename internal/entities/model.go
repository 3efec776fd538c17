package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model is embedded by every record keyed by a UUID string.
type Model struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ServerManaged is implemented by records whose bookkeeping columns are
// owned by the backend. ResetServerFields clears them before client input
// is inserted.
type ServerManaged interface {
	ResetServerFields()
}

// ResetServerFields clears the id and timestamps.
func (m *Model) ResetServerFields() {
	m.ID = ""
	m.CreatedAt = time.Time{}
	m.UpdatedAt = time.Time{}
}

func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Syncable tracks when a record was last pushed to the cloud and when its
// blob (if any) was uploaded.
type Syncable struct {
	SyncedAt   *time.Time `gorm:"index" json:"syncedAt,omitempty"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
}

// SyncedSince reports whether a record modified at updatedAt has been synced.
func (s Syncable) SyncedSince(updatedAt time.Time) bool {
	return s.SyncedAt != nil && !s.SyncedAt.Before(updatedAt)
}

// ResetServerFields clears the sync markers.
func (s *Syncable) ResetServerFields() {
	s.SyncedAt = nil
	s.UploadedAt = nil
}

func (s Syncable) IsUploaded() bool {
	return s.UploadedAt != nil
}

// TargetType names the record kinds that recordings, segments and
// transcriptions can point at.
type TargetType string

const (
	TargetAudio    TargetType = "Audio"
	TargetVideo    TargetType = "Video"
	TargetDocument TargetType = "Document"
	TargetSegment  TargetType = "Segment"
)

// Valid reports whether t names a known table.
func (t TargetType) Valid() bool {
	switch t {
	case TargetAudio, TargetVideo, TargetDocument, TargetSegment:
		return true
	}
	return false
}

// All returns every persisted entity, in migration order.
func All() []any {
	return []any{
		&Audio{},
		&Video{},
		&Document{},
		&Recording{},
		&Segment{},
		&Speech{},
		&Transcription{},
		&Chat{},
		&ChatMember{},
		&ChatMessage{},
		&Conversation{},
		&Message{},
		&UserSetting{},
		&CacheObject{},
	}
}
