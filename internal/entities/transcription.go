package entities

import "encoding/json"

// TranscriptionState is the progress of a transcription job.
type TranscriptionState string

const (
	TranscriptionPending    TranscriptionState = "pending"
	TranscriptionProcessing TranscriptionState = "processing"
	TranscriptionFinished   TranscriptionState = "finished"
)

// CanTransition reports whether a transcription may move from s to next.
// A finished transcription can only be reset to pending.
func (s TranscriptionState) CanTransition(next TranscriptionState) bool {
	if !next.Valid() {
		return false
	}
	if s == TranscriptionFinished {
		return next == TranscriptionPending || next == TranscriptionFinished
	}
	return s.Valid()
}

func (s TranscriptionState) Valid() bool {
	switch s {
	case TranscriptionPending, TranscriptionProcessing, TranscriptionFinished:
		return true
	}
	return false
}

// Transcription holds the speech-to-text result for a target.
type Transcription struct {
	Model
	Syncable
	TargetID   string             `gorm:"uniqueIndex:idx_transcriptions_target;size:36;not null" json:"targetId" validate:"required,max=36"`
	TargetType TargetType         `gorm:"uniqueIndex:idx_transcriptions_target;size:20;not null" json:"targetType" validate:"required,oneof=Audio Video Document Segment"`
	TargetMD5  string             `gorm:"column:target_md5;index;size:32" json:"targetMd5,omitempty"`
	State      TranscriptionState `gorm:"size:20;default:'pending'" json:"state" validate:"omitempty,oneof=pending processing finished"`
	Engine     string             `gorm:"size:50" json:"engine,omitempty"`
	ModelName  string             `gorm:"column:model;size:100" json:"model,omitempty"`
	Language   string             `gorm:"size:16" json:"language,omitempty"`
	Result     json.RawMessage    `gorm:"serializer:json;type:text" json:"result,omitempty"`
}

func (Transcription) TableName() string {
	return "transcriptions"
}

func (t *Transcription) ResetServerFields() {
	t.Model.ResetServerFields()
	t.Syncable.ResetServerFields()
}

func (t Transcription) IsSynced() bool {
	return t.SyncedSince(t.UpdatedAt)
}

func (t Transcription) MarshalJSON() ([]byte, error) {
	type alias Transcription
	return json.Marshal(struct {
		alias
		IsSynced bool `json:"isSynced"`
	}{alias(t), t.IsSynced()})
}
