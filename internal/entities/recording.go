package entities

import "encoding/json"

// Recording is a learner's take on a piece of target media, usually a
// single referenced sentence.
type Recording struct {
	Model
	Syncable
	TargetID      string     `gorm:"index:idx_recordings_target;size:36;not null" json:"targetId" validate:"required,max=36"`
	TargetType    TargetType `gorm:"index:idx_recordings_target;size:20;not null" json:"targetType" validate:"required,oneof=Audio Video Document Segment"`
	ReferenceID   int        `json:"referenceId"`
	ReferenceText string     `gorm:"type:text" json:"referenceText,omitempty"`
	MD5           string     `gorm:"column:md5;uniqueIndex;size:32;not null" json:"md5" validate:"required,max=32"`
	Extname       string     `gorm:"size:10" json:"extname,omitempty" validate:"max=10"`
	Duration      int64      `json:"duration" validate:"gte=0"` // Milliseconds
	Language      string     `gorm:"size:16" json:"language,omitempty"`
}

func (Recording) TableName() string {
	return "recordings"
}

func (r *Recording) ResetServerFields() {
	r.Model.ResetServerFields()
	r.Syncable.ResetServerFields()
}

func (r Recording) IsSynced() bool {
	return r.SyncedSince(r.UpdatedAt)
}

// Filename is the name of the recording blob inside the library.
func (r Recording) Filename() string {
	ext := r.Extname
	if ext == "" {
		ext = ".wav"
	}
	return r.MD5 + ext
}

func (r Recording) MarshalJSON() ([]byte, error) {
	type alias Recording
	return json.Marshal(struct {
		alias
		Filename   string `json:"filename"`
		IsSynced   bool   `json:"isSynced"`
		IsUploaded bool   `json:"isUploaded"`
	}{alias(r), r.Filename(), r.IsSynced(), r.IsUploaded()})
}

// RecordingStats summarizes the recordings made against one target.
type RecordingStats struct {
	TargetID   string     `json:"targetId"`
	TargetType TargetType `json:"targetType"`
	Count      int64      `json:"count"`
	Duration   int64      `json:"duration"` // Milliseconds
}
