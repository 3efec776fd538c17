package entities

import "encoding/json"

// Segment is one caption-aligned slice of a target media file.
type Segment struct {
	Model
	Syncable
	TargetID     string         `gorm:"uniqueIndex:idx_segments_target_index;size:36;not null" json:"targetId" validate:"required,max=36"`
	TargetType   TargetType     `gorm:"uniqueIndex:idx_segments_target_index;size:20;not null" json:"targetType" validate:"required,oneof=Audio Video"`
	SegmentIndex int            `gorm:"uniqueIndex:idx_segments_target_index" json:"segmentIndex" validate:"gte=0"`
	MD5          string         `gorm:"column:md5;size:32" json:"md5,omitempty" validate:"max=32"`
	StartTime    float64        `json:"startTime" validate:"gte=0"` // Seconds
	EndTime      float64        `json:"endTime" validate:"gtefield=StartTime"` // Seconds
	Caption      map[string]any `gorm:"serializer:json;type:text" json:"caption,omitempty"`
}

func (Segment) TableName() string {
	return "segments"
}

func (s *Segment) ResetServerFields() {
	s.Model.ResetServerFields()
	s.Syncable.ResetServerFields()
}

func (s Segment) IsSynced() bool {
	return s.SyncedSince(s.UpdatedAt)
}

func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

func (s Segment) MarshalJSON() ([]byte, error) {
	type alias Segment
	return json.Marshal(struct {
		alias
		IsSynced   bool `json:"isSynced"`
		IsUploaded bool `json:"isUploaded"`
	}{alias(s), s.IsSynced(), s.IsUploaded()})
}
