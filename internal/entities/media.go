package entities

import (
	"encoding/json"
	"strings"
)

// MediaMetadata is stored as JSON on audios and videos.
type MediaMetadata struct {
	Duration float64 `json:"duration,omitempty"` // Seconds
	Extname  string  `json:"extname,omitempty"`  // Including the leading dot
	Size     int64   `json:"size,omitempty"`
	MimeType string  `json:"mimeType,omitempty"`
}

// Media holds the columns shared by audios and videos.
type Media struct {
	Model
	Syncable
	Name               string        `gorm:"size:512" json:"name"`
	Description        string        `gorm:"type:text" json:"description,omitempty"`
	Language           string        `gorm:"index;size:16" json:"language,omitempty"`
	Source             string        `gorm:"size:2048" json:"source,omitempty"`
	MD5                string        `gorm:"column:md5;uniqueIndex;size:32;not null" json:"md5" validate:"required,max=32"`
	CoverURL           string        `gorm:"size:2048" json:"coverUrl,omitempty"`
	Metadata           MediaMetadata `gorm:"serializer:json;type:text" json:"metadata"`
	RecordingsCount    int           `gorm:"default:0" json:"recordingsCount"`
	RecordingsDuration int64         `gorm:"default:0" json:"recordingsDuration"` // Milliseconds
}

// ResetServerFields also clears the recording counters, which only
// recording create and delete maintain.
func (m *Media) ResetServerFields() {
	m.Model.ResetServerFields()
	m.Syncable.ResetServerFields()
	m.RecordingsCount = 0
	m.RecordingsDuration = 0
}

func (m Media) IsSynced() bool {
	return m.SyncedSince(m.UpdatedAt)
}

func (m Media) Duration() float64 {
	return m.Metadata.Duration
}

// Filename is the name of the media file inside the library.
func (m Media) Filename() string {
	ext := m.Metadata.Extname
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return m.MD5 + ext
}

// Audio is an imported audio file.
type Audio struct {
	Media
}

func (Audio) TableName() string {
	return "audios"
}

func (Audio) MediaType() TargetType {
	return TargetAudio
}

func (a Audio) MarshalJSON() ([]byte, error) {
	return marshalMedia(a.Media, TargetAudio)
}

// Video is an imported video file.
type Video struct {
	Media
}

func (Video) TableName() string {
	return "videos"
}

func (Video) MediaType() TargetType {
	return TargetVideo
}

func (v Video) MarshalJSON() ([]byte, error) {
	return marshalMedia(v.Media, TargetVideo)
}

func marshalMedia(m Media, kind TargetType) ([]byte, error) {
	type alias Media
	return json.Marshal(struct {
		alias
		MediaType  TargetType `json:"mediaType"`
		Filename   string     `json:"filename"`
		IsSynced   bool       `json:"isSynced"`
		IsUploaded bool       `json:"isUploaded"`
	}{
		alias:      alias(m),
		MediaType:  kind,
		Filename:   m.Filename(),
		IsSynced:   m.IsSynced(),
		IsUploaded: m.IsUploaded(),
	})
}
