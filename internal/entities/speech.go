package entities

import "encoding/json"

// Speech is synthesized audio for a piece of text from a source record.
type Speech struct {
	Model
	Syncable
	SourceID      string         `gorm:"index:idx_speeches_source;size:36" json:"sourceId"`
	SourceType    string         `gorm:"index:idx_speeches_source;size:20" json:"sourceType"`
	Text          string         `gorm:"type:text;not null" json:"text" validate:"required"`
	Section       int            `json:"section"`
	Segment       int            `json:"segment"`
	Engine        string         `gorm:"size:50" json:"engine"`
	ModelName     string         `gorm:"column:model;size:100" json:"model"`
	Voice         string         `gorm:"size:100" json:"voice"`
	MD5           string         `gorm:"column:md5;uniqueIndex;size:32;not null" json:"md5" validate:"required,max=32"`
	Extname       string         `gorm:"size:10" json:"extname"`
	Configuration map[string]any `gorm:"serializer:json;type:text" json:"configuration,omitempty"`
}

func (Speech) TableName() string {
	return "speeches"
}

func (s *Speech) ResetServerFields() {
	s.Model.ResetServerFields()
	s.Syncable.ResetServerFields()
}

func (s Speech) IsSynced() bool {
	return s.SyncedSince(s.UpdatedAt)
}

// Filename is the name of the synthesized blob inside the library.
func (s Speech) Filename() string {
	return s.MD5 + s.Extname
}

func (s Speech) MarshalJSON() ([]byte, error) {
	type alias Speech
	return json.Marshal(struct {
		alias
		Filename string `json:"filename"`
		IsSynced bool   `json:"isSynced"`
	}{alias(s), s.Filename(), s.IsSynced()})
}
