package entities

import (
	"encoding/json"
	"time"
)

// Document is an imported text document such as an ebook or article.
type Document struct {
	Model
	Syncable
	Title            string          `gorm:"size:512" json:"title"`
	Language         string          `gorm:"index;size:16" json:"language,omitempty"`
	Source           string          `gorm:"size:2048" json:"source,omitempty"`
	MD5              string          `gorm:"column:md5;uniqueIndex;size:32;not null" json:"md5" validate:"required,max=32"`
	Metadata         map[string]any  `gorm:"serializer:json;type:text" json:"metadata,omitempty"`
	Config           map[string]any  `gorm:"serializer:json;type:text" json:"config,omitempty"`
	LastReadPosition json.RawMessage `gorm:"serializer:json;type:text" json:"lastReadPosition,omitempty"`
	LastReadAt       *time.Time      `json:"lastReadAt,omitempty"`
}

func (Document) TableName() string {
	return "documents"
}

func (d *Document) ResetServerFields() {
	d.Model.ResetServerFields()
	d.Syncable.ResetServerFields()
}

func (d Document) IsSynced() bool {
	return d.SyncedSince(d.UpdatedAt)
}

func (d Document) MarshalJSON() ([]byte, error) {
	type alias Document
	return json.Marshal(struct {
		alias
		IsSynced   bool `json:"isSynced"`
		IsUploaded bool `json:"isUploaded"`
	}{alias(d), d.IsSynced(), d.IsUploaded()})
}
