package entities

import (
	"encoding/json"
	"time"
)

// UserSetting stores one JSON value per key. Secret values are kept
// encrypted and are never returned verbatim by listing operations.
type UserSetting struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	Key       string          `gorm:"uniqueIndex;size:100;not null" json:"key"`
	Value     json.RawMessage `gorm:"serializer:json;type:text" json:"value"`
	Secret    bool            `gorm:"default:false" json:"secret"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (UserSetting) TableName() string {
	return "user_settings"
}

// Known setting keys
const (
	SettingKeyUser             = "user"
	SettingKeyAccessToken      = "accessToken" // Secret
	SettingKeyLanguage         = "language"    // UI language
	SettingKeyNativeLanguage   = "nativeLanguage"
	SettingKeyLearningLanguage = "learningLanguage"
	SettingKeyLibraryPath      = "libraryPath"
	SettingKeyDefaultEngine    = "defaultEngine"
	SettingKeyRecorderConfig   = "recorderConfig"
)

// SecretSettingKeys are encrypted at rest when an encryption key is configured.
var SecretSettingKeys = map[string]bool{
	SettingKeyAccessToken: true,
}
