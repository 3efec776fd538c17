// Package usersettings provides database operations for user settings.
//
// Each setting is a JSON value stored under a unique key. Keys listed in
// entities.SecretSettingKeys are encrypted at rest when an Encryptor is
// configured and are left out of All.
//
// # Usage
//
//	repo := usersettings.NewRepository(db, encryptor)
//	err := repo.Set(ctx, "learningLanguage", json.RawMessage(`"es"`))
//	value, err := repo.Get(ctx, "learningLanguage")
package usersettings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/lingua/internal/crypto"
	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/entities"
)

// Encryptor protects secret setting values. *crypto.Encryptor implements it.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Repository handles all user settings database operations.
type Repository struct {
	db        *gorm.DB
	encryptor Encryptor
}

// NewRepository creates a new settings repository. encryptor may be nil, in
// which case secret values are stored as plain JSON.
func NewRepository(db *gorm.DB, encryptor Encryptor) *Repository {
	return &Repository{db: db, encryptor: encryptor}
}

// Get returns the stored value for key, or crud.ErrNotFound.
func (r *Repository) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var setting entities.UserSetting
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		return nil, crud.Translate(err)
	}
	return r.reveal(setting)
}

// Set creates or replaces the value stored under key.
func (r *Repository) Set(ctx context.Context, key string, value json.RawMessage) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", crud.ErrInvalidField)
	}
	if !json.Valid(value) {
		return fmt.Errorf("%w: value for %s is not valid JSON", crud.ErrInvalidField, key)
	}

	secret := entities.SecretSettingKeys[key]
	stored := value
	if secret && r.encryptor != nil {
		ciphertext, err := r.encryptor.Encrypt(string(value))
		if err != nil {
			return fmt.Errorf("failed to encrypt setting %s: %w", key, err)
		}
		if stored, err = json.Marshal(ciphertext); err != nil {
			return err
		}
	}

	setting := entities.UserSetting{Key: key, Value: stored, Secret: secret}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "secret", "updated_at"}),
	}).Create(&setting).Error
	return crud.Translate(err)
}

// Delete removes a setting by key. Deleting a missing key is not an error.
func (r *Repository) Delete(ctx context.Context, key string) error {
	return crud.Translate(r.db.WithContext(ctx).Where("key = ?", key).Delete(&entities.UserSetting{}).Error)
}

// All returns every non-secret setting keyed by name.
func (r *Repository) All(ctx context.Context) (map[string]json.RawMessage, error) {
	var settings []entities.UserSetting
	if err := r.db.WithContext(ctx).Where("secret = ?", false).Order("key ASC").Find(&settings).Error; err != nil {
		return nil, crud.Translate(err)
	}
	out := make(map[string]json.RawMessage, len(settings))
	for _, s := range settings {
		out[s.Key] = s.Value
	}
	return out, nil
}

func (r *Repository) reveal(setting entities.UserSetting) (json.RawMessage, error) {
	if !setting.Secret || r.encryptor == nil {
		return setting.Value, nil
	}

	var sealed string
	if err := json.Unmarshal(setting.Value, &sealed); err != nil || !crypto.IsEncrypted(sealed) {
		// Written before an encryption key was configured.
		return setting.Value, nil
	}
	plaintext, err := r.encryptor.Decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt setting %s: %w", setting.Key, err)
	}
	if !json.Valid([]byte(plaintext)) {
		return nil, errors.New("decrypted setting is not valid JSON")
	}
	return json.RawMessage(plaintext), nil
}
