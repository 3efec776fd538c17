// Package conversations provides database operations for AI conversations
// and their messages.
package conversations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/entities"
)

type Repository struct {
	*crud.Repository[entities.Conversation]
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Repository: crud.New[entities.Conversation](db, crud.Fields{
			Filterable: map[string]string{
				"type":     "type",
				"engine":   "engine",
				"name":     "name",
				"language": "language",
			},
			Updatable:    []string{"name", "language", "configuration"},
			DefaultOrder: "updatedAt desc",
		}),
		db: db,
	}
}

// Delete removes the conversation together with its messages.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&entities.Message{}).Error; err != nil {
			return crud.Translate(err)
		}
		result := tx.Delete(&entities.Conversation{}, "id = ?", id)
		if result.Error != nil {
			return crud.Translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return crud.ErrNotFound
		}
		return nil
	})
}

// Messages returns the conversation's messages oldest first.
func (r *Repository) Messages(ctx context.Context, conversationID string) ([]entities.Message, error) {
	if err := r.exists(ctx, conversationID); err != nil {
		return nil, err
	}
	messages := make([]entities.Message, 0)
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, crud.Translate(err)
	}
	return messages, nil
}

// AddMessage appends message to the conversation.
func (r *Repository) AddMessage(ctx context.Context, conversationID string, message *entities.Message) error {
	if !message.Role.Valid() {
		return fmt.Errorf("%w: unknown message role %q", crud.ErrInvalidField, message.Role)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Conversation{}).Where("id = ?", conversationID).Count(&count).Error; err != nil {
			return crud.Translate(err)
		}
		if count == 0 {
			return crud.ErrNotFound
		}

		message.ConversationID = conversationID
		if err := tx.Create(message).Error; err != nil {
			return crud.Translate(err)
		}
		// Keep the conversation at the top of updatedAt-ordered listings.
		return tx.Model(&entities.Conversation{}).Where("id = ?", conversationID).
			Update("updated_at", message.CreatedAt).Error
	})
}

func (r *Repository) exists(ctx context.Context, id string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Conversation{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return crud.Translate(err)
	}
	if count == 0 {
		return crud.ErrNotFound
	}
	return nil
}
