// Package chats provides database operations for multi-member chats.
package chats

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/entities"
)

type Repository struct {
	*crud.Repository[entities.Chat]
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Repository: crud.New[entities.Chat](db, crud.Fields{
			Filterable: map[string]string{
				"name":     "name",
				"type":     "type",
				"language": "language",
			},
			Updatable:    []string{"name", "language", "topic", "config"},
			DefaultOrder: "updatedAt desc",
			Preloads:     []string{"Members"},
		}),
		db: db,
	}
}

// Delete removes the chat together with its members and messages.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&entities.ChatMessage{}).Error; err != nil {
			return crud.Translate(err)
		}
		if err := tx.Where("chat_id = ?", id).Delete(&entities.ChatMember{}).Error; err != nil {
			return crud.Translate(err)
		}
		result := tx.Delete(&entities.Chat{}, "id = ?", id)
		if result.Error != nil {
			return crud.Translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return crud.ErrNotFound
		}
		return nil
	})
}

// Members lists the members of a chat.
func (r *Repository) Members(ctx context.Context, chatID string) ([]entities.ChatMember, error) {
	if err := r.exists(r.db.WithContext(ctx), chatID); err != nil {
		return nil, err
	}
	members := make([]entities.ChatMember, 0)
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("created_at ASC").Find(&members).Error; err != nil {
		return nil, crud.Translate(err)
	}
	return members, nil
}

// AddMember attaches member to chat chatID.
func (r *Repository) AddMember(ctx context.Context, chatID string, member *entities.ChatMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.exists(tx, chatID); err != nil {
			return err
		}
		member.ChatID = chatID
		return crud.Translate(tx.Create(member).Error)
	})
}

// Messages lists the messages of a chat in creation order.
func (r *Repository) Messages(ctx context.Context, chatID string) ([]entities.ChatMessage, error) {
	if err := r.exists(r.db.WithContext(ctx), chatID); err != nil {
		return nil, err
	}
	messages := make([]entities.ChatMessage, 0)
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("created_at ASC").Find(&messages).Error; err != nil {
		return nil, crud.Translate(err)
	}
	return messages, nil
}

// AddMessage appends a message; when MemberID is set it must name a member of the chat.
func (r *Repository) AddMessage(ctx context.Context, chatID string, message *entities.ChatMessage) error {
	if message.Role == "" {
		return fmt.Errorf("%w: role is required", crud.ErrInvalidField)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.exists(tx, chatID); err != nil {
			return err
		}
		if message.MemberID != nil {
			var count int64
			err := tx.Model(&entities.ChatMember{}).
				Where("id = ? AND chat_id = ?", *message.MemberID, chatID).
				Count(&count).Error
			if err != nil {
				return crud.Translate(err)
			}
			if count == 0 {
				return fmt.Errorf("%w: member %s is not part of chat %s", crud.ErrInvalidField, *message.MemberID, chatID)
			}
		}
		if message.State == "" {
			message.State = entities.ChatMessageStateCompleted
		}
		message.ChatID = chatID
		return crud.Translate(tx.Create(message).Error)
	})
}

func (r *Repository) exists(db *gorm.DB, chatID string) error {
	var count int64
	if err := db.Model(&entities.Chat{}).Where("id = ?", chatID).Count(&count).Error; err != nil {
		return crud.Translate(err)
	}
	if count == 0 {
		return crud.ErrNotFound
	}
	return nil
}
