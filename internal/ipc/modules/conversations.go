package modules

import (
	"context"

	"github.com/mrlokans/lingua/internal/database/conversations"
	"github.com/mrlokans/lingua/internal/entities"
	"github.com/mrlokans/lingua/internal/ipc"
)

type AddMessageRequest struct {
	ConversationID string               `json:"conversationId" validate:"required"`
	Role           entities.MessageRole `json:"role" validate:"required,oneof=system user assistant"`
	Content        string               `json:"content"`
	Extra          map[string]any       `json:"extra,omitempty"`
}

// NewConversations exposes conversations and their messages.
func NewConversations(repo *conversations.Repository) ipc.Module {
	return NewEntity[entities.Conversation]("conversations", repo,
		ipc.Route{
			Method:      "messages",
			Description: "List a conversation's messages oldest first",
			Endpoint: ipc.Typed(func(ctx context.Context, req IDRequest) ([]entities.Message, error) {
				return repo.Messages(ctx, req.ID)
			}),
		},
		ipc.Route{
			Method:      "addMessage",
			Description: "Append a message to a conversation",
			Endpoint: ipc.Typed(func(ctx context.Context, req AddMessageRequest) (*entities.Message, error) {
				message := &entities.Message{Role: req.Role, Content: req.Content, Extra: req.Extra}
				if err := repo.AddMessage(ctx, req.ConversationID, message); err != nil {
					return nil, err
				}
				return message, nil
			}),
		},
	)
}
