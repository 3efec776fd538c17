package modules

import (
	"context"

	"github.com/mrlokans/lingua/internal/database/chats"
	"github.com/mrlokans/lingua/internal/entities"
	"github.com/mrlokans/lingua/internal/ipc"
)

type AddMemberRequest struct {
	ChatID   string         `json:"chatId" validate:"required"`
	UserID   string         `json:"userId" validate:"required"`
	UserType string         `json:"userType" validate:"required,oneof=User Agent"`
	Config   map[string]any `json:"config,omitempty"`
}

type AddChatMessageRequest struct {
	ChatID   string                    `json:"chatId" validate:"required"`
	MemberID *string                   `json:"memberId,omitempty"`
	Role     string                    `json:"role" validate:"required"`
	Content  string                    `json:"content"`
	State    entities.ChatMessageState `json:"state,omitempty" validate:"omitempty,oneof=pending completed"`
	Extra    map[string]any            `json:"extra,omitempty"`
}

// NewChats exposes chats, their members and their messages.
func NewChats(repo *chats.Repository) ipc.Module {
	return NewEntity[entities.Chat]("chats", repo,
		ipc.Route{
			Method:      "members",
			Description: "List the members of a chat",
			Endpoint: ipc.Typed(func(ctx context.Context, req IDRequest) ([]entities.ChatMember, error) {
				return repo.Members(ctx, req.ID)
			}),
		},
		ipc.Route{
			Method:      "addMember",
			Description: "Add a learner or agent to a chat",
			Endpoint: ipc.Typed(func(ctx context.Context, req AddMemberRequest) (*entities.ChatMember, error) {
				member := &entities.ChatMember{UserID: req.UserID, UserType: req.UserType, Config: req.Config}
				if err := repo.AddMember(ctx, req.ChatID, member); err != nil {
					return nil, err
				}
				return member, nil
			}),
		},
		ipc.Route{
			Method:      "messages",
			Description: "List a chat's messages oldest first",
			Endpoint: ipc.Typed(func(ctx context.Context, req IDRequest) ([]entities.ChatMessage, error) {
				return repo.Messages(ctx, req.ID)
			}),
		},
		ipc.Route{
			Method:      "addMessage",
			Description: "Append a message to a chat",
			Endpoint: ipc.Typed(func(ctx context.Context, req AddChatMessageRequest) (*entities.ChatMessage, error) {
				message := &entities.ChatMessage{
					MemberID: req.MemberID,
					Role:     req.Role,
					Content:  req.Content,
					State:    req.State,
					Extra:    req.Extra,
				}
				if err := repo.AddMessage(ctx, req.ChatID, message); err != nil {
					return nil, err
				}
				return message, nil
			}),
		},
	)
}
