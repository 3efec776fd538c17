package chats

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/lingua/internal/database"
	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "chats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db.DB), db.DB
}

func TestRepository_CreateWithMembers(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	chat := &entities.Chat{
		Name: "Travel",
		Members: []entities.ChatMember{
			{UserID: "learner", UserType: "User"},
			{UserID: "barista", UserType: "Agent", Config: map[string]any{"voice": "alloy"}},
		},
	}
	require.NoError(t, repo.Create(ctx, chat))

	found, err := repo.FindByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Len(t, found.Members, 2)

	members, err := repo.Members(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, chat.ID, members[0].ChatID)
}

func TestRepository_Messages(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	chat := &entities.Chat{Name: "c"}
	require.NoError(t, repo.Create(ctx, chat))
	member := &entities.ChatMember{UserID: "agent-1", UserType: "Agent"}
	require.NoError(t, repo.AddMember(ctx, chat.ID, member))

	require.NoError(t, repo.AddMessage(ctx, chat.ID, &entities.ChatMessage{Role: "user", Content: "hola"}))
	require.NoError(t, repo.AddMessage(ctx, chat.ID, &entities.ChatMessage{MemberID: &member.ID, Role: "assistant", Content: "buenas"}))

	messages, err := repo.Messages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, entities.ChatMessageStateCompleted, messages[0].State)
	require.NotNil(t, messages[1].MemberID)
	assert.Equal(t, member.ID, *messages[1].MemberID)

	stranger := "not-a-member"
	err = repo.AddMessage(ctx, chat.ID, &entities.ChatMessage{MemberID: &stranger, Role: "assistant"})
	assert.ErrorIs(t, err, crud.ErrInvalidField)

	err = repo.AddMessage(ctx, "missing", &entities.ChatMessage{Role: "user"})
	assert.ErrorIs(t, err, crud.ErrNotFound)
}

func TestRepository_DeleteCascades(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()

	chat := &entities.Chat{Name: "c", Members: []entities.ChatMember{{UserID: "u", UserType: "User"}}}
	require.NoError(t, repo.Create(ctx, chat))
	require.NoError(t, repo.AddMessage(ctx, chat.ID, &entities.ChatMessage{Role: "user", Content: "x"}))

	require.NoError(t, repo.Delete(ctx, chat.ID))

	var members, messages int64
	require.NoError(t, db.Model(&entities.ChatMember{}).Count(&members).Error)
	require.NoError(t, db.Model(&entities.ChatMessage{}).Count(&messages).Error)
	assert.Zero(t, members)
	assert.Zero(t, messages)
}
