package cloudsync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/lingua/internal/database"
	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db.DB), db.DB
}

func TestRepository_UnsyncedAndMarkSynced(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()

	first := &entities.Audio{Media: entities.Media{MD5: "1"}}
	second := &entities.Audio{Media: entities.Media{MD5: "2"}}
	require.NoError(t, db.Create(first).Error)
	require.NoError(t, db.Create(second).Error)

	pending, err := repo.Unsynced(ctx, "audios", 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	require.NoError(t, repo.MarkSynced(ctx, "audios", first.ID, time.Now()))

	pending, err = repo.Unsynced(ctx, "audios", 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	var synced entities.Audio
	require.NoError(t, db.First(&synced, "id = ?", first.ID).Error)
	assert.True(t, synced.IsSynced())

	// A later edit makes the record pending again.
	require.NoError(t, db.Model(&synced).Update("name", "renamed").Error)
	require.NoError(t, db.First(&synced, "id = ?", first.ID).Error)
	assert.False(t, synced.IsSynced())
}

func TestRepository_Errors(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.Unsynced(ctx, "user_settings", 10)
	assert.ErrorIs(t, err, crud.ErrInvalidField)

	assert.ErrorIs(t, repo.MarkSynced(ctx, "audios", "missing", time.Now()), crud.ErrNotFound)
	assert.ErrorIs(t, repo.MarkSynced(ctx, "chats", "x", time.Now()), crud.ErrInvalidField)
}

func TestTables(t *testing.T) {
	assert.Equal(t, []string{"audios", "documents", "recordings", "segments", "speeches", "transcriptions", "videos"}, Tables())
}
