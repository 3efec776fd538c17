package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lingua/internal/entities"
)

func TestLibrary_Ensure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "library")
	lib := NewLibrary(root)

	require.NoError(t, lib.Ensure())
	for _, dir := range libraryDirs {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent
	assert.NoError(t, lib.Ensure())
}

func TestLibrary_Keys(t *testing.T) {
	lib := NewLibrary("/lib")

	assert.Equal(t, "recordings/abc.wav", lib.RecordingKey(entities.Recording{MD5: "abc"}))
	assert.Equal(t, "recordings/abc.webm", lib.RecordingKey(entities.Recording{MD5: "abc", Extname: ".webm"}))
	assert.Equal(t, filepath.Join("/lib", "recordings", "abc.wav"), lib.LocalPath("recordings/abc.wav"))
}

func TestLibrary_Open(t *testing.T) {
	lib := NewLibrary(t.TempDir())
	require.NoError(t, lib.Ensure())

	_, err := lib.Open("recordings/missing.wav")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(lib.LocalPath("recordings/x.wav"), []byte("RIFF"), 0o644))
	f, err := lib.Open("recordings/x.wav")
	require.NoError(t, err)
	assert.NoError(t, f.Close())
}
