package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lingua/internal/database"
	"github.com/mrlokans/lingua/internal/database/cacheobjects"
	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/database/recordings"
	"github.com/mrlokans/lingua/internal/dictionary"
	"github.com/mrlokans/lingua/internal/entities"
	"github.com/mrlokans/lingua/internal/ipc"
	"github.com/mrlokans/lingua/internal/storage"
	"github.com/mrlokans/lingua/internal/storage/providers/local"
)

type recordedEvent struct {
	name    string
	payload any
}

type eventLog struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (l *eventLog) Emit(event string, payload any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recordedEvent{event, payload})
}

func openDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "lingua.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUploadRecordingProcessor(t *testing.T) {
	db := openDB(t)
	repo := recordings.NewRepository(db.DB)
	ctx := context.Background()

	lib := storage.NewLibrary(filepath.Join(t.TempDir(), "library"))
	require.NoError(t, lib.Ensure())
	remote, err := local.NewClient(filepath.Join(t.TempDir(), "remote"))
	require.NoError(t, err)

	rec := &entities.Recording{TargetID: "seg-1", TargetType: entities.TargetSegment, MD5: "abc123", Duration: 1500}
	require.NoError(t, repo.Create(ctx, rec))
	key := lib.RecordingKey(*rec)
	require.NoError(t, os.WriteFile(lib.LocalPath(key), []byte("RIFF...."), 0o644))

	events := &eventLog{}
	process := UploadRecordingProcessor(UploadDeps{
		Recordings: repo,
		Library:    lib,
		Storage:    remote,
		Emitter:    events,
	})

	require.NoError(t, process(ctx, UploadRecordingTask{RecordingID: rec.ID}))

	rc, err := remote.Download(ctx, "recordings/abc123.wav")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "RIFF....", string(data))

	stored, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsUploaded())

	require.Len(t, events.events, 1)
	assert.Equal(t, ipc.EventRecordUploaded, events.events[0].name)
	payload := events.events[0].payload.(UploadedEvent)
	assert.Equal(t, rec.ID, payload.ID)
	assert.Equal(t, "recordings/abc123.wav", payload.Key)

	// Already uploaded: nothing happens
	require.NoError(t, process(ctx, UploadRecordingTask{RecordingID: rec.ID}))
	assert.Len(t, events.events, 1)
}

func TestUploadRecordingProcessor_Errors(t *testing.T) {
	db := openDB(t)
	repo := recordings.NewRepository(db.DB)
	ctx := context.Background()

	lib := storage.NewLibrary(t.TempDir())
	remote, err := local.NewClient(t.TempDir())
	require.NoError(t, err)
	process := UploadRecordingProcessor(UploadDeps{Recordings: repo, Library: lib, Storage: remote})

	err = process(ctx, UploadRecordingTask{RecordingID: "missing"})
	assert.ErrorIs(t, err, crud.ErrNotFound)

	rec := &entities.Recording{TargetID: "seg-1", TargetType: entities.TargetSegment, MD5: "noblob"}
	require.NoError(t, repo.Create(ctx, rec))
	err = process(ctx, UploadRecordingTask{RecordingID: rec.ID})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPurgeCacheObjectsProcessor(t *testing.T) {
	db := openDB(t)
	cache := cacheobjects.NewRepository(db.DB)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "keep", json.RawMessage(`1`), 0))
	require.NoError(t, cache.Set(ctx, "stale", json.RawMessage(`2`), time.Second))
	require.NoError(t, db.DB.Model(&entities.CacheObject{}).
		Where("key = ?", "stale").
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)

	events := &eventLog{}
	process := PurgeCacheObjectsProcessor(cache, events, nil)
	require.NoError(t, process(ctx, PurgeCacheObjectsTask{}))

	_, err := cache.Get(ctx, "keep")
	assert.NoError(t, err)
	var count int64
	require.NoError(t, db.DB.Model(&entities.CacheObject{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.Len(t, events.events, 1)
	assert.Equal(t, ipc.EventCachePurged, events.events[0].name)
	assert.Equal(t, PurgedEvent{Deleted: 1}, events.events[0].payload)

	// Nothing left to purge: no event
	require.NoError(t, process(ctx, PurgeCacheObjectsTask{}))
	assert.Len(t, events.events, 1)
}

type purgerFunc func(ctx context.Context, now time.Time) (int64, error)

func (f purgerFunc) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return f(ctx, now)
}

func TestPurgeCache_Error(t *testing.T) {
	_, err := PurgeCache(context.Background(), purgerFunc(func(context.Context, time.Time) (int64, error) {
		return 0, errors.New("locked")
	}), nil, nil)
	assert.ErrorContains(t, err, "purge cache objects: locked")
}

type stubDictionary struct {
	known map[string]bool
	fail  bool
}

func (s stubDictionary) Name() string { return "stub" }

func (s stubDictionary) Lookup(_ context.Context, word string) (*dictionary.LookupResult, error) {
	if s.fail {
		return nil, errors.New("network down")
	}
	if !s.known[word] {
		return nil, dictionary.ErrWordNotFound
	}
	return &dictionary.LookupResult{Word: word}, nil
}

func TestPrefetch(t *testing.T) {
	client := stubDictionary{known: map[string]bool{"hello": true, "world": true}}

	res := Prefetch(context.Background(), client, []string{"hello", "world", "xyzzy"})
	assert.Equal(t, PrefetchResult{Fetched: 2, Missing: 1}, res)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = Prefetch(ctx, client, []string{"hello"})
	assert.True(t, res.Canceled)
	assert.Zero(t, res.Fetched)
}

func TestPrefetchLookupsProcessor(t *testing.T) {
	ok := PrefetchLookupsProcessor(stubDictionary{known: map[string]bool{"a": true}}, nil)
	assert.NoError(t, ok(context.Background(), PrefetchLookupsTask{Words: []string{"a", "b"}}))

	failing := PrefetchLookupsProcessor(stubDictionary{fail: true}, nil)
	assert.ErrorContains(t, failing(context.Background(), PrefetchLookupsTask{Words: []string{"a", "b"}}), "all 2 lookups failed")

	// An empty batch is not an error
	assert.NoError(t, failing(context.Background(), PrefetchLookupsTask{}))
}
