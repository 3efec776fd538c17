package modules

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lingua/internal/database"
	"github.com/mrlokans/lingua/internal/database/usersettings"
	"github.com/mrlokans/lingua/internal/dictionary"
	"github.com/mrlokans/lingua/internal/ipc"
	"github.com/mrlokans/lingua/internal/storage"
	"github.com/mrlokans/lingua/internal/storage/providers/local"
)

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []backlite.Task
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, ts ...backlite.Task) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, ts...)
	return []string{"task-1"}, nil
}

type stubDictionary struct{}

func (stubDictionary) Name() string { return "stub" }

func (stubDictionary) Lookup(_ context.Context, word string) (*dictionary.LookupResult, error) {
	if word == "missing" {
		return nil, dictionary.ErrWordNotFound
	}
	return &dictionary.LookupResult{Word: word, Source: "stub", Definitions: []dictionary.Definition{{Definition: "a word"}}}, nil
}

type harness struct {
	reg   *ipc.Registry
	db    *database.Database
	blobs *storage.Blobs
}

func newHarness(t *testing.T, enqueuer *fakeEnqueuer) *harness {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "lingua.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	library := storage.NewLibrary(filepath.Join(t.TempDir(), "library"))
	require.NoError(t, library.Ensure())
	remote, err := local.NewClient(filepath.Join(t.TempDir(), "remote"))
	require.NoError(t, err)
	blobs := storage.NewBlobs(library, remote)

	deps := Deps{
		DB:         db.DB,
		Settings:   usersettings.NewRepository(db.DB, nil),
		Dictionary: stubDictionary{},
		Blobs:      blobs,
		CacheTTL:   time.Hour,
	}
	if enqueuer != nil {
		deps.Enqueuer = enqueuer
	}

	reg := ipc.NewRegistry(ipc.Config{Timeout: 5 * time.Second})
	require.NoError(t, Register(reg, Data(deps)...))
	reg.MarkReady()
	return &harness{reg: reg, db: db, blobs: blobs}
}

// call dispatches args and decodes the JSON form of the result into out.
func (h *harness) call(t *testing.T, channel string, args any, out any) *ipc.Envelope {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)

	result, envelope := h.reg.Dispatch(context.Background(), channel, raw)
	if envelope != nil {
		return envelope
	}
	if out != nil {
		data, err := json.Marshal(result)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return nil
}

func (h *harness) mustCall(t *testing.T, channel string, args any, out any) {
	t.Helper()
	if envelope := h.call(t, channel, args, out); envelope != nil {
		t.Fatalf("%s failed: %s %s", channel, envelope.Code, envelope.Message)
	}
}

type record map[string]any

func TestData_RegistersExpectedChannels(t *testing.T) {
	h := newHarness(t, nil)

	for _, channel := range []string{
		"audios:findAll", "audios:findById", "audios:create", "audios:update", "audios:delete", "audios:findByMd5",
		"videos:findByMd5", "documents:findByMd5",
		"recordings:findByTarget", "recordings:stats", "recordings:upload",
		"recordings:restore", "recordings:remoteFiles",
		"segments:findOrCreate", "speeches:findBySource",
		"transcriptions:findOrCreate", "transcriptions:updateResult",
		"conversations:messages", "conversations:addMessage",
		"chats:members", "chats:addMember", "chats:messages", "chats:addMessage",
		"cacheObjects:get", "cacheObjects:set", "cacheObjects:delete",
		"userSettings:get", "userSettings:set", "userSettings:delete", "userSettings:all",
		"dictionary:lookup", "dictionary:prefetch",
		"sync:tables", "sync:pending", "sync:markSynced",
	} {
		assert.True(t, h.reg.Has(channel), channel)
	}
}

func TestEntity_CRUDRoundTrip(t *testing.T) {
	h := newHarness(t, nil)

	var created record
	h.mustCall(t, "audios:create", record{"name": "Lesson 1", "md5": "m1", "language": "en"}, &created)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "Lesson 1", created["name"])

	var found record
	h.mustCall(t, "audios:findById", record{"id": id}, &found)
	assert.Equal(t, "m1", found["md5"])

	var updated record
	h.mustCall(t, "audios:update", record{"id": id, "patch": record{"name": "Lesson One"}}, &updated)
	assert.Equal(t, "Lesson One", updated["name"])

	var page struct {
		Items []record `json:"items"`
		Total int64    `json:"total"`
	}
	h.mustCall(t, "audios:findAll", record{"where": record{"language": "en"}}, &page)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)

	var byMD5 record
	h.mustCall(t, "audios:findByMd5", record{"md5": "m1"}, &byMD5)
	assert.Equal(t, id, byMD5["id"])

	var deleted DeleteResult
	h.mustCall(t, "audios:delete", record{"id": id}, &deleted)
	assert.Equal(t, DeleteResult{ID: id, Deleted: true}, deleted)

	envelope := h.call(t, "audios:findById", record{"id": id}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeNotFound, envelope.Code)
	assert.Equal(t, "audios:findById", envelope.Method)
}

func TestEntity_Errors(t *testing.T) {
	h := newHarness(t, nil)
	h.mustCall(t, "videos:create", record{"name": "Clip", "md5": "v1"}, nil)

	tests := []struct {
		name    string
		channel string
		args    any
		code    ipc.Code
	}{
		{"duplicate md5", "videos:create", record{"name": "Again", "md5": "v1"}, ipc.CodeConflict},
		{"unknown create field", "videos:create", record{"md5": "v2", "bogus": 1}, ipc.CodeInvalidArgument},
		{"missing id", "videos:findById", record{}, ipc.CodeInvalidArgument},
		{"empty patch", "videos:update", record{"id": "x", "patch": record{}}, ipc.CodeInvalidArgument},
		{"non-updatable attribute", "videos:update", record{"id": "x", "patch": record{"md5": "zz"}}, ipc.CodeInvalidArgument},
		{"bad order", "videos:findAll", record{"order": "password desc"}, ipc.CodeInvalidArgument},
		{"limit too large", "videos:findAll", record{"limit": 5000}, ipc.CodeInvalidArgument},
		{"delete missing", "videos:delete", record{"id": "missing"}, ipc.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope := h.call(t, tt.channel, tt.args, nil)
			require.NotNil(t, envelope)
			assert.Equal(t, tt.code, envelope.Code, envelope.Message)
		})
	}
}

func TestEntity_CreateRequiresIdentifyingFields(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		name    string
		channel string
		args    record
	}{
		{"audio without md5", "audios:create", record{"name": "no hash"}},
		{"video without md5", "videos:create", record{"name": "no hash"}},
		{"document without md5", "documents:create", record{"title": "no hash"}},
		{"md5 too long", "audios:create", record{"name": "long", "md5": strings.Repeat("a", 33)}},
		{"recording without target id", "recordings:create", record{"targetType": "Audio", "md5": "r9"}},
		{"recording without target type", "recordings:create", record{"targetId": "a1", "md5": "r9"}},
		{"recording with unknown target type", "recordings:create", record{"targetId": "a1", "targetType": "Book", "md5": "r9"}},
		{"recording without md5", "recordings:create", record{"targetId": "a1", "targetType": "Audio"}},
		{"segment without target id", "segments:create", record{"targetType": "Video", "startTime": 0, "endTime": 1}},
		{"segment ending before start", "segments:create", record{"targetId": "v1", "targetType": "Video", "startTime": 2, "endTime": 1}},
		{"speech without text", "speeches:create", record{"sourceId": "s1", "sourceType": "Document", "md5": "sp9"}},
		{"transcription without target id", "transcriptions:create", record{"targetType": "Audio"}},
		{"transcription with unknown state", "transcriptions:create", record{"targetId": "a1", "targetType": "Audio", "state": "done"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope := h.call(t, tt.channel, tt.args, nil)
			require.NotNil(t, envelope)
			assert.Equal(t, ipc.CodeInvalidArgument, envelope.Code, envelope.Message)
		})
	}

	// Two rejected hashless creates must not collide on the unique md5 index.
	envelope := h.call(t, "audios:create", record{"name": "no hash"}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeInvalidArgument, envelope.Code)
}

func TestEntity_CreateIgnoresServerFields(t *testing.T) {
	h := newHarness(t, nil)

	var audio record
	h.mustCall(t, "audios:create", record{
		"id": "my-own-id", "name": "A", "md5": "a1",
		"recordingsCount": 42, "recordingsDuration": 9000,
		"syncedAt": "2099-01-01T00:00:00Z", "uploadedAt": "2099-01-01T00:00:00Z",
		"createdAt": "2000-01-01T00:00:00Z",
	}, &audio)
	assert.NotEqual(t, "my-own-id", audio["id"])
	assert.NotEmpty(t, audio["id"])
	assert.EqualValues(t, 0, audio["recordingsCount"])
	assert.EqualValues(t, 0, audio["recordingsDuration"])
	assert.Equal(t, false, audio["isSynced"])
	assert.Equal(t, false, audio["isUploaded"])
	assert.NotContains(t, audio["createdAt"], "2000-01-01")

	var rec record
	h.mustCall(t, "recordings:create", record{
		"targetType": "Audio", "targetId": audio["id"], "md5": "r1", "syncedAt": "2099-01-01T00:00:00Z",
	}, &rec)
	assert.Equal(t, false, rec["isSynced"])

	var chat record
	h.mustCall(t, "chats:create", record{"name": "Cafe", "members": []record{{"userId": "x", "userType": "Agent"}}}, &chat)
	var members []record
	h.mustCall(t, "chats:members", record{"id": chat["id"]}, &members)
	assert.Empty(t, members)
}

func TestRecordings(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := newHarness(t, enq)

	var audio record
	h.mustCall(t, "audios:create", record{"name": "A", "md5": "a1"}, &audio)
	target := record{"targetType": "Audio", "targetId": audio["id"]}

	var rec record
	h.mustCall(t, "recordings:create", record{"targetType": "Audio", "targetId": audio["id"], "md5": "r1", "duration": 1200, "referenceId": 1}, &rec)
	h.mustCall(t, "recordings:create", record{"targetType": "Audio", "targetId": audio["id"], "md5": "r2", "duration": 800, "referenceId": 2}, nil)

	var list []record
	h.mustCall(t, "recordings:findByTarget", target, &list)
	assert.Len(t, list, 2)

	var stats struct {
		Count    int64 `json:"count"`
		Duration int64 `json:"duration"`
	}
	h.mustCall(t, "recordings:stats", target, &stats)
	assert.Equal(t, int64(2), stats.Count)
	assert.Equal(t, int64(2000), stats.Duration)

	var task TaskResult
	h.mustCall(t, "recordings:upload", record{"id": rec["id"]}, &task)
	assert.Equal(t, "task-1", task.TaskID)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, "upload_recording", enq.tasks[0].Config().Name)

	envelope := h.call(t, "recordings:upload", record{"id": "missing"}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeNotFound, envelope.Code)

	envelope = h.call(t, "recordings:findByTarget", record{"targetType": "Book", "targetId": "x"}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeInvalidArgument, envelope.Code)
}

func TestRecordings_Blobs(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	var rec record
	h.mustCall(t, "recordings:create", record{"targetType": "Audio", "targetId": "a1", "md5": "r1", "extname": ".wav"}, &rec)
	key := "recordings/r1.wav"
	require.NoError(t, h.blobs.Remote.Upload(ctx, key, strings.NewReader("take one")))

	var files []storage.FileInfo
	h.mustCall(t, "recordings:remoteFiles", nil, &files)
	require.Len(t, files, 1)
	assert.Equal(t, "r1.wav", files[0].Name)

	var restored RestoreResult
	h.mustCall(t, "recordings:restore", record{"id": rec["id"]}, &restored)
	assert.Equal(t, RestoreResult{ID: rec["id"].(string), Key: key, Restored: true}, restored)
	data, err := os.ReadFile(h.blobs.Library.LocalPath(key))
	require.NoError(t, err)
	assert.Equal(t, "take one", string(data))

	h.mustCall(t, "recordings:restore", record{"id": rec["id"]}, &restored)
	assert.False(t, restored.Restored)

	h.mustCall(t, "recordings:delete", record{"id": rec["id"]}, nil)
	assert.False(t, h.blobs.Library.Exists(key))
	exists, err := h.blobs.Remote.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	h.mustCall(t, "recordings:create", record{"targetType": "Audio", "targetId": "a1", "md5": "r2"}, &rec)
	envelope := h.call(t, "recordings:restore", record{"id": rec["id"]}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeNotFound, envelope.Code)
}

func TestRecordings_UploadWithoutTaskQueue(t *testing.T) {
	h := newHarness(t, nil)

	envelope := h.call(t, "recordings:upload", record{"id": "any"}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeUnavailable, envelope.Code)
}

func TestSegmentsAndSpeeches(t *testing.T) {
	h := newHarness(t, nil)

	args := record{"targetId": "v1", "targetType": "Video", "segmentIndex": 0, "startTime": 1.5, "endTime": 3}
	var first, second record
	h.mustCall(t, "segments:findOrCreate", args, &first)
	h.mustCall(t, "segments:findOrCreate", args, &second)
	assert.Equal(t, first["id"], second["id"])

	envelope := h.call(t, "segments:findOrCreate", record{"targetId": "v1", "targetType": "Video", "startTime": 3, "endTime": 1}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeInvalidArgument, envelope.Code)

	h.mustCall(t, "speeches:create", record{"sourceId": "s1", "sourceType": "Document", "text": "Hello", "md5": "sp1", "extname": ".mp3"}, nil)
	var speeches []record
	h.mustCall(t, "speeches:findBySource", record{"sourceType": "Document", "sourceId": "s1"}, &speeches)
	require.Len(t, speeches, 1)
	assert.Equal(t, "Hello", speeches[0]["text"])
}

func TestTranscriptions(t *testing.T) {
	h := newHarness(t, nil)

	var tr record
	h.mustCall(t, "transcriptions:findOrCreate", record{"targetId": "a1", "targetType": "Audio"}, &tr)
	assert.Equal(t, "pending", tr["state"])

	var done record
	h.mustCall(t, "transcriptions:updateResult", record{
		"id": tr["id"], "state": "finished", "engine": "whisper", "result": record{"text": "hi"},
	}, &done)
	assert.Equal(t, "finished", done["state"])
	assert.Equal(t, map[string]any{"text": "hi"}, done["result"])

	envelope := h.call(t, "transcriptions:updateResult", record{"id": tr["id"], "state": "processing"}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeInvalidArgument, envelope.Code)

	envelope = h.call(t, "transcriptions:updateResult", record{"id": tr["id"], "state": "done"}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeInvalidArgument, envelope.Code)
}

func TestConversations(t *testing.T) {
	h := newHarness(t, nil)

	var conv record
	h.mustCall(t, "conversations:create", record{"name": "Practice", "engine": "openai"}, &conv)

	h.mustCall(t, "conversations:addMessage", record{"conversationId": conv["id"], "role": "user", "content": "Bonjour"}, nil)
	h.mustCall(t, "conversations:addMessage", record{"conversationId": conv["id"], "role": "assistant", "content": "Salut"}, nil)

	var messages []record
	h.mustCall(t, "conversations:messages", record{"id": conv["id"]}, &messages)
	require.Len(t, messages, 2)
	assert.Equal(t, "Bonjour", messages[0]["content"])

	envelope := h.call(t, "conversations:addMessage", record{"conversationId": conv["id"], "role": "robot"}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeInvalidArgument, envelope.Code)

	envelope = h.call(t, "conversations:messages", record{"id": "missing"}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeNotFound, envelope.Code)
}

func TestChats(t *testing.T) {
	h := newHarness(t, nil)

	var chat record
	h.mustCall(t, "chats:create", record{"name": "Cafe", "language": "fr"}, &chat)

	var member record
	h.mustCall(t, "chats:addMember", record{"chatId": chat["id"], "userId": "barista", "userType": "Agent"}, &member)

	var msg record
	h.mustCall(t, "chats:addMessage", record{"chatId": chat["id"], "memberId": member["id"], "role": "assistant", "content": "Bonjour"}, &msg)
	assert.Equal(t, "completed", msg["state"])

	var members, messages []record
	h.mustCall(t, "chats:members", record{"id": chat["id"]}, &members)
	h.mustCall(t, "chats:messages", record{"id": chat["id"]}, &messages)
	assert.Len(t, members, 1)
	assert.Len(t, messages, 1)

	envelope := h.call(t, "chats:addMember", record{"chatId": chat["id"], "userId": "x", "userType": "Robot"}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeInvalidArgument, envelope.Code)
}

func TestCacheObjects(t *testing.T) {
	h := newHarness(t, nil)

	h.mustCall(t, "cacheObjects:set", record{"key": "k", "value": record{"a": 1}}, nil)

	var value map[string]any
	h.mustCall(t, "cacheObjects:get", record{"key": "k"}, &value)
	assert.Equal(t, map[string]any{"a": float64(1)}, value)

	h.mustCall(t, "cacheObjects:delete", record{"key": "k"}, nil)
	envelope := h.call(t, "cacheObjects:get", record{"key": "k"}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeNotFound, envelope.Code)

	envelope = h.call(t, "cacheObjects:set", record{"key": "k", "value": 1, "ttl": -5}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeInvalidArgument, envelope.Code)
}

func TestUserSettings(t *testing.T) {
	h := newHarness(t, nil)

	h.mustCall(t, "userSettings:set", record{"key": "language", "value": "fr"}, nil)
	h.mustCall(t, "userSettings:set", record{"key": "accessToken", "value": "secret"}, nil)

	var language string
	h.mustCall(t, "userSettings:get", record{"key": "language"}, &language)
	assert.Equal(t, "fr", language)

	var all map[string]any
	h.mustCall(t, "userSettings:all", nil, &all)
	assert.Equal(t, map[string]any{"language": "fr"}, all)

	h.mustCall(t, "userSettings:delete", record{"key": "language"}, nil)
	envelope := h.call(t, "userSettings:get", record{"key": "language"}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeNotFound, envelope.Code)
}

func TestDictionary(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := newHarness(t, enq)

	var result dictionary.LookupResult
	h.mustCall(t, "dictionary:lookup", record{"word": "hello"}, &result)
	assert.Equal(t, "hello", result.Word)

	envelope := h.call(t, "dictionary:lookup", record{"word": "missing"}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeNotFound, envelope.Code)

	var task TaskResult
	h.mustCall(t, "dictionary:prefetch", record{"words": []string{"a", "b"}}, &task)
	assert.Equal(t, "task-1", task.TaskID)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, "prefetch_lookups", enq.tasks[0].Config().Name)

	envelope = h.call(t, "dictionary:prefetch", record{"words": []string{}}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeInvalidArgument, envelope.Code)
}

func TestSync(t *testing.T) {
	h := newHarness(t, nil)

	var doc record
	h.mustCall(t, "documents:create", record{"title": "Article", "md5": "d1"}, &doc)

	var pending []map[string]any
	h.mustCall(t, "sync:pending", record{"table": "documents"}, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, doc["id"], pending[0]["id"])

	h.mustCall(t, "sync:markSynced", record{"table": "documents", "id": doc["id"]}, nil)
	h.mustCall(t, "sync:pending", record{"table": "documents"}, &pending)
	assert.Empty(t, pending)

	envelope := h.call(t, "sync:pending", record{"table": "passwords"}, nil)
	require.NotNil(t, envelope)
	assert.Equal(t, ipc.CodeInvalidArgument, envelope.Code)
}

func TestRegister_StopsOnDuplicate(t *testing.T) {
	reg := ipc.NewRegistry(ipc.Config{})
	err := Register(reg, NewDictionary(stubDictionary{}, nil), NewDictionary(stubDictionary{}, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ipc.ErrChannelExists))
	assert.Contains(t, err.Error(), "register module dictionary")
}
