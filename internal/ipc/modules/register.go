package modules

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/lingua/internal/database/cacheobjects"
	"github.com/mrlokans/lingua/internal/database/chats"
	"github.com/mrlokans/lingua/internal/database/cloudsync"
	"github.com/mrlokans/lingua/internal/database/conversations"
	"github.com/mrlokans/lingua/internal/database/media"
	"github.com/mrlokans/lingua/internal/database/recordings"
	"github.com/mrlokans/lingua/internal/database/segments"
	"github.com/mrlokans/lingua/internal/database/speeches"
	"github.com/mrlokans/lingua/internal/database/transcriptions"
	"github.com/mrlokans/lingua/internal/database/usersettings"
	"github.com/mrlokans/lingua/internal/dictionary"
	"github.com/mrlokans/lingua/internal/ipc"
	"github.com/mrlokans/lingua/internal/storage"
	"github.com/mrlokans/lingua/internal/tasks"
)

// Deps are the services the data modules are built from. Enqueuer,
// Dictionary, Blobs and Log may be nil.
type Deps struct {
	DB         *gorm.DB
	Settings   *usersettings.Repository
	Dictionary dictionary.Client
	Enqueuer   tasks.Enqueuer
	Blobs      *storage.Blobs
	CacheTTL   time.Duration
	Log        *zap.Logger
}

// Data builds the entity and domain modules served once the database is up.
func Data(d Deps) []ipc.Module {
	mods := []ipc.Module{
		NewAudios(media.NewAudios(d.DB)),
		NewVideos(media.NewVideos(d.DB)),
		NewDocuments(media.NewDocuments(d.DB)),
		NewRecordings(recordings.NewRepository(d.DB), d.Enqueuer, d.Blobs, d.Log),
		NewSegments(segments.NewRepository(d.DB)),
		NewSpeeches(speeches.NewRepository(d.DB)),
		NewTranscriptions(transcriptions.NewRepository(d.DB)),
		NewConversations(conversations.NewRepository(d.DB)),
		NewChats(chats.NewRepository(d.DB)),
		NewCacheObjects(cacheobjects.NewRepository(d.DB), d.CacheTTL),
		NewUserSettings(d.Settings),
		NewSync(cloudsync.NewRepository(d.DB)),
	}
	if d.Dictionary != nil {
		mods = append(mods, NewDictionary(d.Dictionary, d.Enqueuer))
	}
	return mods
}

// Register adds every module to reg, stopping at the first failure.
func Register(reg *ipc.Registry, mods ...ipc.Module) error {
	for _, m := range mods {
		if err := reg.RegisterModule(m); err != nil {
			return fmt.Errorf("register module %s: %w", m.Name(), err)
		}
	}
	return nil
}
