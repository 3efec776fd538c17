// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go       # Connection setup (sqlite or postgres) and migrations
//	├── crud/             # Generic findAll/findById/create/update/delete
//	├── media/            # Audios, videos and documents (md5 lookups)
//	├── recordings/       # Recordings and per-target counters
//	├── segments/         # Caption-aligned segments
//	├── speeches/         # Synthesized speech
//	├── transcriptions/   # Transcriptions and their state machine
//	├── conversations/    # AI conversations and messages
//	├── chats/            # Chats, members and messages
//	├── usersettings/     # Key/value user settings, secrets encrypted
//	├── cacheobjects/     # TTL cache of JSON values
//	└── cloudsync/        # Pending-sync listing and sync stamps
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type built on a *gorm.DB:
//
//	db, err := database.NewDatabase(ctx, cfg.Database, logger)
//
//	audios := media.NewAudios(db.DB)
//	recs := recordings.NewRepository(db.DB)
//
//	audio, err := audios.FindByMD5(ctx, md5)
//	stats, err := recs.Stats(ctx, entities.TargetAudio, audio.ID)
//
// Entity repositories embed crud.Repository, so the generic operations are
// available on all of them. Errors are reported as crud.ErrNotFound,
// crud.ErrConflict and crud.ErrInvalidField (possibly wrapped).
//
// # Adding a New Domain
//
//  1. Add the entity to internal/entities and to entities.All()
//  2. Create a new sub-package: internal/database/<domain>/
//  3. Embed *crud.Repository[T] with a crud.Fields whitelisting filters and updates
//  4. Add domain queries on the embedded *gorm.DB
//  5. Expose the repository through an IPC module in internal/ipc/modules
package database
