// Package entrypoint wires the main process: the bridge server, the IPC
// registry and the initialization phases that bring the data layer up.
package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/config"
	"github.com/mrlokans/lingua/internal/crypto"
	"github.com/mrlokans/lingua/internal/database"
	"github.com/mrlokans/lingua/internal/database/cacheobjects"
	"github.com/mrlokans/lingua/internal/database/recordings"
	"github.com/mrlokans/lingua/internal/database/usersettings"
	"github.com/mrlokans/lingua/internal/dictionary"
	httpapi "github.com/mrlokans/lingua/internal/http"
	"github.com/mrlokans/lingua/internal/initphase"
	"github.com/mrlokans/lingua/internal/ipc"
	"github.com/mrlokans/lingua/internal/ipc/modules"
	"github.com/mrlokans/lingua/internal/metrics"
	"github.com/mrlokans/lingua/internal/scheduler"
	"github.com/mrlokans/lingua/internal/storage"
	"github.com/mrlokans/lingua/internal/storage/providers"
	"github.com/mrlokans/lingua/internal/tasks"
)

// Phase names, in the order they are registered.
const (
	PhaseStorage   = "storage"
	PhaseDatabase  = "database"
	PhaseSettings  = "settings"
	PhaseTasks     = "tasks"
	PhaseScheduler = "scheduler"
	PhaseIPC       = "ipc"
)

// App is the main process. Components created by init phases stay nil
// until their phase completes.
type App struct {
	cfg     *config.Config
	version string
	log     *zap.Logger
	metrics *metrics.Metrics

	phases *initphase.Registry
	ipc    *ipc.Registry
	hub    *httpapi.Hub

	runCtx    context.Context
	cancelRun context.CancelFunc

	mu         sync.RWMutex
	library    *storage.Library
	storage    storage.Client
	db         *database.Database
	settings   *usersettings.Repository
	dictionary dictionary.Client
	tasks      *tasks.Client
	scheduler  *scheduler.CachePurgeScheduler
}

// New builds the app and registers its phases without running them.
func New(cfg *config.Config, log *zap.Logger, version string) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:       cfg,
		version:   version,
		log:       log,
		metrics:   m,
		ipc:       ipc.NewRegistry(ipc.Config{Timeout: cfg.Bridge.InvokeTimeout, Logger: log, Metrics: m}),
		hub:       httpapi.NewHub(log, m),
		phases:    initphase.NewRegistry(initphase.Config{DefaultTimeout: cfg.Init.PhaseTimeout, Logger: log, Metrics: m}),
		runCtx:    runCtx,
		cancelRun: cancel,
	}

	// app and ipc channels answer while the phases run.
	err := modules.Register(a.ipc,
		modules.NewApp(a.phases, runCtx, version),
		modules.NewContract(a.ipc, version),
	)
	if err == nil {
		err = a.registerPhases()
	}
	if err != nil {
		cancel()
		return nil, err
	}

	a.phases.Observe(func(s initphase.Status) {
		a.hub.Emit(ipc.EventInitStatus, s)
	})
	a.phases.AddHooks("log", initphase.Hooks{
		AfterAll: func(_ context.Context, s initphase.Status) error {
			a.log.Info("application ready", zap.Int("attempt", s.Attempt))
			return nil
		},
		Failed: func(_ context.Context, err error) error {
			a.log.Error("initialization failed, waiting for retry", zap.Error(err))
			return nil
		},
	})
	return a, nil
}

// Phases returns the init phase registry.
func (a *App) Phases() *initphase.Registry {
	return a.phases
}

// IPC returns the channel registry.
func (a *App) IPC() *ipc.Registry {
	return a.ipc
}

func (a *App) Hub() *httpapi.Hub {
	return a.hub
}

func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

func (a *App) registerPhases() error {
	phases := []initphase.Phase{
		{Name: PhaseStorage, Timeout: 15 * time.Second, Run: a.initStorage},
		{Name: PhaseDatabase, Run: a.initDatabase},
		{Name: PhaseSettings, DependsOn: []string{PhaseDatabase}, Run: a.initSettings},
	}
	if a.cfg.Tasks.Enabled {
		phases = append(phases, initphase.Phase{
			Name:      PhaseTasks,
			DependsOn: []string{PhaseDatabase, PhaseStorage},
			Optional:  true,
			Run:       a.initTasks,
		})
	}
	if a.cfg.Cache.PurgeEnabled {
		phases = append(phases, initphase.Phase{
			Name:      PhaseScheduler,
			DependsOn: []string{PhaseDatabase},
			Optional:  true,
			Run:       a.initScheduler,
		})
	}
	phases = append(phases, initphase.Phase{
		Name:      PhaseIPC,
		DependsOn: []string{PhaseDatabase, PhaseSettings, PhaseStorage},
		Run:       a.initIPC,
	})

	for _, p := range phases {
		if err := a.phases.Register(p); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) initStorage(ctx context.Context) error {
	library := storage.NewLibrary(a.cfg.Storage.LibraryDir)
	if err := library.Ensure(); err != nil {
		return err
	}

	client, err := providers.New(ctx, a.cfg.Storage)
	if err != nil {
		return err
	}
	// Remote storage is only needed for uploads; being offline must not block startup.
	if hc, ok := client.(interface{ HealthCheck(context.Context) error }); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			a.log.Warn("remote storage unreachable", zap.String("driver", string(a.cfg.Storage.Driver)), zap.Error(err))
		}
	}

	a.mu.Lock()
	a.library, a.storage = library, client
	a.mu.Unlock()
	a.log.Info("storage initialized", zap.String("library", library.Root()), zap.String("driver", string(a.cfg.Storage.Driver)))
	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	db, err := database.NewDatabase(ctx, a.cfg.Database, a.log)
	if err != nil {
		return err
	}
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("database ping: %w", err)
	}
	// The phase may have timed out and been abandoned; never publish its pool.
	if err := ctx.Err(); err != nil {
		_ = db.Close()
		return err
	}

	lookups := dictionary.NewFreeDictionaryClient(a.cfg.Dictionary.BaseURL)
	cached := dictionary.NewCachedClient(lookups, cacheobjects.NewRepository(db.DB), a.cfg.Dictionary.CacheTTL, a.log, a.metrics)

	a.mu.Lock()
	a.db, a.dictionary = db, cached
	a.mu.Unlock()
	return nil
}

func (a *App) initSettings(context.Context) error {
	encryptor, err := crypto.FromConfig(a.cfg.Crypto)
	if err != nil {
		return fmt.Errorf("settings encryption: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if encryptor == nil {
		a.log.Warn("SETTINGS_ENCRYPTION_KEY is not set, secret settings are stored unencrypted")
		a.settings = usersettings.NewRepository(a.db.DB, nil)
		return nil
	}
	a.settings = usersettings.NewRepository(a.db.DB, encryptor)
	return nil
}

func (a *App) initTasks(context.Context) error {
	a.mu.RLock()
	db, library, remote, dict := a.db, a.library, a.storage, a.dictionary
	a.mu.RUnlock()

	client, err := tasks.NewClient(a.tasksDBPath(), a.cfg.Tasks, a.log, a.metrics)
	if err != nil {
		return err
	}
	client.Register(
		tasks.NewUploadRecordingQueue(tasks.UploadDeps{
			Recordings: recordings.NewRepository(db.DB),
			Library:    library,
			Storage:    remote,
			Emitter:    a.hub,
			Log:        a.log,
		}),
		tasks.NewPurgeCacheObjectsQueue(cacheobjects.NewRepository(db.DB), a.hub, a.log),
		tasks.NewPrefetchLookupsQueue(dict, a.log),
	)
	client.Start(a.runCtx)

	a.mu.Lock()
	a.tasks = client
	a.mu.Unlock()
	return nil
}

func (a *App) tasksDBPath() string {
	if a.cfg.Database.Driver == config.DatabaseDriverPostgres {
		return filepath.Join(a.cfg.Storage.LibraryDir, "lingua-tasks.db")
	}
	return tasks.DatabasePath(a.cfg.Database.Path)
}

func (a *App) initScheduler(ctx context.Context) error {
	a.mu.RLock()
	db := a.db
	a.mu.RUnlock()

	// Without a running queue the purge runs inline on the cron goroutine.
	var enqueuer tasks.Enqueuer
	if a.cfg.Tasks.Enabled {
		enqueuer = &lazyEnqueuer{app: a}
	}
	s := scheduler.NewCachePurgeScheduler(a.cfg.Cache, enqueuer, cacheobjects.NewRepository(db.DB), a.hub, a.log)
	if err := s.Start(a.runCtx); err != nil {
		return err
	}

	a.mu.Lock()
	a.scheduler = s
	a.mu.Unlock()
	return nil
}

func (a *App) initIPC(context.Context) error {
	a.mu.RLock()
	deps := modules.Deps{
		DB:         a.db.DB,
		Settings:   a.settings,
		Dictionary: a.dictionary,
		Blobs:      storage.NewBlobs(a.library, a.storage),
		CacheTTL:   a.cfg.Cache.DefaultTTL,
		Log:        a.log,
	}
	a.mu.RUnlock()
	if a.cfg.Tasks.Enabled {
		deps.Enqueuer = &lazyEnqueuer{app: a}
	}

	if err := modules.Register(a.ipc, modules.Data(deps)...); err != nil {
		return err
	}
	a.ipc.MarkReady()
	return nil
}

// lazyEnqueuer resolves the task client per call, so channels and the
// scheduler created before a failed tasks phase start using the queue once a
// retry brings it up.
type lazyEnqueuer struct {
	app *App
}

func (l *lazyEnqueuer) Enqueue(ctx context.Context, ts ...backlite.Task) ([]string, error) {
	l.app.mu.RLock()
	client := l.app.tasks
	l.app.mu.RUnlock()
	if client == nil {
		return nil, fmt.Errorf("%w: task queue is not running", ipc.ErrUnavailable)
	}
	return client.Enqueue(ctx, ts...)
}

// HealthChecks reports component readiness for the /health endpoint.
func (a *App) HealthChecks() map[string]httpapi.Check {
	checks := map[string]httpapi.Check{
		"init": func(context.Context) error {
			switch s := a.phases.Status(); s.State {
			case initphase.StateReady:
				return nil
			case initphase.StateFailed:
				if s.Error != nil {
					return errors.New(s.Error.Message)
				}
				return errors.New("initialization failed")
			default:
				return httpapi.ErrNotReady
			}
		},
		"database": func(ctx context.Context) error {
			a.mu.RLock()
			db := a.db
			a.mu.RUnlock()
			if db == nil {
				return httpapi.ErrNotReady
			}
			return db.Ping(ctx)
		},
	}
	if a.cfg.Tasks.Enabled {
		checks["tasks"] = func(ctx context.Context) error {
			a.mu.RLock()
			client := a.tasks
			a.mu.RUnlock()
			if client == nil {
				return httpapi.ErrNotReady
			}
			return client.Ping(ctx)
		}
	}
	return checks
}

// Shutdown stops background work and releases resources. It is safe to
// call when some phases never ran.
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.tasks != nil {
		a.tasks.Stop(ctx)
		if err := a.tasks.Close(); err != nil {
			a.log.Warn("close task database", zap.Error(err))
		}
	}
	a.cancelRun()
	a.hub.Close()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("close database", zap.Error(err))
		}
	}
}
