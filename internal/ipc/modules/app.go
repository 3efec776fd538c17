package modules

import (
	"context"
	"encoding/json"
	"errors"
	"runtime"

	"github.com/mrlokans/lingua/internal/initphase"
	"github.com/mrlokans/lingua/internal/ipc"
)

// Initializer is the phase registry as seen by the renderer.
type Initializer interface {
	Status() initphase.Status
	Start(ctx context.Context) error
}

// VersionInfo is returned by app:version.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// App serves initialization status and retry. It is registered before the
// phases run so the renderer can follow startup.
type App struct {
	init    Initializer
	runCtx  context.Context
	version string
}

// NewApp creates the module. Retries run under runCtx, the lifetime of the
// process, rather than the context of the request that asked for them.
func NewApp(init Initializer, runCtx context.Context, version string) *App {
	return &App{init: init, runCtx: runCtx, version: version}
}

func (m *App) Name() string {
	return "app"
}

func (m *App) Routes() []ipc.Route {
	return []ipc.Route{
		{
			Method:      "initStatus",
			Description: "Current initialization state and per-phase results",
			Endpoint: ipc.Typed(func(context.Context, ipc.NoArgs) (initphase.Status, error) {
				return m.init.Status(), nil
			}),
		},
		{
			Method:      "retryInit",
			Description: "Re-run the initialization phases that have not completed",
			Endpoint: ipc.Typed(func(context.Context, ipc.NoArgs) (initphase.Status, error) {
				if m.init.Status().State == initphase.StateReady {
					return m.init.Status(), nil
				}
				if err := m.init.Start(m.runCtx); err != nil {
					if errors.Is(err, initphase.ErrAlreadyRunning) {
						return initphase.Status{}, ipc.Errorf(ipc.CodeConflict, "initialization is already running")
					}
					return initphase.Status{}, err
				}
				return m.init.Status(), nil
			}),
		},
		{
			Method:      "version",
			Description: "Backend version",
			Endpoint: ipc.Typed(func(context.Context, ipc.NoArgs) (VersionInfo, error) {
				return VersionInfo{
					Version:   m.version,
					GoVersion: runtime.Version(),
					Platform:  runtime.GOOS + "/" + runtime.GOARCH,
				}, nil
			}),
		},
	}
}

// Contract publishes the JSON schema of every registered channel.
type Contract struct {
	registry *ipc.Registry
	version  string
}

// NewContract lists the channels of registry.
func NewContract(registry *ipc.Registry, version string) *Contract {
	return &Contract{registry: registry, version: version}
}

func (m *Contract) Name() string {
	return "ipc"
}

func (m *Contract) Routes() []ipc.Route {
	return []ipc.Route{
		{
			Method:      "contract",
			Description: "JSON schemas of every channel and of the error envelope",
			// Pre-encoded so the schema type itself is not reflected into the contract.
			Endpoint: ipc.Typed(func(context.Context, ipc.NoArgs) (json.RawMessage, error) {
				return json.Marshal(m.registry.Contract(m.version))
			}),
		},
		{
			Method:      "channels",
			Description: "Registered channels with their module and timeout",
			Endpoint: ipc.Typed(func(context.Context, ipc.NoArgs) ([]ipc.ChannelInfo, error) {
				return m.registry.Channels(), nil
			}),
		},
	}
}
