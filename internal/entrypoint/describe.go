package entrypoint

import (
	"context"

	"github.com/mrlokans/lingua/internal/config"
	"github.com/mrlokans/lingua/internal/dictionary"
	"github.com/mrlokans/lingua/internal/initphase"
	"github.com/mrlokans/lingua/internal/ipc"
	"github.com/mrlokans/lingua/internal/ipc/modules"
)

// Describe returns a registry holding every channel the app serves, without
// opening the database. Handlers must not be invoked; it backs the contract
// and channel listings.
func Describe(cfg *config.Config, version string) (*ipc.Registry, error) {
	reg := ipc.NewRegistry(ipc.Config{Timeout: cfg.Bridge.InvokeTimeout})
	idle := initphase.NewRegistry(initphase.Config{})

	mods := []ipc.Module{
		modules.NewApp(idle, context.Background(), version),
		modules.NewContract(reg, version),
	}
	mods = append(mods, modules.Data(modules.Deps{
		Dictionary: dictionary.NewFreeDictionaryClient(cfg.Dictionary.BaseURL),
		CacheTTL:   cfg.Cache.DefaultTTL,
	})...)
	if err := modules.Register(reg, mods...); err != nil {
		return nil, err
	}
	return reg, nil
}
