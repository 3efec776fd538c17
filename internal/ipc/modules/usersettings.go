package modules

import (
	"context"
	"encoding/json"

	"github.com/mrlokans/lingua/internal/database/usersettings"
	"github.com/mrlokans/lingua/internal/ipc"
)

type SettingSetRequest struct {
	Key   string          `json:"key" validate:"required,max=100"`
	Value json.RawMessage `json:"value" validate:"required"`
}

// UserSettings is the per-user preferences module.
type UserSettings struct {
	repo *usersettings.Repository
}

// NewUserSettings wraps repo as the userSettings module.
func NewUserSettings(repo *usersettings.Repository) *UserSettings {
	return &UserSettings{repo: repo}
}

func (m *UserSettings) Name() string {
	return "userSettings"
}

func (m *UserSettings) Routes() []ipc.Route {
	return []ipc.Route{
		{
			Method:      "get",
			Description: "Read a setting; secret settings are decrypted",
			Endpoint: ipc.Typed(func(ctx context.Context, req KeyRequest) (json.RawMessage, error) {
				return m.repo.Get(ctx, req.Key)
			}),
		},
		{
			Method:      "set",
			Description: "Write a setting; secret settings are encrypted at rest",
			Endpoint: ipc.Typed(func(ctx context.Context, req SettingSetRequest) (ipc.NoArgs, error) {
				return ipc.NoArgs{}, m.repo.Set(ctx, req.Key, req.Value)
			}),
		},
		{
			Method:      "delete",
			Description: "Remove a setting",
			Endpoint: ipc.Typed(func(ctx context.Context, req KeyRequest) (ipc.NoArgs, error) {
				return ipc.NoArgs{}, m.repo.Delete(ctx, req.Key)
			}),
		},
		{
			Method:      "all",
			Description: "All non-secret settings keyed by name",
			Endpoint: ipc.Typed(func(ctx context.Context, _ ipc.NoArgs) (map[string]json.RawMessage, error) {
				return m.repo.All(ctx)
			}),
		},
	}
}
