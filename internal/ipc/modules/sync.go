package modules

import (
	"context"
	"time"

	"github.com/mrlokans/lingua/internal/database/cloudsync"
	"github.com/mrlokans/lingua/internal/ipc"
)

type PendingRequest struct {
	Table string `json:"table" validate:"required"`
	Limit int    `json:"limit,omitempty" validate:"gte=0,lte=1000"`
}

type MarkSyncedRequest struct {
	Table string `json:"table" validate:"required"`
	ID    string `json:"id" validate:"required"`
}

// Sync reports and acknowledges records awaiting cloud sync.
type Sync struct {
	repo *cloudsync.Repository
	now  func() time.Time
}

// NewSync wraps repo as the sync module.
func NewSync(repo *cloudsync.Repository) *Sync {
	return &Sync{repo: repo, now: time.Now}
}

func (m *Sync) Name() string {
	return "sync"
}

func (m *Sync) Routes() []ipc.Route {
	return []ipc.Route{
		{
			Method:      "tables",
			Description: "Tables whose records carry sync bookkeeping",
			Endpoint: ipc.Typed(func(context.Context, ipc.NoArgs) ([]string, error) {
				return cloudsync.Tables(), nil
			}),
		},
		{
			Method:      "pending",
			Description: "Records changed since they were last synced",
			Endpoint: ipc.Typed(func(ctx context.Context, req PendingRequest) ([]cloudsync.Pending, error) {
				return m.repo.Unsynced(ctx, req.Table, req.Limit)
			}),
		},
		{
			Method:      "markSynced",
			Description: "Record that a record was synced now",
			Endpoint: ipc.Typed(func(ctx context.Context, req MarkSyncedRequest) (ipc.NoArgs, error) {
				return ipc.NoArgs{}, m.repo.MarkSynced(ctx, req.Table, req.ID, m.now().UTC())
			}),
		},
	}
}
