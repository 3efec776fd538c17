package modules

import (
	"context"

	"github.com/mrlokans/lingua/internal/database/speeches"
	"github.com/mrlokans/lingua/internal/entities"
	"github.com/mrlokans/lingua/internal/ipc"
)

type SourceRequest struct {
	SourceType string `json:"sourceType" validate:"required"`
	SourceID   string `json:"sourceId" validate:"required"`
}

// NewSpeeches exposes speeches with findBySource.
func NewSpeeches(repo *speeches.Repository) ipc.Module {
	return NewEntity[entities.Speech]("speeches", repo, ipc.Route{
		Method:      "findBySource",
		Description: "List speeches synthesized for a source record",
		Endpoint: ipc.Typed(func(ctx context.Context, req SourceRequest) ([]entities.Speech, error) {
			return repo.FindBySource(ctx, req.SourceType, req.SourceID)
		}),
	})
}
