package modules

import (
	"context"

	"github.com/mrlokans/lingua/internal/database/segments"
	"github.com/mrlokans/lingua/internal/entities"
	"github.com/mrlokans/lingua/internal/ipc"
)

// NewSegments exposes segments with findOrCreate.
func NewSegments(repo *segments.Repository) ipc.Module {
	return NewEntity[entities.Segment]("segments", repo, ipc.Route{
		Method:      "findOrCreate",
		Description: "Return the segment at index of a target, creating it when missing",
		Endpoint: ipc.Typed(func(ctx context.Context, p segments.FindOrCreateParams) (*entities.Segment, error) {
			return repo.FindOrCreate(ctx, p)
		}),
	})
}
