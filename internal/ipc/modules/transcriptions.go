package modules

import (
	"context"

	"github.com/mrlokans/lingua/internal/database/transcriptions"
	"github.com/mrlokans/lingua/internal/entities"
	"github.com/mrlokans/lingua/internal/ipc"
)

type UpdateResultRequest struct {
	ID string `json:"id" validate:"required"`
	transcriptions.UpdateResultParams
}

// NewTranscriptions exposes transcriptions with findOrCreate and updateResult.
func NewTranscriptions(repo *transcriptions.Repository) ipc.Module {
	return NewEntity[entities.Transcription]("transcriptions", repo,
		ipc.Route{
			Method:      "findOrCreate",
			Description: "Return the transcription of a target, creating a pending one when missing",
			Endpoint: ipc.Typed(func(ctx context.Context, p transcriptions.FindOrCreateParams) (*entities.Transcription, error) {
				return repo.FindOrCreateByTarget(ctx, p)
			}),
		},
		ipc.Route{
			Method:      "updateResult",
			Description: "Move a transcription to a new state and store its result",
			Endpoint: ipc.Typed(func(ctx context.Context, req UpdateResultRequest) (*entities.Transcription, error) {
				return repo.UpdateResult(ctx, req.ID, req.UpdateResultParams)
			}),
		},
	)
}
