package modules

import (
	"context"

	"github.com/mrlokans/lingua/internal/database/media"
	"github.com/mrlokans/lingua/internal/entities"
	"github.com/mrlokans/lingua/internal/ipc"
)

type MD5Request struct {
	MD5 string `json:"md5" validate:"required,max=32"`
}

func findByMD5[T media.Item](repo *media.Repository[T]) ipc.Route {
	return ipc.Route{
		Method:      "findByMd5",
		Description: "Fetch a record by the md5 of its file",
		Endpoint: ipc.Typed(func(ctx context.Context, req MD5Request) (*T, error) {
			return repo.FindByMD5(ctx, req.MD5)
		}),
	}
}

// NewAudios exposes the audios table.
func NewAudios(repo *media.Repository[entities.Audio]) ipc.Module {
	return NewEntity[entities.Audio]("audios", repo, findByMD5(repo))
}

// NewVideos exposes the videos table.
func NewVideos(repo *media.Repository[entities.Video]) ipc.Module {
	return NewEntity[entities.Video]("videos", repo, findByMD5(repo))
}

// NewDocuments exposes the documents table.
func NewDocuments(repo *media.Repository[entities.Document]) ipc.Module {
	return NewEntity[entities.Document]("documents", repo, findByMD5(repo))
}
