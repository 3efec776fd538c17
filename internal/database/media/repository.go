// Package media provides database operations for audios, videos and documents,
// the library items identified by the md5 of their file.
//
// # Usage
//
//	audios := media.NewAudios(db)
//	audio, err := audios.FindByMD5(ctx, "9e107d9d372bb6826bd81d3542a419d6")
package media

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/entities"
)

// Item is implemented by the library entities handled here.
type Item interface {
	entities.Audio | entities.Video | entities.Document
}

// Repository is the crud repository for one media table with MD5 lookup.
type Repository[T Item] struct {
	*crud.Repository[T]
}

var mediaFields = crud.Fields{
	Filterable: map[string]string{
		"name":     "name",
		"language": "language",
		"source":   "source",
		"md5":      "md5",
		"syncedAt": "synced_at",
	},
	Updatable:    []string{"name", "description", "language", "source", "coverUrl", "metadata"},
	DefaultOrder: "updatedAt desc",
}

var documentFields = crud.Fields{
	Filterable: map[string]string{
		"title":    "title",
		"language": "language",
		"source":   "source",
		"md5":      "md5",
		"syncedAt": "synced_at",
	},
	Updatable:    []string{"title", "language", "source", "metadata", "config", "lastReadPosition", "lastReadAt"},
	DefaultOrder: "updatedAt desc",
}

func NewAudios(db *gorm.DB) *Repository[entities.Audio] {
	return &Repository[entities.Audio]{crud.New[entities.Audio](db, mediaFields)}
}

func NewVideos(db *gorm.DB) *Repository[entities.Video] {
	return &Repository[entities.Video]{crud.New[entities.Video](db, mediaFields)}
}

func NewDocuments(db *gorm.DB) *Repository[entities.Document] {
	return &Repository[entities.Document]{crud.New[entities.Document](db, documentFields)}
}

// FindByMD5 returns crud.ErrNotFound when no item has the given hash.
func (r *Repository[T]) FindByMD5(ctx context.Context, md5 string) (*T, error) {
	return r.FindOneBy(ctx, "md5", md5)
}
