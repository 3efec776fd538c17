// Package modules exposes the repositories to the renderer as IPC modules.
// Every entity module provides findAll, findById, create, update and
// delete; domain lookups are added per module.
package modules

import (
	"context"
	"encoding/json"

	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/entities"
	"github.com/mrlokans/lingua/internal/ipc"
)

// Service is the generic entity service each entity module re-exposes.
type Service[T any] interface {
	FindAll(ctx context.Context, q crud.Query) (*crud.Page[T], error)
	FindByID(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, record *T) error
	Update(ctx context.Context, id string, patch map[string]json.RawMessage) (*T, error)
	Delete(ctx context.Context, id string) error
}

// IDRequest addresses a single record.
type IDRequest struct {
	ID string `json:"id" validate:"required"`
}

// UpdateRequest carries a partial record keyed by JSON attribute.
type UpdateRequest struct {
	ID    string                     `json:"id" validate:"required"`
	Patch map[string]json.RawMessage `json:"patch" validate:"required,min=1"`
}

type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// Entity is an IPC module backed by a Service.
type Entity[T any] struct {
	name  string
	svc   Service[T]
	extra []ipc.Route
}

// NewEntity exposes svc under name, followed by the extra routes.
func NewEntity[T any](name string, svc Service[T], extra ...ipc.Route) *Entity[T] {
	return &Entity[T]{name: name, svc: svc, extra: extra}
}

func (m *Entity[T]) Name() string {
	return m.name
}

func (m *Entity[T]) Routes() []ipc.Route {
	svc := m.svc
	routes := []ipc.Route{
		{
			Method:      "findAll",
			Description: "List records with optional where, order, limit and offset",
			Endpoint: ipc.Typed(func(ctx context.Context, q crud.Query) (*crud.Page[T], error) {
				return svc.FindAll(ctx, q)
			}),
		},
		{
			Method:      "findById",
			Description: "Fetch one record by id",
			Endpoint: ipc.Typed(func(ctx context.Context, req IDRequest) (*T, error) {
				return svc.FindByID(ctx, req.ID)
			}),
		},
		{
			Method:      "create",
			Description: "Create a record and return it with its generated id",
			Endpoint: ipc.Typed(func(ctx context.Context, record T) (*T, error) {
				if m, ok := any(&record).(entities.ServerManaged); ok {
					m.ResetServerFields()
				}
				if err := svc.Create(ctx, &record); err != nil {
					return nil, err
				}
				return &record, nil
			}),
		},
		{
			Method:      "update",
			Description: "Apply a partial patch to a record",
			Endpoint: ipc.Typed(func(ctx context.Context, req UpdateRequest) (*T, error) {
				return svc.Update(ctx, req.ID, req.Patch)
			}),
		},
		{
			Method:      "delete",
			Description: "Delete a record by id",
			Endpoint: ipc.Typed(func(ctx context.Context, req IDRequest) (DeleteResult, error) {
				if err := svc.Delete(ctx, req.ID); err != nil {
					return DeleteResult{}, err
				}
				return DeleteResult{ID: req.ID, Deleted: true}, nil
			}),
		},
	}
	return append(routes, m.extra...)
}
