package modules

import (
	"context"
	"errors"

	"github.com/mrlokans/lingua/internal/dictionary"
	"github.com/mrlokans/lingua/internal/ipc"
	"github.com/mrlokans/lingua/internal/tasks"
)

type LookupRequest struct {
	Word string `json:"word" validate:"required,max=100"`
}

type PrefetchRequest struct {
	Words []string `json:"words" validate:"required,min=1,max=500,dive,required,max=100"`
}

// Dictionary is the word lookup module.
type Dictionary struct {
	client   dictionary.Client
	enqueuer tasks.Enqueuer
}

// NewDictionary exposes lookups. Without an enqueuer, prefetch runs inline.
func NewDictionary(client dictionary.Client, enqueuer tasks.Enqueuer) *Dictionary {
	return &Dictionary{client: client, enqueuer: enqueuer}
}

func (m *Dictionary) Name() string {
	return "dictionary"
}

func (m *Dictionary) Routes() []ipc.Route {
	return []ipc.Route{
		{
			Method:      "lookup",
			Description: "Definitions, pronunciation and audio for a word",
			Endpoint: ipc.Typed(func(ctx context.Context, req LookupRequest) (*dictionary.LookupResult, error) {
				result, err := m.client.Lookup(ctx, req.Word)
				if errors.Is(err, dictionary.ErrWordNotFound) {
					return nil, ipc.Errorf(ipc.CodeNotFound, "no definition found for %q", req.Word)
				}
				return result, err
			}),
		},
		{
			Method:      "prefetch",
			Description: "Warm the lookup cache for a list of words in the background",
			Endpoint: ipc.Typed(func(ctx context.Context, req PrefetchRequest) (TaskResult, error) {
				if m.enqueuer == nil {
					tasks.Prefetch(ctx, m.client, req.Words)
					return TaskResult{}, nil
				}
				ids, err := m.enqueuer.Enqueue(ctx, tasks.PrefetchLookupsTask{Words: req.Words})
				if err != nil {
					return TaskResult{}, err
				}
				return TaskResult{TaskID: ids[0]}, nil
			}),
		},
	}
}
