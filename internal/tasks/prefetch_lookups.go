package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/dictionary"
)

// PrefetchLookupsTask warms the dictionary cache for a batch of words.
type PrefetchLookupsTask struct {
	Words []string `json:"words"`
}

func (t PrefetchLookupsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "prefetch_lookups",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PrefetchResult summarises one prefetch run.
type PrefetchResult struct {
	Fetched  int
	Missing  int
	Failed   int
	Canceled bool
}

// Prefetch looks up every word through the cached client. Words the
// dictionary does not know are counted, not treated as failures.
func Prefetch(ctx context.Context, client dictionary.Client, words []string) PrefetchResult {
	var res PrefetchResult
	for _, word := range words {
		if ctx.Err() != nil {
			res.Canceled = true
			return res
		}
		_, err := client.Lookup(ctx, word)
		switch {
		case err == nil:
			res.Fetched++
		case errors.Is(err, dictionary.ErrWordNotFound):
			res.Missing++
		default:
			res.Failed++
		}
	}
	return res
}

func PrefetchLookupsProcessor(client dictionary.Client, log *zap.Logger) backlite.QueueProcessor[PrefetchLookupsTask] {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, task PrefetchLookupsTask) error {
		res := Prefetch(ctx, client, task.Words)
		log.Info("prefetched dictionary lookups",
			zap.Int("fetched", res.Fetched),
			zap.Int("missing", res.Missing),
			zap.Int("failed", res.Failed),
			zap.Int("total", len(task.Words)),
		)
		if res.Canceled {
			return ctx.Err()
		}
		if res.Failed > 0 && res.Fetched == 0 && res.Missing == 0 {
			return fmt.Errorf("all %d lookups failed", res.Failed)
		}
		return nil
	}
}

// NewPrefetchLookupsQueue registers the prefetch processor as a queue.
func NewPrefetchLookupsQueue(client dictionary.Client, log *zap.Logger) backlite.Queue {
	return backlite.NewQueue(PrefetchLookupsProcessor(client, log))
}
