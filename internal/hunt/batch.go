// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hunt

import (
	"context"
	"sync"
	"time"

	"github.com/pdiddy/menu-hunter/pkg/types"
)

// ProgressFunc is called after each chunk with the number of URLs processed.
type ProgressFunc func(done, total int)

// HuntBatch hunts urls in chunks of opts.Concurrency. Hunts within a chunk
// run concurrently and chunks run one after another. A failed URL never
// stops the batch; it is recorded in Errors. Results keep input order.
func (h *Hunter) HuntBatch(ctx context.Context, urls []string, opts types.HuntOptions, progress ProgressFunc) *types.BatchHuntResult {
	opts = WithDefaults(opts)
	conc := opts.Concurrency
	started := time.Now()

	out := &types.BatchHuntResult{
		Success: true,
		Total:   len(urls),
		Results: []*types.HuntResult{},
		Errors:  []types.HuntError{},
	}

	for i := 0; i < len(urls); i += conc {
		chunk := urls[i:min(i+conc, len(urls))]
		results := make([]*types.HuntResult, len(chunk))

		var wg sync.WaitGroup
		for j, u := range chunk {
			wg.Go(func() {
				results[j] = h.Hunt(ctx, u, opts)
			})
		}
		wg.Wait()

		for _, res := range results {
			if res.Success {
				out.Results = append(out.Results, res)
				continue
			}
			out.Errors = append(out.Errors, types.HuntError{URL: res.URL, Error: res.Error})
		}

		done := min(i+conc, len(urls))
		h.logger().Info("hunt.batch.progress", "done", done, "total", len(urls))
		if progress != nil {
			progress(done, len(urls))
		}
	}

	out.Successful = len(out.Results)
	out.Failed = len(out.Errors)
	completed := time.Now()
	out.Metadata = types.BatchMetadata{
		StartedAt:       started.UTC(),
		CompletedAt:     completed.UTC(),
		TotalDurationMs: completed.Sub(started).Milliseconds(),
		Concurrency:     conc,
	}
	return out
}
