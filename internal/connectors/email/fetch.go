package email

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corvid-labs/corpusmind/internal/connectors"
)

const (
	subBatchSize  = 50
	pagePaceDelay = 100 * time.Millisecond
)

// fetchPages pages through the upstream list endpoint with a page-token
// cursor; per page, fetches message bodies in sub-batches of up to 50 in
// parallel with bounded concurrency, skipping individual failures, and
// paces itself between pages and sub-batches to avoid bursts.
func fetchPages(ctx context.Context, client UpstreamClient, limiter *connectors.RateLimiter, afterUnix int64, out chan<- UpstreamMessage, errs chan<- error) {
	pageToken := ""
	for {
		if err := limiter.Wait(ctx); err != nil {
			errs <- err
			return
		}
		ids, next, err := client.ListPage(ctx, pageToken, afterUnix)
		if err != nil {
			errs <- err
			return
		}

		for start := 0; start < len(ids); start += subBatchSize {
			end := min(start+subBatchSize, len(ids))
			batch := ids[start:end]

			if err := limiter.Wait(ctx); err != nil {
				errs <- err
				return
			}
			fetchSubBatch(ctx, client, batch, out)

			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case <-time.After(pagePaceDelay):
			}
		}

		if next == "" {
			return
		}
		pageToken = next

		select {
		case <-ctx.Done():
			errs <- ctx.Err()
			return
		case <-time.After(pagePaceDelay):
		}
	}
}

func fetchSubBatch(ctx context.Context, client UpstreamClient, ids []string, out chan<- UpstreamMessage) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(ids))

	results := make([]*UpstreamMessage, len(ids))
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			msg, err := client.FetchMessage(gctx, id)
			if err != nil {
				log.Printf("email connector: fetch message %s failed: %v", id, err)
				return nil
			}
			results[i] = &msg
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r != nil {
			out <- *r
		}
	}
}
