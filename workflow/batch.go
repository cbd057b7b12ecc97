package workflow

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/flowgraph/observability"
)

// DefaultBatchWorkers is used when Batch is given no worker limit.
const DefaultBatchWorkers = 4

// BatchResult is the outcome for one request of a batch. For every document
// that ran, exactly one of Result and Err is set.
type BatchResult struct {
	Result *Result
	Err    error
}

// Batch compiles every request with at most workers in flight. Results keep
// the order of reqs; a failing document does not stop the others. The
// returned error is non-nil only when ctx ends before all documents ran.
func Batch(ctx context.Context, svc Service, reqs []Request, workers int) ([]BatchResult, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanBatch)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrBatchSize, len(reqs))

	if workers <= 0 {
		workers = DefaultBatchWorkers
	}

	results := make([]BatchResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := svc.Compile(gctx, req)
			results[i] = BatchResult{Result: res, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		observability.SetSpanError(ctx, err)
		return results, err
	}
	return results, nil
}
