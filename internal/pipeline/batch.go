package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunBatch executes the workflow for several companies concurrently,
// bounded by the worker limit, and returns one result per request in
// input order. Cancellation stops scheduling new work; requests that
// never started report cancelled.
func (o *Orchestrator) RunBatch(ctx context.Context, reqs []*Request) []*Result {
	results := make([]*Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, req := range reqs {
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = cancelledResult(req)
				return nil
			}
			results[i] = o.Run(gctx, req)
			return nil
		})
	}

	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	tracked := 0
	for i, result := range results {
		if result == nil {
			results[i] = cancelledResult(reqs[i])
			continue
		}
		if result.Status == StatusTracked {
			tracked++
		}
	}
	o.logger.Info("batch complete",
		zap.Int("requests", len(reqs)),
		zap.Int("tracked", tracked))
	return results
}

// FailBatch builds a uniform failed result set, used when batch setup
// (such as resume parsing) fails before any workflow can start.
func FailBatch(reqs []*Request, reason string) []*Result {
	results := make([]*Result, len(reqs))
	for i, req := range reqs {
		results[i] = &Result{
			CompanyURL: req.CompanyURL,
			Status:     StatusFailed,
			Stage:      StageScrape,
			Reason:     reason,
		}
	}
	return results
}

func cancelledResult(req *Request) *Result {
	return &Result{
		CompanyURL: req.CompanyURL,
		Status:     StatusCancelled,
		Stage:      StageScrape,
		Reason:     "batch cancelled before start",
	}
}
