// Package batch decodes many containers concurrently. Every container is
// decoded from its own buffer on its own goroutine; results come back in
// input order and one failure never affects the others.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"dexscope/internal/dex"
	"dexscope/internal/source"
)

var ErrInputTooLarge = errors.New("input exceeds size limit")

type Options struct {
	Workers      int   // 0 means GOMAXPROCS
	MaxInputSize int64 // 0 means unlimited
	// OnResult, if set, is called from the worker goroutine as each
	// container finishes.
	OnResult func(Result)
	// DropContainers clears Result.Container once OnResult has returned,
	// so only errors and timings outlive the worker.
	DropContainers bool
}

type Result struct {
	Source    source.Source
	Container *dex.Container
	Err       error
	Elapsed   time.Duration
}

// Decode decodes srcs with at most opts.Workers in flight. It only returns
// early when ctx is cancelled; containers not yet started then carry
// ctx.Err().
func Decode(ctx context.Context, srcs []source.Source, opts Options) []Result {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(srcs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range srcs {
		results[i].Source = src
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			start := time.Now()
			results[i].Container, results[i].Err = decodeOne(src, opts.MaxInputSize)
			results[i].Elapsed = time.Since(start)
			if opts.OnResult != nil {
				opts.OnResult(results[i])
			}
			if opts.DropContainers {
				results[i].Container = nil
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func decodeOne(src source.Source, limit int64) (*dex.Container, error) {
	if limit > 0 && src.Size > limit {
		return nil, fmt.Errorf("%s: %d bytes: %w", src, src.Size, ErrInputTooLarge)
	}
	buf, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	if limit > 0 && int64(len(buf.Bytes())) > limit {
		return nil, fmt.Errorf("%s: %d bytes: %w", src, len(buf.Bytes()), ErrInputTooLarge)
	}
	return dex.Decode(buf.Bytes())
}

// Failed counts results with an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
