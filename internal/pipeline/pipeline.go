// Package pipeline rewrites chunked text through a bounded pool of workers
// and reassembles the streamed results in chunk order.
//
// Workers claim chunk indices from a shared counter, so a fast worker simply
// takes more chunks. Every delta a worker receives is written to that
// chunk's slot and the whole table is republished, which keeps the progress
// text ordered by index regardless of completion order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markis/smooth/internal/chunk"
	"github.com/markis/smooth/internal/stream"
)

// Streamer opens one rewrite stream for a piece of text. A request the
// remote service rejects is reported as an error before any delta.
type Streamer interface {
	Stream(ctx context.Context, text string) (<-chan stream.Delta, error)
}

// ProgressFunc receives the index-ordered text known so far. Calls are
// serialized and their lengths never decrease; only the last one is final.
// It must not block for long, since workers wait for it to return.
type ProgressFunc func(snapshot string)

// Settings tunes a run. MaxChunkSize is only read by Rewrite.
type Settings struct {
	MaxChunkSize int
	Concurrency  int
	// OnStart, if set, is called with the chunk count before any work starts.
	OnStart func(total int)
	// OnChunk, if set, is called once per chunk when its result settles.
	OnChunk func(ChunkReport)
	Logger  *slog.Logger
}

// ChunkReport describes how one chunk ended. Err is set for failed chunks
// and for chunks whose stream broke after producing partial text.
type ChunkReport struct {
	Index  int
	Status Status
	Err    error
	Bytes  int
}

// Result is the reassembled text plus per-chunk outcomes.
type Result struct {
	Text   string
	Chunks []ChunkReport
}

// Failed returns the reports of chunks that contributed no text.
func (r Result) Failed() []ChunkReport {
	var out []ChunkReport
	for _, c := range r.Chunks {
		if c.Status == Failed {
			out = append(out, c)
		}
	}
	return out
}

// Rewrite splits text into chunks and runs them through s.
func Rewrite(ctx context.Context, text string, set Settings, s Streamer, onProgress ProgressFunc) (Result, error) {
	chunks, err := chunk.Split(text, set.MaxChunkSize)
	if err != nil {
		return Result{}, err
	}
	return Run(ctx, chunks, set, s, onProgress)
}

// Run rewrites chunks with min(set.Concurrency, len(chunks)) workers and
// returns their results joined in index order. Failed chunks leave an empty
// span; Run itself fails only when every chunk failed.
//
// Cancelling ctx stops workers from claiming new chunks, but streams already
// open are read to the end.
func Run(ctx context.Context, chunks []chunk.Chunk, set Settings, s Streamer, onProgress ProgressFunc) (Result, error) {
	if set.Concurrency <= 0 {
		return Result{}, fmt.Errorf("%w: concurrency must be positive, got %d", chunk.ErrInvalidArgument, set.Concurrency)
	}
	logger := set.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if set.OnStart != nil {
		set.OnStart(len(chunks))
	}

	table := newResultTable(len(chunks), onProgress)
	var next atomic.Int64

	workers := min(set.Concurrency, len(chunks))
	start := time.Now()
	logger.Debug("pipeline start", "chunks", len(chunks), "workers", workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				i := int(next.Add(1) - 1)
				if i >= len(chunks) {
					return nil
				}
				report := process(ctx, table, chunks[i], s, logger.With("worker", w))
				if set.OnChunk != nil {
					set.OnChunk(report)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	table.flush()
	res := table.result()

	failed := res.Failed()
	logger.Info("pipeline finished",
		"chunks", len(chunks),
		"failed", len(failed),
		"bytes", len(res.Text),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("pipeline interrupted: %w", err)
	}
	if len(chunks) > 0 && len(failed) == len(chunks) {
		errs := make([]error, len(failed))
		for i, f := range failed {
			errs[i] = f.Err
		}
		return res, &AllChunksFailedError{Errors: errs}
	}
	return res, nil
}

// process drives one chunk's stream to completion and settles its slot.
func process(ctx context.Context, table *resultTable, c chunk.Chunk, s Streamer, logger *slog.Logger) ChunkReport {
	logger = logger.With("chunk", c.Index)
	logger.Debug("chunk claimed", "bytes", len(c.Text))
	start := time.Now()

	// An open stream is always read to the end; aborting it midway would
	// leave the slot's text undefined.
	deltas, err := s.Stream(context.WithoutCancel(ctx), c.Text)
	if err != nil {
		return settle(table, c.Index, "", err, logger)
	}

	var text string
	var streamErr error
	for d := range deltas {
		if d.Error != nil {
			streamErr = d.Error
			continue
		}
		text = d.Text
		table.update(c.Index, slot{status: InProgress, text: text})
	}

	report := settle(table, c.Index, text, streamErr, logger)
	logger.Debug("chunk settled", "status", report.Status, "elapsed", time.Since(start).Round(time.Millisecond))
	return report
}

func settle(table *resultTable, index int, text string, err error, logger *slog.Logger) ChunkReport {
	s := slot{status: Done, text: text, err: err}
	if err != nil && text == "" {
		s.status = Failed
	}

	switch {
	case s.status == Failed:
		var rc *stream.RemoteCallFailedError
		if errors.As(err, &rc) {
			logger.Warn("chunk failed", "status", rc.Status, "error", err)
		} else {
			logger.Warn("chunk failed", "error", err)
		}
	case err != nil:
		logger.Warn("chunk stream truncated", "bytes", len(text), "error", err)
	}

	table.update(index, s)
	return ChunkReport{Index: index, Status: s.status, Err: err, Bytes: len(text)}
}
