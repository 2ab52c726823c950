// Package engine runs the batch download pipeline: a fixed worker pool
// dispatches validated targets through fetch, retry and write, and an
// aggregator assembles the final report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/omeister/jpegbatch/internal/domain"
	"github.com/omeister/jpegbatch/internal/fetcher"
	"github.com/omeister/jpegbatch/internal/infra/logger"
	"github.com/omeister/jpegbatch/internal/normalize"
)

// Fetcher performs a single fetch attempt for one target.
type Fetcher interface {
	Fetch(ctx context.Context, target domain.Target) (*fetcher.Result, error)
}

// Writer persists one fetched body under a collision-safe name.
type Writer interface {
	Write(name string, data []byte) (string, error)
}

// Options configures a batch run.
type Options struct {
	// Concurrency is the number of parallel workers. Default: 8
	Concurrency int

	// MaxRetries is the total attempt budget per target, transient
	// failures included. Default: 3
	MaxRetries int

	// RetryBackoff is the backoff before the second attempt; it doubles
	// per attempt. Default: 500ms
	RetryBackoff time.Duration

	// MaxBackoff caps the backoff delay. Default: 8s
	MaxBackoff time.Duration

	// OnOutcome, when set, is invoked for every recorded outcome. Calls
	// are serialized.
	OnOutcome func(domain.Outcome)
}

func (o *Options) applyDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 8 * time.Second
	}
}

// Engine wires the fetcher and writer into a worker pool.
type Engine struct {
	fetch Fetcher
	write Writer
	log   *logger.Logger
	opts  Options
}

func New(fetch Fetcher, write Writer, log *logger.Logger, opts Options) *Engine {
	opts.applyDefaults()
	return &Engine{
		fetch: fetch,
		write: write,
		log:   log,
		opts:  opts,
	}
}

type job struct {
	index  int
	target domain.Target
}

// Run processes every input line to a terminal outcome and returns the
// report. Per-target failures never abort the batch; cancelling ctx lets
// in-flight attempts finish or abort and records un-started targets as
// failed with a cancellation reason.
func (e *Engine) Run(ctx context.Context, lines []string) *domain.Report {
	collector := newCollector(len(lines), e.opts.OnOutcome)

	// Validation happens up front, in input order, so duplicates resolve
	// deterministically regardless of worker timing.
	norm := normalize.New()
	jobs := make([]job, 0, len(lines))
	for i, line := range lines {
		target, reason := norm.Line(line)
		if reason != "" {
			collector.record(domain.Outcome{
				Index:  i,
				Input:  line,
				Kind:   domain.OutcomeRejected,
				Reason: reason,
			})
			continue
		}
		jobs = append(jobs, job{index: i, target: target})
	}

	queue := make(chan job)
	var wg sync.WaitGroup

	for w := 0; w < e.opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, queue, collector)
		}()
	}

	// Dispatch in input order; workers pick targets up as slots free.
dispatch:
	for _, j := range jobs {
		select {
		case <-ctx.Done():
			break dispatch
		case queue <- j:
		}
	}
	close(queue)
	wg.Wait()

	// Anything still unrecorded was never dispatched or was abandoned by
	// a cancelled worker.
	for i, line := range lines {
		if !collector.recorded(i) {
			collector.record(domain.Outcome{
				Index:  i,
				Input:  line,
				Kind:   domain.OutcomeFailed,
				Reason: domain.ReasonCancelled,
			})
		}
	}

	return collector.report()
}

func (e *Engine) worker(ctx context.Context, queue <-chan job, collector *collector) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-queue:
			if !ok {
				return
			}
			collector.record(e.process(ctx, j))
		}
	}
}

// process runs the fetch→retry→write pipeline for one target. Backoff
// sleeps suspend only this worker.
func (e *Engine) process(ctx context.Context, j job) domain.Outcome {
	var lastReason string

	for attempt := 1; attempt <= e.opts.MaxRetries; attempt++ {
		res, err := e.fetch.Fetch(ctx, j.target)
		if err == nil {
			return e.persist(j, res, attempt)
		}

		if errors.Is(err, context.Canceled) {
			return domain.Outcome{
				Index:    j.index,
				Input:    j.target.RawInput,
				Kind:     domain.OutcomeFailed,
				Reason:   domain.ReasonCancelled,
				Attempts: attempt,
			}
		}

		if !fetcher.IsTransient(err) {
			e.log.Error("%s failed permanently: %v", j.target.URL, err)
			return domain.Outcome{
				Index:    j.index,
				Input:    j.target.RawInput,
				Kind:     domain.OutcomeFailed,
				Reason:   err.Error(),
				Attempts: attempt,
			}
		}

		lastReason = err.Error()
		if attempt < e.opts.MaxRetries {
			e.log.Warn("%s attempt %d/%d: %v", j.target.URL, attempt, e.opts.MaxRetries, err)
			if err := e.backoff(ctx, attempt); err != nil {
				return domain.Outcome{
					Index:    j.index,
					Input:    j.target.RawInput,
					Kind:     domain.OutcomeFailed,
					Reason:   domain.ReasonCancelled,
					Attempts: attempt,
				}
			}
		}
	}

	e.log.Error("%s failed after %d attempts: %s", j.target.URL, e.opts.MaxRetries, lastReason)
	return domain.Outcome{
		Index:    j.index,
		Input:    j.target.RawInput,
		Kind:     domain.OutcomeFailed,
		Reason:   lastReason,
		Attempts: e.opts.MaxRetries,
	}
}

func (e *Engine) persist(j job, res *fetcher.Result, attempts int) domain.Outcome {
	path, err := e.write.Write(j.target.FileName, res.Data)
	if err != nil {
		// A filesystem problem will not be fixed by refetching.
		e.log.Error("%s: %v", j.target.URL, err)
		return domain.Outcome{
			Index:    j.index,
			Input:    j.target.RawInput,
			Kind:     domain.OutcomeFailed,
			Reason:   fmt.Sprintf("write failed: %v", err),
			Attempts: attempts,
		}
	}

	e.log.Info("wrote %s (%d bytes)", path, res.Length)
	return domain.Outcome{
		Index:    j.index,
		Input:    j.target.RawInput,
		Kind:     domain.OutcomeWritten,
		Path:     path,
		Bytes:    res.Length,
		Attempts: attempts,
	}
}

// backoff sleeps for an exponentially increasing delay with ±20% jitter,
// aborting early on cancellation.
func (e *Engine) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(float64(e.opts.RetryBackoff) * math.Pow(2, float64(attempt-1)))
	if delay > e.opts.MaxBackoff {
		delay = e.opts.MaxBackoff
	}
	jittered := time.Duration(float64(delay) * (0.8 + 0.4*rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jittered):
		return nil
	}
}
