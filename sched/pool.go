// Package sched executes discovered units across a fixed pool of workers.
// Units are partitioned round-robin over the deterministic registry order;
// each worker runs its share strictly sequentially and produces one outcome
// and one coverage sample per unit. Failures, panics and timeouts are
// contained to the unit (or, for a worker fault, to that worker's remaining
// units); outcomes come back in registry order regardless of completion
// order.
package sched

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/suiterun/suiterun/coverage"
	"github.com/suiterun/suiterun/model"
	"github.com/suiterun/suiterun/registry"
)

// Options configure a pool.
type Options struct {
	// Workers is the number of parallel execution contexts. Values below 1
	// are treated as 1.
	Workers int
	// Timeout is the per-unit limit applied when a spec declares none.
	// Zero disables the default limit.
	Timeout time.Duration
	// Grace is how long an already-running unit may keep going after the
	// run is cancelled before it is recorded as timed out.
	Grace time.Duration
}

// UnitEnv builds the configuration for one unit about to execute on the
// given worker. The returned cleanup runs after the unit finishes, on every
// exit path, before its outcome is finalized.
type UnitEnv func(unit registry.Spec, worker int, mark registry.CoverageMarker) (registry.UnitConfig, func())

// Pool runs units.
type Pool struct {
	logger zerolog.Logger
	opts   Options
}

// New returns a pool with the given options.
func New(logger zerolog.Logger, opts Options) *Pool {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pool{logger: logger, opts: opts}
}

// Run executes all units and returns their outcomes in input order plus the
// coverage samples produced along the way. Cancelling ctx stops dispatch;
// running units get the grace period, then are recorded TimedOut.
func (p *Pool) Run(ctx context.Context, units []registry.Spec, env UnitEnv) ([]model.Outcome, []model.CoverageSample) {
	outcomes := make([]model.Outcome, len(units))
	samples := make([]model.CoverageSample, len(units))

	perWorker := make([][]int, p.opts.Workers)
	for i := range units {
		w := i % p.opts.Workers
		perWorker[w] = append(perWorker[w], i)
	}

	var wg sync.WaitGroup
	for w := 0; w < p.opts.Workers; w++ {
		if len(perWorker[w]) == 0 {
			continue
		}
		wg.Add(1)
		go p.worker(ctx, w, perWorker[w], units, env, outcomes, samples, &wg)
	}
	wg.Wait()

	// Drop placeholder samples for units that never executed.
	merged := make([]model.CoverageSample, 0, len(samples))
	for _, s := range samples {
		if s.ID != "" {
			merged = append(merged, s)
		}
	}
	return outcomes, merged
}

// worker runs its assigned units sequentially. Indices are disjoint across
// workers, so result writes need no lock. A fault in the worker loop itself
// marks every remaining unit Errored and lets sibling workers continue.
func (p *Pool) worker(ctx context.Context, w int, idxs []int, units []registry.Spec, env UnitEnv, outcomes []model.Outcome, samples []model.CoverageSample, wg *sync.WaitGroup) {
	cursor := 0
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Int("worker", w).Interface("fault", r).Msg("Worker fault, failing its remaining units")
			for _, i := range idxs[cursor:] {
				outcomes[i] = model.Outcome{
					Unit:   units[i].Name,
					Topic:  units[i].Topic,
					Status: model.StatusErrored,
					Failure: &model.FailureDetail{
						Summary:  "worker executing this unit died",
						Expected: "worker survives the unit",
						Actual:   fmt.Sprintf("worker %d fault: %v", w, r),
					},
				}
			}
		}
		wg.Done()
	}()

	for ; cursor < len(idxs); cursor++ {
		i := idxs[cursor]
		outcomes[i], samples[i] = p.runUnit(ctx, w, units[i], env)
	}
}

func (p *Pool) runUnit(ctx context.Context, worker int, unit registry.Spec, env UnitEnv) (model.Outcome, model.CoverageSample) {
	out := model.Outcome{Unit: unit.Name, Topic: unit.Topic}

	if unit.SkipReason != "" {
		out.Status = model.StatusSkipped
		out.SkipReason = unit.SkipReason
		p.logger.Debug().Str("unit", unit.Name).Str("reason", unit.SkipReason).Msg("Skipping unit")
		return out, model.CoverageSample{}
	}

	// The run may already be cancelled before this unit was dispatched.
	select {
	case <-ctx.Done():
		out.Status = model.StatusTimedOut
		out.Failure = &model.FailureDetail{
			Summary:  "unit was not started",
			Expected: "dispatch before the run deadline",
			Actual:   "run cancelled before the unit started",
		}
		return out, model.CoverageSample{}
	default:
	}

	sample := model.CoverageSample{ID: uuid.NewString(), Worker: worker, Unit: unit.Name}
	rec := coverage.NewRecorder(&sample)
	cfg, cleanup := env(unit, worker, rec)
	defer cleanup()

	timeout := unit.Timeout
	if timeout <= 0 {
		timeout = p.opts.Timeout
	}

	unitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		value any
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: &panicError{value: r, stack: debug.Stack()}}
			}
		}()
		v, err := unit.Run(unitCtx, cfg)
		done <- result{value: v, err: err}
	}()

	var timeoutC <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timeoutC = t.C
	}

	start := time.Now()
	p.logger.Debug().Str("unit", unit.Name).Int("worker", worker).Msg("Executing unit")

	select {
	case res := <-done:
		p.finish(&out, res.value, res.err, time.Since(start))
	case <-timeoutC:
		cancel()
		out.Status = model.StatusTimedOut
		out.Duration = time.Since(start)
		out.Failure = &model.FailureDetail{
			Summary:  "unit exceeded its timeout",
			Expected: fmt.Sprintf("completion within %s", timeout),
			Actual:   fmt.Sprintf("still running after %s", out.Duration.Round(time.Millisecond)),
		}
		p.logger.Warn().Str("unit", unit.Name).Dur("timeout", timeout).Msg("Unit timed out, abandoning")
		out.SampleID = sample.ID
		// The abandoned goroutine may still be marking; take ownership of
		// the maps so the merge never reads what it writes.
		return out, rec.Detach()
	case <-ctx.Done():
		cancel()
		// Grace period for a unit that was already running when the run
		// was cancelled.
		select {
		case res := <-done:
			p.finish(&out, res.value, res.err, time.Since(start))
		case <-time.After(p.opts.Grace):
			out.Status = model.StatusTimedOut
			out.Duration = time.Since(start)
			out.Failure = &model.FailureDetail{
				Summary:  "unit did not finish before the run deadline",
				Expected: fmt.Sprintf("completion within the grace period (%s)", p.opts.Grace),
				Actual:   fmt.Sprintf("still running after %s", out.Duration.Round(time.Millisecond)),
			}
			p.logger.Warn().Str("unit", unit.Name).Msg("Unit abandoned after run cancellation")
			out.SampleID = sample.ID
			return out, rec.Detach()
		}
	}

	out.SampleID = sample.ID
	return out, sample
}

func (p *Pool) finish(out *model.Outcome, value any, err error, elapsed time.Duration) {
	out.Duration = elapsed

	if err == nil {
		out.Status = model.StatusPassed
		if value != nil {
			out.Value = fmt.Sprintf("%+v", value)
		}
		return
	}

	switch e := err.(type) {
	case *registry.Failure:
		out.Status = model.StatusFailed
		out.Failure = &model.FailureDetail{
			Summary:  e.Summary,
			Expected: e.Expected,
			Actual:   e.Actual,
			Context:  e.Context,
		}
	case *panicError:
		out.Status = model.StatusErrored
		out.Failure = &model.FailureDetail{
			Summary:  "unit panicked",
			Expected: "normal return",
			Actual:   fmt.Sprintf("panic: %v", e.value),
			Context:  string(e.stack),
		}
	default:
		out.Status = model.StatusErrored
		out.Failure = &model.FailureDetail{
			Summary:  "unit returned an unexpected error",
			Expected: "no error",
			Actual:   err.Error(),
		}
	}
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
