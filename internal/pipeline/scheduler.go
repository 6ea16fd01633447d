package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"petreel/internal/checkpoint"
	"petreel/internal/infra"
)

// ItemError reports which logical item a run aborted on. Position is 1-based
// for operator-facing messages; Index is the zero-based slot in the input
// list.
type ItemError struct {
	Index    int
	Position int
	Err      error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d failed: %v", e.Position, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// ItemFunc produces the artifact for one input item and returns its path.
type ItemFunc func(ctx context.Context, index int, item string) (string, error)

// Run describes one scheduler invocation: the ordered inputs for a stage and
// the function that turns each input into an artifact.
type Run struct {
	SessionID string
	Phase     checkpoint.Phase
	Items     []string
	BatchSize int
	// ContinueOnError is the explicit tolerant mode: a failed item commits an
	// empty-string placeholder instead of aborting the run. The default is
	// stop-on-first-failure.
	ContinueOnError bool
	Do              ItemFunc
}

// Scheduler drives a stage's items through bounded-concurrency batches with a
// durable checkpoint commit after every individual item. Batches run strictly
// in sequence; only items inside a batch overlap.
type Scheduler struct {
	store      *checkpoint.Store
	batchDelay time.Duration
	logger     infra.Logger
}

// NewScheduler wires a scheduler against a checkpoint store. batchDelay is
// inserted between batches to stay under the API's undocumented rate limits.
func NewScheduler(store *checkpoint.Store, batchDelay time.Duration, logger infra.Logger) *Scheduler {
	return &Scheduler{
		store:      store,
		batchDelay: batchDelay,
		logger:     infra.Component(logger, "scheduler"),
	}
}

// Execute processes run.Items, resuming from any checkpoint already stored
// for the session. Results are ordered by input index; on success the slice
// has one entry per item. On failure the checkpoint records the failing index
// and the error returned is an *ItemError wrapping the cause.
func (s *Scheduler) Execute(ctx context.Context, run Run) ([]string, error) {
	if run.SessionID == "" {
		return nil, errors.New("pipeline: session id is required")
	}
	if run.Do == nil {
		return nil, errors.New("pipeline: item function is required")
	}
	if len(run.Items) == 0 {
		return nil, nil
	}
	batchSize := run.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	cp, err := s.store.Load(run.SessionID)
	if err != nil {
		return nil, err
	}
	if cp == nil || cp.Phase != run.Phase || cp.TotalItems != len(run.Items) {
		cp = checkpoint.New(run.SessionID, run.Phase, run.Items)
		if err := s.store.Save(cp); err != nil {
			return nil, err
		}
	}

	done := cp.CompletedSet()
	pending := make([]int, 0, len(run.Items))
	for i := range run.Items {
		if _, ok := done[i]; !ok {
			pending = append(pending, i)
		}
	}
	if len(done) > 0 {
		s.logger.Info().
			Str("session_id", run.SessionID).
			Str("phase", string(run.Phase)).
			Int("completed", len(done)).
			Int("remaining", len(pending)).
			Msg("resuming from checkpoint")
	}

	var mu sync.Mutex
	for start := 0; start < len(pending); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]
		s.logger.Info().
			Str("session_id", run.SessionID).
			Ints("indices", batch).
			Msg("processing batch")

		itemErrs := make([]error, len(batch))
		var g errgroup.Group
		for bi, idx := range batch {
			bi, idx := bi, idx
			g.Go(func() error {
				result, err := run.Do(ctx, idx, run.Items[idx])
				if err != nil {
					if !run.ContinueOnError {
						itemErrs[bi] = err
						return err
					}
					s.logger.Warn().
						Err(err).
						Int("index", idx).
						Msg("item failed, continuing with empty placeholder")
					result = ""
				}
				mu.Lock()
				defer mu.Unlock()
				cp.RecordResult(idx, result)
				if saveErr := s.store.Save(cp); saveErr != nil {
					s.logger.Error().Err(saveErr).Int("index", idx).Msg("checkpoint save failed")
				}
				return nil
			})
		}
		// Siblings already in flight are allowed to finish and commit their
		// results before the run aborts; nothing is cancelled mid-item.
		_ = g.Wait()

		for bi, itemErr := range itemErrs {
			if itemErr == nil {
				continue
			}
			idx := batch[bi]
			mu.Lock()
			cp.RecordFailure(idx, itemErr)
			if saveErr := s.store.Save(cp); saveErr != nil {
				s.logger.Error().Err(saveErr).Msg("checkpoint save failed")
			}
			mu.Unlock()
			s.logger.Error().
				Err(itemErr).
				Str("session_id", run.SessionID).
				Int("index", idx).
				Int("completed", len(cp.CompletedIndices)).
				Msg("stage aborted; progress saved for resume")
			return nil, &ItemError{Index: idx, Position: idx + 1, Err: itemErr}
		}

		if end < len(pending) && s.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.batchDelay):
			}
		}
	}

	cp.MarkCompleted()
	if err := s.store.Save(cp); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("session_id", run.SessionID).
		Str("phase", string(run.Phase)).
		Int("items", cp.TotalItems).
		Int("seconds", cp.TotalSeconds).
		Msg("stage completed")
	return append([]string(nil), cp.Results...), nil
}
