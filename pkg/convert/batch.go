package convert

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/imageforge/imageforge/pkg/formats"
	"github.com/imageforge/imageforge/pkg/logging"
)

// BatchCoordinator runs every task against every input sequentially,
// input-major. The result contract is all-or-nothing: the first failed
// unit aborts the run and discards everything already converted.
type BatchCoordinator struct {
	orch *Orchestrator
	log  *logging.Logger

	mu        sync.Mutex
	completed int64
}

// NewBatchCoordinator wraps an orchestrator for multi-unit runs
func NewBatchCoordinator(orch *Orchestrator, log *logging.Logger) *BatchCoordinator {
	return &BatchCoordinator{
		orch: orch,
		log:  log.WithField("component", "batch"),
	}
}

// BatchRun is the handle for one in-flight batch: overall progress,
// idempotent cancellation and the final all-or-nothing result set.
type BatchRun struct {
	runID      string
	events     chan ProgressEvent
	done       chan struct{}
	cancel     chan struct{}
	cancelOnce sync.Once

	results []*ConvertedImage
	err     error
}

// Events returns the overall-progress stream, one event per completed
// unit. Closed after the terminal event.
func (r *BatchRun) Events() <-chan ProgressEvent {
	return r.events
}

// Cancel requests cancellation. Takes effect between units; the unit in
// flight finishes first.
func (r *BatchRun) Cancel() {
	r.cancelOnce.Do(func() { close(r.cancel) })
}

// Wait blocks until the batch terminates. On any failure the result
// slice is nil, including units that had already converted.
func (r *BatchRun) Wait() ([]*ConvertedImage, error) {
	<-r.done
	return r.results, r.err
}

// RunID identifies this batch in progress events
func (r *BatchRun) RunID() string {
	return r.runID
}

func (r *BatchRun) cancelRequested(ctx context.Context) bool {
	select {
	case <-r.cancel:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// CompletedOperations reports how many units the most recent run
// finished before completing, failing or being cancelled.
func (b *BatchCoordinator) CompletedOperations() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completed
}

// Run executes the batch synchronously, draining progress events
func (b *BatchCoordinator) Run(ctx context.Context, inputs []ImageInput, tasks []Task) ([]*ConvertedImage, error) {
	r, err := b.Start(ctx, inputs, tasks)
	if err != nil {
		return nil, err
	}
	for range r.Events() {
	}
	return r.Wait()
}

// Start begins an asynchronous batch and returns its handle
func (b *BatchCoordinator) Start(ctx context.Context, inputs []ImageInput, tasks []Task) (*BatchRun, error) {
	if len(inputs) == 0 {
		return nil, NewError(KindFormat, "batch has no inputs")
	}
	if len(tasks) == 0 {
		return nil, NewError(KindFormat, "batch has no tasks")
	}
	r := &BatchRun{
		runID: uuid.NewString(),
		// one event per unit plus the terminal event
		events: make(chan ProgressEvent, len(inputs)*len(tasks)+2),
		done:   make(chan struct{}),
		cancel: make(chan struct{}),
	}
	go b.run(ctx, r, inputs, tasks)
	return r, nil
}

func (b *BatchCoordinator) run(ctx context.Context, r *BatchRun, inputs []ImageInput, tasks []Task) {
	defer func() {
		close(r.events)
		close(r.done)
	}()

	total := len(inputs) * len(tasks)
	b.mu.Lock()
	b.completed = 0
	b.mu.Unlock()

	b.log.Info("Batch started", map[string]interface{}{
		"run_id": r.runID,
		"inputs": len(inputs),
		"tasks":  len(tasks),
		"units":  total,
	})

	fail := func(err error, unit int) {
		r.err = err
		r.results = nil
		r.events <- ProgressEvent{
			FileID:    r.runID,
			FileIndex: unit,
			Progress:  int(float64(unit) / float64(total) * 100),
			Stage:     StageError,
			Message:   fmt.Sprintf("batch aborted at unit %d/%d", unit, total),
			Err:       err,
		}
		b.log.Warn("Batch aborted", map[string]interface{}{
			"run_id":    r.runID,
			"completed": unit,
			"units":     total,
			"error":     err.Error(),
		})
	}

	results := make([]*ConvertedImage, 0, total)
	unit := 0
	for _, input := range inputs {
		for _, task := range tasks {
			// Cancellation is checked between units, never inside one
			if r.cancelRequested(ctx) {
				fail(NewError(KindCancelled, "batch cancelled"), unit)
				return
			}

			in := input
			if task.From != formats.Unknown && task.From != "" {
				in.Format = task.From
			}
			img, err := b.orch.Convert(ctx, in, task.To, task.Options)
			if err != nil {
				fail(err, unit)
				return
			}
			results = append(results, img)
			unit++
			b.mu.Lock()
			b.completed = int64(unit)
			b.mu.Unlock()

			r.events <- ProgressEvent{
				FileID:    r.runID,
				FileIndex: unit,
				Progress:  int(float64(unit) / float64(total) * 100),
				Stage:     StageConverting,
				Message:   fmt.Sprintf("unit %d/%d converted", unit, total),
			}
		}
	}

	r.results = results
	r.events <- ProgressEvent{
		FileID:    r.runID,
		FileIndex: unit,
		Progress:  100,
		Stage:     StageCompleted,
		Message:   fmt.Sprintf("batch completed, %d units", total),
	}
	b.log.Info("Batch completed", map[string]interface{}{
		"run_id": r.runID,
		"units":  total,
	})
}
