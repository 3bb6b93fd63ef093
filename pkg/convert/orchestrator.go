// Package convert drives single and batch image conversions through an
// external codec engine: validation, invocation, result assembly,
// checkpoint progress and cooperative cancellation.
package convert

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imageforge/imageforge/pkg/codec"
	"github.com/imageforge/imageforge/pkg/formats"
	"github.com/imageforge/imageforge/pkg/logging"
)

// measurementLabel tags orchestrator timings in the telemetry history
const measurementLabel = "convert"

// ErrBusy is returned by Start while another conversion is in flight
var ErrBusy = NewError(KindConversion, "another conversion is already in progress")

// Measurer records named duration measurements. The telemetry collector
// satisfies this; nil disables measurement.
type Measurer interface {
	StartMeasurement(label string)
	EndMeasurement(label string) time.Duration
}

// Orchestrator drives one logical conversion at a time. It is
// single-flight: a second Start while one conversion runs is rejected,
// never interleaved.
type Orchestrator struct {
	loader   *codec.Loader
	measurer Measurer
	log      *logging.Logger

	mu    sync.Mutex
	busy  bool
	state State
	stats Stats
}

// NewOrchestrator creates an orchestrator over a loader. measurer may
// be nil.
func NewOrchestrator(loader *codec.Loader, measurer Measurer, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		loader:   loader,
		measurer: measurer,
		log:      log.WithField("component", "orchestrator"),
		state:    StateIdle,
	}
}

// State returns the current conversion state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Conversion is the handle for one in-flight conversion: an ordered
// progress stream, an idempotent cancellation token and the final
// result.
type Conversion struct {
	fileID     string
	events     chan ProgressEvent
	done       chan struct{}
	cancel     chan struct{}
	cancelOnce sync.Once

	result *ConvertedImage
	err    error
}

// Events returns the progress stream. It is closed after the terminal
// event.
func (c *Conversion) Events() <-chan ProgressEvent {
	return c.events
}

// Cancel requests cancellation. Idempotent; takes effect at the next
// checkpoint boundary, never mid-engine-call.
func (c *Conversion) Cancel() {
	c.cancelOnce.Do(func() { close(c.cancel) })
}

// Wait blocks until the conversion reaches a terminal state
func (c *Conversion) Wait() (*ConvertedImage, error) {
	<-c.done
	return c.result, c.err
}

// FileID identifies this conversion in progress events
func (c *Conversion) FileID() string {
	return c.fileID
}

func (c *Conversion) cancelRequested(ctx context.Context) bool {
	select {
	case <-c.cancel:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Convert runs one conversion synchronously, draining progress events
func (o *Orchestrator) Convert(ctx context.Context, input ImageInput, target formats.Format, opts *Options) (*ConvertedImage, error) {
	c, err := o.Start(ctx, input, target, opts)
	if err != nil {
		return nil, err
	}
	for range c.Events() {
	}
	return c.Wait()
}

// Start begins an asynchronous conversion and returns its handle.
// Rejects when a conversion is already in flight.
func (o *Orchestrator) Start(ctx context.Context, input ImageInput, target formats.Format, opts *Options) (*Conversion, error) {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	o.busy = true
	o.state = StateIdle
	o.mu.Unlock()

	c := &Conversion{
		fileID: uuid.NewString(),
		// The checkpoint model emits at most six events, so the stream
		// stays bounded even when the caller drains late.
		events: make(chan ProgressEvent, 8),
		done:   make(chan struct{}),
		cancel: make(chan struct{}),
	}
	go o.run(ctx, c, input, target, opts)
	return c, nil
}

func (o *Orchestrator) run(ctx context.Context, c *Conversion, input ImageInput, target formats.Format, opts *Options) {
	defer func() {
		o.mu.Lock()
		o.busy = false
		o.state = StateIdle
		o.mu.Unlock()
		close(c.events)
		close(c.done)
	}()
	// LIFO: the measurement closes before the done channel does, so a
	// caller returning from Wait always finds the snapshot recorded.
	if o.measurer != nil {
		o.measurer.StartMeasurement(measurementLabel)
		defer o.measurer.EndMeasurement(measurementLabel)
	}

	emit := func(progress int, stage Stage, message string) {
		c.events <- ProgressEvent{FileID: c.fileID, Progress: progress, Stage: stage, Message: message}
	}
	fail := func(err *Error, state State) {
		o.setState(state)
		o.recordOutcome(false)
		c.err = err
		c.events <- ProgressEvent{FileID: c.fileID, Progress: 0, Stage: StageError, Message: err.Message, Err: err}
		o.log.Warn("Conversion failed", map[string]interface{}{
			"file_id": c.fileID,
			"kind":    string(err.Kind),
			"error":   err.Error(),
		})
	}
	cancelled := func() {
		fail(NewError(KindCancelled, "conversion cancelled"), StateCancelled)
	}

	emit(checkpointStart, StageUploading, "conversion started")
	if c.cancelRequested(ctx) {
		o.setState(StateValidating) // enter the machine before leaving it
		cancelled()
		return
	}

	// Readiness gate
	eng, ok := o.loader.Engine()
	if !ok {
		o.setState(StateValidating)
		fail(NewError(KindConversion, "engine not ready"), StateFailed)
		return
	}

	o.setState(StateValidating)
	emit(checkpointInputRead, StageUploading, "input read")

	source := input.Format
	if source == "" || source == formats.Unknown {
		source = formats.Detect(input.Data, input.SourceName)
	}
	if verr := validate(input, source, target); verr != nil {
		fail(verr, StateFailed)
		return
	}

	merged := MergeOptions(target, opts)

	if c.cancelRequested(ctx) {
		cancelled()
		return
	}

	o.setState(StateConverting)
	emit(checkpointValidated, StageConverting, "invoking engine")

	params := codec.CallParams{}
	if merged.Quality != nil {
		params.Quality = *merged.Quality
	}
	if merged.CompressionLevel != nil {
		params.CompressionLevel = *merged.CompressionLevel
	}
	if merged.Progressive != nil {
		params.Progressive = *merged.Progressive
	}

	// Wall-clock around the engine call specifically; this, not the
	// whole pipeline, is the reported conversion time.
	start := time.Now()
	res, err := eng.Convert(ctx, input.Data, source, target, params)
	wall := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			cancelled()
			return
		}
		fail(WrapError(KindConversion, "engine conversion failed", err), StateFailed)
		return
	}

	// Checkpoint boundary: a cancellation requested during the engine
	// call is honored here, after the call returned. No partial result
	// escapes.
	if c.cancelRequested(ctx) {
		cancelled()
		return
	}

	o.setState(StateFinalizing)
	emit(checkpointFinalize, StageDownloading, "finalizing result")

	img := &ConvertedImage{
		ID:               uuid.NewString(),
		Data:             res.Data,
		Format:           target,
		Width:            res.Width,
		Height:           res.Height,
		ConversionTimeMs: float64(wall.Microseconds()) / 1000.0,
		OriginalSize:     int64(len(input.Data)),
		// Size and ratio are engine-authoritative; recomputing them
		// here would double-count encoder padding.
		ConvertedSize:    res.ConvertedSize,
		CompressionRatio: res.CompressionRatio,
		AppliedOptions:   merged,
		ConvertedAt:      time.Now(),
	}

	o.setState(StateCompleted)
	o.recordOutcome(true)
	o.recordSuccess(img, wall)
	c.result = img
	emit(checkpointDone, StageCompleted, "conversion completed")
}

func validate(input ImageInput, source, target formats.Format) *Error {
	if len(input.Data) == 0 {
		return NewError(KindFormat, "empty input data")
	}
	if source == formats.Unknown {
		return NewError(KindFormat, "unknown source format")
	}
	if !formats.IsSupported(source) {
		e := NewError(KindFormat, "unsupported source format")
		e.Detail = source.String()
		return e
	}
	if !formats.IsSupported(target) {
		e := NewError(KindFormat, "unsupported target format")
		e.Detail = target.String()
		return e
	}
	if source == target {
		e := NewError(KindFormat, "source and target formats are identical")
		e.Detail = source.String()
		return e
	}
	return nil
}

func (o *Orchestrator) setState(to State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := ValidateTransition(o.state, to); err != nil {
		// Transition table violations are programming errors; log and
		// force the state so the instance is not wedged.
		o.log.Error("Invalid state transition", map[string]interface{}{
			"from": string(o.state), "to": string(to),
		})
	}
	o.state = to
}
