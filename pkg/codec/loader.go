package codec

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/imageforge/imageforge/pkg/logging"
)

// Factory instantiates an engine. The loader owns when it runs; the
// factory owns how the engine comes to exist (WASM fetch, cgo bridge,
// simulation).
type Factory func(ctx context.Context) (Engine, error)

// Loader manages the codec engine lifecycle: instantiate, initialize,
// warm up, expose, tear down. Exactly one load runs at a time;
// concurrent callers share the in-flight attempt.
type Loader struct {
	factory Factory
	log     *logging.Logger

	group singleflight.Group

	mu      sync.RWMutex
	loading bool
	engine  Engine
	loadErr error
}

// NewLoader creates a loader around an engine factory
func NewLoader(factory Factory, log *logging.Logger) *Loader {
	return &Loader{
		factory: factory,
		log:     log.WithField("component", "loader"),
	}
}

// Load instantiates and prepares the engine. Re-entrant calls while a
// load is outstanding join the in-flight attempt instead of starting a
// second one. After a failed attempt the caller may simply call Load
// again.
func (l *Loader) Load(ctx context.Context) (Engine, error) {
	l.mu.RLock()
	if l.engine != nil && l.loadErr == nil {
		eng := l.engine
		l.mu.RUnlock()
		return eng, nil
	}
	l.mu.RUnlock()

	v, err, _ := l.group.Do("load", func() (interface{}, error) {
		return l.doLoad(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(Engine), nil
}

func (l *Loader) doLoad(ctx context.Context) (Engine, error) {
	l.mu.Lock()
	l.loading = true
	l.loadErr = nil
	l.mu.Unlock()

	finish := func(eng Engine, err error) (Engine, error) {
		l.mu.Lock()
		l.loading = false
		l.engine = eng
		l.loadErr = err
		l.mu.Unlock()
		return eng, err
	}

	eng, err := l.factory(ctx)
	if err != nil {
		return finish(nil, fmt.Errorf("engine instantiation failed: %w", err))
	}

	if init, ok := eng.(Initializer); ok {
		if err := init.Init(ctx); err != nil {
			return finish(nil, fmt.Errorf("engine initialization failed: %w", err))
		}
	}

	// Warm-up forces lazy compilation paths; a failure here must not
	// block readiness.
	if w, ok := eng.(Warmupper); ok {
		if err := w.Warmup(); err != nil {
			l.log.Warn("Engine warm-up failed", map[string]interface{}{
				"engine": eng.Name(),
				"error":  err.Error(),
			})
		}
	}

	l.log.Info("Engine ready", map[string]interface{}{"engine": eng.Name()})
	return finish(eng, nil)
}

// Ready reports derived readiness: not loading, no load error, and an
// engine handle present. Never stored, always recomputed.
func (l *Loader) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return !l.loading && l.loadErr == nil && l.engine != nil
}

// Engine returns the loaded handle, or false when not ready
func (l *Loader) Engine() (Engine, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.loading || l.loadErr != nil || l.engine == nil {
		return nil, false
	}
	return l.engine, true
}

// Err returns the error of the most recent load attempt
func (l *Loader) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadErr
}

// Close tears the engine down. Cleanup failures are logged, never
// returned; teardown must not be able to fail from the caller's view.
func (l *Loader) Close() error {
	l.mu.Lock()
	eng := l.engine
	l.engine = nil
	l.loadErr = nil
	l.mu.Unlock()

	if eng == nil {
		return nil
	}
	if c, ok := eng.(Cleaner); ok {
		if err := c.Cleanup(); err != nil {
			l.log.Warn("Engine cleanup failed", map[string]interface{}{
				"engine": eng.Name(),
				"error":  err.Error(),
			})
		}
	}
	l.log.Info("Engine released", map[string]interface{}{"engine": eng.Name()})
	return nil
}
