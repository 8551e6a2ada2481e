// ABOUTME: Registry of per-device read-aloud controllers created on first use
// ABOUTME: Controllers idle past the timeout are closed by a background sweeper

package readaloud

import (
	"io"
	"sync"
	"time"

	"cropguard-api/core/interfaces"
)

// Factory builds the engine and highlighter for a device. Engines that
// implement io.Closer are closed with their controller.
type Factory func(deviceID string) (SpeechEngine, Highlighter)

// Observer is told about speaking changes of every controller
type Observer func(deviceID string, speaking bool)

type entry struct {
	ctrl     *Controller
	closer   io.Closer
	unwatch  func()
	lastUsed time.Time
}

// Registry owns one Controller per device
type Registry struct {
	factory  Factory
	observer Observer
	logger   interfaces.Logger
	idle     time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewRegistry creates a registry. A positive idleTimeout starts the sweeper.
func NewRegistry(factory Factory, observer Observer, logger interfaces.Logger, idleTimeout time.Duration) *Registry {
	r := &Registry{
		factory:  factory,
		observer: observer,
		logger:   logger,
		idle:     idleTimeout,
		now:      time.Now,
		entries:  make(map[string]*entry),
		stop:     make(chan struct{}),
	}

	if idleTimeout > 0 {
		interval := idleTimeout / 2
		if interval < time.Second {
			interval = time.Second
		}
		r.wg.Add(1)
		go r.sweeper(interval)
	}
	return r
}

// Get returns the device's controller, creating it on first use.
// It returns nil once the registry is closed.
func (r *Registry) Get(deviceID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}

	if e, ok := r.entries[deviceID]; ok {
		e.lastUsed = r.now()
		return e.ctrl
	}

	engine, highlighter := r.factory(deviceID)
	ctrl := NewController(engine, highlighter, r.logger)
	e := &entry{ctrl: ctrl, unwatch: func() {}, lastUsed: r.now()}
	if cl, ok := engine.(io.Closer); ok {
		e.closer = cl
	}

	if r.observer != nil {
		changes, unwatch := ctrl.Watch()
		e.unwatch = unwatch
		r.wg.Add(1)
		go r.forward(deviceID, changes, ctrl.done)
	}

	r.entries[deviceID] = e
	r.logger.Debug("Read aloud controller created", map[string]interface{}{
		"deviceId": deviceID,
	})
	return ctrl
}

// Peek returns the device's controller without creating one
func (r *Registry) Peek(deviceID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[deviceID]
	if !ok {
		return nil, false
	}
	return e.ctrl, true
}

// Touch marks the device's controller as used without creating one
func (r *Registry) Touch(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[deviceID]
	if ok {
		e.lastUsed = r.now()
	}
	return ok
}

// Remove closes and forgets the device's controller
func (r *Registry) Remove(deviceID string) {
	r.mu.Lock()
	e, ok := r.entries[deviceID]
	delete(r.entries, deviceID)
	r.mu.Unlock()

	if ok {
		e.close()
	}
}

// Len returns the number of live controllers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops the sweeper and every controller
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	close(r.stop)
	for _, e := range entries {
		e.close()
	}
	r.wg.Wait()
}

func (e *entry) close() {
	e.ctrl.Close()
	e.unwatch()
	if e.closer != nil {
		_ = e.closer.Close()
	}
}

func (r *Registry) forward(deviceID string, changes <-chan bool, done <-chan struct{}) {
	defer r.wg.Done()
	for {
		select {
		case speaking := <-changes:
			r.observer(deviceID, speaking)
		case <-done:
			select {
			case speaking := <-changes:
				r.observer(deviceID, speaking)
			default:
			}
			return
		}
	}
}

func (r *Registry) sweeper(interval time.Duration) {
	defer r.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.sweep(); n > 0 {
				r.logger.Debug("Closed idle read aloud controllers", map[string]interface{}{
					"count": n,
				})
			}
		case <-r.stop:
			return
		}
	}
}

// sweep closes controllers unused for longer than the idle timeout
func (r *Registry) sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*entry
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		e.close()
	}
	return len(stale)
}
