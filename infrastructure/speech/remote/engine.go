// ABOUTME: Remote speech engine and highlighter driving a device over the event hub
// ABOUTME: The device speaks each utterance itself and acknowledges completion over HTTP

package remote

import (
	"errors"
	"sync"

	"cropguard-api/core/readaloud"
)

// Event names used on the read-aloud stream
const (
	EventUtterance   = "utterance"
	EventHighlight   = "highlight"
	EventUnhighlight = "unhighlight"
	EventCancel      = "cancel"
	EventState       = "state"
)

// UtteranceEvent asks the device to speak one element
type UtteranceEvent struct {
	Generation uint64 `json:"generation"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Locale     string `json:"locale"`
	AudioURL   string `json:"audioUrl,omitempty"`
}

// HighlightEvent marks an element and scrolls it into view
type HighlightEvent struct {
	Index  int    `json:"index"`
	Path   string `json:"path"`
	Text   string `json:"text"`
	Scroll bool   `json:"scroll"`
}

// UnhighlightEvent removes the mark from an element
type UnhighlightEvent struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
}

// CancelEvent stops whatever the device is speaking
type CancelEvent struct {
	Generation uint64 `json:"generation"`
}

// StateEvent reports whether the device's controller is speaking
type StateEvent struct {
	Speaking bool `json:"speaking"`
}

var (
	// ErrNoListener is reported when an utterance reaches no subscriber
	ErrNoListener = errors.New("no device listening")

	// ErrDisconnected is reported when the device goes away mid-utterance
	ErrDisconnected = errors.New("device disconnected")
)

// AudioURLFunc builds a synthesized audio link for an utterance
type AudioURLFunc func(text, locale string) string

type pending struct {
	generation uint64
	index      int
	done       func(error)
}

// Bridge connects read-aloud controllers to devices through a Hub
type Bridge struct {
	hub      *Hub
	audioURL AudioURLFunc

	mu      sync.Mutex
	engines map[string]*Engine
}

// NewBridge creates a bridge. audioURL may be nil.
func NewBridge(hub *Hub, audioURL AudioURLFunc) *Bridge {
	return &Bridge{hub: hub, audioURL: audioURL, engines: make(map[string]*Engine)}
}

// Hub returns the underlying hub
func (b *Bridge) Hub() *Hub {
	return b.hub
}

// Parts builds the engine and highlighter of a device; it is a readaloud.Factory
func (b *Bridge) Parts(deviceID string) (readaloud.SpeechEngine, readaloud.Highlighter) {
	e := &Engine{bridge: b, deviceID: deviceID}

	b.mu.Lock()
	if old, ok := b.engines[deviceID]; ok {
		old.fail(ErrDisconnected)
	}
	b.engines[deviceID] = e
	b.mu.Unlock()

	return e, Highlighter{hub: b.hub, deviceID: deviceID}
}

// PublishState forwards speaking changes; it is a readaloud.Observer
func (b *Bridge) PublishState(deviceID string, speaking bool) {
	b.hub.Publish(deviceID, StateEvent{Speaking: speaking})
}

// Subscribe attaches a device stream
func (b *Bridge) Subscribe(deviceID string) *Subscription {
	return b.hub.Subscribe(deviceID)
}

// Unsubscribe detaches a device stream. When the last stream of a device
// goes away its pending utterance fails so the controller can go idle.
func (b *Bridge) Unsubscribe(s *Subscription) {
	if b.hub.Unsubscribe(s) > 0 {
		return
	}
	if e := b.engine(s.DeviceID); e != nil {
		e.fail(ErrDisconnected)
	}
}

// Ack resolves the device's pending utterance. It reports false when the
// acknowledgement does not match the utterance in flight.
func (b *Bridge) Ack(deviceID string, generation uint64, index int, errMsg string) bool {
	e := b.engine(deviceID)
	if e == nil {
		return false
	}
	var err error
	if errMsg != "" {
		err = errors.New(errMsg)
	}
	return e.Ack(generation, index, err)
}

func (b *Bridge) engine(deviceID string) *Engine {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.engines[deviceID]
}

func (b *Bridge) release(e *Engine) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.engines[e.deviceID] == e {
		delete(b.engines, e.deviceID)
	}
}

// Engine is a readaloud.SpeechEngine for one device
type Engine struct {
	bridge   *Bridge
	deviceID string

	mu      sync.Mutex
	pending *pending
}

// Available reports whether the device has an open stream
func (e *Engine) Available() bool {
	return e.bridge.hub.Subscribers(e.deviceID) > 0
}

// Speak publishes an utterance and waits for the device's Ack
func (e *Engine) Speak(req readaloud.UtteranceRequest, done func(err error)) {
	e.mu.Lock()
	e.pending = &pending{generation: req.Generation, index: req.Index, done: done}
	e.mu.Unlock()

	ev := UtteranceEvent{
		Generation: req.Generation,
		Index:      req.Index,
		Text:       req.Text,
		Locale:     req.Locale,
	}
	if e.bridge.audioURL != nil {
		ev.AudioURL = e.bridge.audioURL(req.Text, req.Locale)
	}

	if e.bridge.hub.Publish(e.deviceID, ev) == 0 {
		e.Ack(req.Generation, req.Index, ErrNoListener)
	}
}

// Ack resolves the pending utterance once
func (e *Engine) Ack(generation uint64, index int, err error) bool {
	e.mu.Lock()
	p := e.pending
	if p == nil || p.generation != generation || p.index != index {
		e.mu.Unlock()
		return false
	}
	e.pending = nil
	e.mu.Unlock()

	p.done(err)
	return true
}

// Cancel forgets the pending utterance and tells the device to stop
func (e *Engine) Cancel() {
	e.mu.Lock()
	var generation uint64
	if e.pending != nil {
		generation = e.pending.generation
	}
	e.pending = nil
	e.mu.Unlock()

	e.bridge.hub.Publish(e.deviceID, CancelEvent{Generation: generation})
}

// Close fails any pending utterance and detaches the engine from the bridge
func (e *Engine) Close() error {
	e.fail(ErrDisconnected)
	e.bridge.release(e)
	return nil
}

func (e *Engine) fail(err error) {
	e.mu.Lock()
	p := e.pending
	e.pending = nil
	e.mu.Unlock()

	if p != nil {
		p.done(err)
	}
}

// Highlighter publishes highlight events for one device
type Highlighter struct {
	hub      *Hub
	deviceID string
}

// Mark highlights el and asks the device to scroll to it
func (h Highlighter) Mark(el readaloud.ReadableElement) {
	h.hub.Publish(h.deviceID, HighlightEvent{Index: el.Index, Path: el.Path, Text: el.Text, Scroll: true})
}

// Unmark removes the highlight from el
func (h Highlighter) Unmark(el readaloud.ReadableElement) {
	h.hub.Publish(h.deviceID, UnhighlightEvent{Index: el.Index, Path: el.Path})
}
