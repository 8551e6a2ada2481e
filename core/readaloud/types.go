// ABOUTME: Read-aloud contracts: readable elements, speech engines, highlighters and selectors
// ABOUTME: Engines and highlighters live outside the package so the sequencer stays platform neutral

package readaloud

import "context"

// ReadableElement is one piece of page text in traversal order.
// Path is a CSS selector the client can resolve to the element.
type ReadableElement struct {
	Index int    `json:"index"`
	Tag   string `json:"tag"`
	Path  string `json:"path"`
	Text  string `json:"text"`
}

// UtteranceRequest asks the engine to speak one element
type UtteranceRequest struct {
	Generation uint64 `json:"generation"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Locale     string `json:"locale"`
}

// SpeechEngine speaks one utterance at a time.
//
// Speak must not block on playback; done is invoked exactly once, from any
// goroutine, when the utterance finishes (nil) or fails. After Cancel the
// engine may still invoke done for the cancelled utterance.
type SpeechEngine interface {
	Available() bool
	Speak(req UtteranceRequest, done func(err error))
	Cancel()
}

// Highlighter marks the element being spoken and scrolls it into view
type Highlighter interface {
	Mark(el ReadableElement)
	Unmark(el ReadableElement)
}

// ContentSelector lists the readable items of the current view
type ContentSelector interface {
	Readable(ctx context.Context) ([]ReadableElement, error)
}

// SelectorFunc adapts a function to ContentSelector
type SelectorFunc func(ctx context.Context) ([]ReadableElement, error)

// Readable calls f
func (f SelectorFunc) Readable(ctx context.Context) ([]ReadableElement, error) {
	return f(ctx)
}

// State is a snapshot of a controller
type State struct {
	Speaking   bool             `json:"speaking"`
	Generation uint64           `json:"generation"`
	Index      int              `json:"index"`
	Total      int              `json:"total"`
	Locale     string           `json:"locale,omitempty"`
	Current    *ReadableElement `json:"current,omitempty"`
}
