// ABOUTME: Sequential read-aloud controller speaking one element at a time with highlighting
// ABOUTME: A single loop goroutine owns session state; stale engine callbacks are dropped by generation

package readaloud

import (
	"context"
	"sync"
	"sync/atomic"

	"cropguard-api/core/domain"
	"cropguard-api/core/interfaces"
)

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdState
)

type command struct {
	kind     commandKind
	elements []ReadableElement
	locale   string
	reply    chan interface{}
}

type completion struct {
	generation uint64
	index      int
	err        error
}

// session is the live read; only the loop goroutine touches it
type session struct {
	generation uint64
	elements   []ReadableElement
	index      int
	locale     string
	marked     *ReadableElement
}

// Controller reads pages aloud through a SpeechEngine.
// All methods are safe for concurrent use.
type Controller struct {
	engine      SpeechEngine
	highlighter Highlighter
	logger      interfaces.Logger

	cmds chan command
	quit chan struct{}
	done chan struct{}
	once sync.Once

	// completions are queued under inboxMu and the loop is woken without blocking
	inboxMu sync.Mutex
	inbox   []completion
	wake    chan struct{}

	speaking atomic.Bool

	watchMu  sync.Mutex
	watchers map[int]chan bool
	nextID   int

	// loop owned
	generation uint64
	live       *session
}

// NewController starts a controller. Close releases it.
func NewController(engine SpeechEngine, highlighter Highlighter, logger interfaces.Logger) *Controller {
	c := &Controller{
		engine:      engine,
		highlighter: highlighter,
		logger:      logger,
		cmds:        make(chan command),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		wake:        make(chan struct{}, 1),
		watchers:    make(map[int]chan bool),
	}
	go c.run()
	return c
}

// ReadPage stops any active session, selects readable content and starts
// speaking it from the first element. It returns once the first utterance
// is issued and reports whether a session started. An unavailable engine,
// a failing selector or an empty selection leave the controller idle.
func (c *Controller) ReadPage(ctx context.Context, selector ContentSelector, lang string) bool {
	c.Stop()

	if !c.engine.Available() {
		c.logger.Debug("Read aloud skipped, speech engine unavailable", nil)
		return false
	}

	elements, err := selector.Readable(ctx)
	if err != nil {
		c.logger.Debug("Read aloud selection failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	if len(elements) == 0 {
		return false
	}

	started, _ := c.send(command{kind: cmdStart, elements: elements, locale: domain.LocaleFor(lang)}).(bool)
	return started
}

// Stop cancels the active session. Calling it while idle does nothing.
func (c *Controller) Stop() {
	c.send(command{kind: cmdStop})
}

// Toggle stops a speaking controller, otherwise reads the page.
// It reports whether the controller is speaking afterwards.
func (c *Controller) Toggle(ctx context.Context, selector ContentSelector, lang string) bool {
	if c.IsSpeaking() {
		c.Stop()
		return false
	}
	return c.ReadPage(ctx, selector, lang)
}

// IsSpeaking reports whether a session is active
func (c *Controller) IsSpeaking() bool {
	return c.speaking.Load()
}

// State returns a snapshot of the controller
func (c *Controller) State() State {
	st, _ := c.send(command{kind: cmdState}).(State)
	return st
}

// Watch streams speaking changes, starting with the current value.
// Slow readers only see the latest value. Call cancel to stop watching.
func (c *Controller) Watch() (<-chan bool, func()) {
	ch := make(chan bool, 1)

	c.watchMu.Lock()
	id := c.nextID
	c.nextID++
	c.watchers[id] = ch
	ch <- c.speaking.Load()
	c.watchMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.watchMu.Lock()
			delete(c.watchers, id)
			c.watchMu.Unlock()
		})
	}
}

// Close stops any session and shuts the loop down
func (c *Controller) Close() {
	c.once.Do(func() { close(c.quit) })
	<-c.done
}

func (c *Controller) send(cmd command) interface{} {
	cmd.reply = make(chan interface{}, 1)
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return nil
	}
	select {
	case v := <-cmd.reply:
		return v
	case <-c.done:
		return nil
	}
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case cmd := <-c.cmds:
			c.handle(cmd)
		case <-c.wake:
			for _, ev := range c.drain() {
				c.complete(ev)
			}
		case <-c.quit:
			c.end(true)
			return
		}
	}
}

func (c *Controller) handle(cmd command) {
	switch cmd.kind {
	case cmdStart:
		cmd.reply <- c.start(cmd.elements, cmd.locale)
	case cmdStop:
		c.end(true)
		cmd.reply <- nil
	case cmdState:
		cmd.reply <- c.snapshot()
	}
}

func (c *Controller) start(elements []ReadableElement, locale string) bool {
	c.end(true)
	if len(elements) == 0 || !c.engine.Available() {
		return false
	}

	c.generation++
	c.live = &session{
		generation: c.generation,
		elements:   elements,
		locale:     locale,
	}
	c.setSpeaking(true)
	c.logger.Debug("Read aloud started", map[string]interface{}{
		"generation": c.generation,
		"elements":   len(elements),
		"locale":     locale,
	})
	c.speak()
	return true
}

// speak highlights and issues the utterance for the live index
func (c *Controller) speak() {
	s := c.live
	el := s.elements[s.index]

	if s.marked != nil {
		c.highlighter.Unmark(*s.marked)
	}
	c.highlighter.Mark(el)
	s.marked = &el

	gen, idx := s.generation, s.index
	c.engine.Speak(UtteranceRequest{
		Generation: gen,
		Index:      idx,
		Text:       el.Text,
		Locale:     s.locale,
	}, func(err error) {
		c.post(completion{generation: gen, index: idx, err: err})
	})
}

func (c *Controller) post(ev completion) {
	c.inboxMu.Lock()
	c.inbox = append(c.inbox, ev)
	c.inboxMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) drain() []completion {
	c.inboxMu.Lock()
	defer c.inboxMu.Unlock()
	evs := c.inbox
	c.inbox = nil
	return evs
}

func (c *Controller) complete(ev completion) {
	s := c.live
	if s == nil || ev.generation != s.generation || ev.index != s.index {
		c.logger.Debug("Discarding stale utterance completion", map[string]interface{}{
			"generation": ev.generation,
			"index":      ev.index,
		})
		return
	}

	if ev.err != nil {
		c.logger.Debug("Utterance failed, ending read aloud", map[string]interface{}{
			"generation": ev.generation,
			"index":      ev.index,
			"error":      ev.err.Error(),
		})
		c.end(false)
		return
	}

	s.index++
	if s.index >= len(s.elements) {
		c.end(false)
		return
	}
	c.speak()
}

// end clears the live session. cancel also stops the engine's in-flight utterance.
func (c *Controller) end(cancel bool) {
	s := c.live
	if s == nil {
		return
	}
	c.live = nil

	if cancel {
		c.engine.Cancel()
	}
	if s.marked != nil {
		c.highlighter.Unmark(*s.marked)
	}
	c.setSpeaking(false)
}

func (c *Controller) snapshot() State {
	st := State{Generation: c.generation}
	if s := c.live; s != nil {
		el := s.elements[s.index]
		st.Speaking = true
		st.Index = s.index
		st.Total = len(s.elements)
		st.Locale = s.locale
		st.Current = &el
	}
	return st
}

func (c *Controller) setSpeaking(v bool) {
	if c.speaking.Swap(v) == v {
		return
	}

	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	for _, ch := range c.watchers {
		// keep only the latest value for slow watchers
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
