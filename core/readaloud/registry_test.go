package readaloud

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard-api/core/interfaces/mocks"
)

type observed struct {
	mu     sync.Mutex
	events []bool
}

func (o *observed) observe(deviceID string, speaking bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, speaking)
}

func (o *observed) snapshot() []bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]bool(nil), o.events...)
}

func TestRegistry_GetCreatesOncePerDevice(t *testing.T) {
	created := 0
	r := NewRegistry(func(deviceID string) (SpeechEngine, Highlighter) {
		created++
		return &fakeEngine{}, newHighlighter()
	}, nil, &mocks.Logger{}, 0)
	defer r.Close()

	a := r.Get("device-a")
	assert.Same(t, a, r.Get("device-a"))
	assert.NotSame(t, a, r.Get("device-b"))
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, r.Len())

	_, ok := r.Peek("device-c")
	assert.False(t, ok)

	r.Remove("device-a")
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ForwardsSpeakingChanges(t *testing.T) {
	obs := &observed{}
	engine := &fakeEngine{}
	r := NewRegistry(func(string) (SpeechEngine, Highlighter) {
		return engine, newHighlighter()
	}, obs.observe, &mocks.Logger{}, 0)
	defer r.Close()

	c := r.Get("device-a")
	require.Eventually(t, func() bool { return len(obs.snapshot()) == 1 }, waitFor, tick)
	require.True(t, c.ReadPage(context.Background(), static("Alerts"), "en"))
	require.Eventually(t, func() bool { return len(obs.snapshot()) == 2 }, waitFor, tick)

	c.Stop()
	require.Eventually(t, func() bool { return len(obs.snapshot()) == 3 }, waitFor, tick)
	assert.Equal(t, []bool{false, true, false}, obs.snapshot())
}

func TestRegistry_SweepClosesIdleControllers(t *testing.T) {
	engine := &fakeEngine{}
	r := NewRegistry(func(string) (SpeechEngine, Highlighter) {
		return engine, newHighlighter()
	}, nil, &mocks.Logger{}, 0)
	defer r.Close()
	r.idle = time.Minute

	now := time.Now()
	r.now = func() time.Time { return now }

	stale := r.Get("device-a")
	require.True(t, stale.ReadPage(context.Background(), static("Scan history"), "en"))

	now = now.Add(45 * time.Second)
	r.Get("device-b")
	assert.False(t, r.Touch("device-c"))

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, r.sweep())
	assert.Equal(t, 1, r.Len())

	// Touching keeps an entry alive past the timeout
	now = now.Add(50 * time.Second)
	assert.True(t, r.Touch("device-b"))
	now = now.Add(30 * time.Second)
	assert.Zero(t, r.sweep())
	assert.False(t, stale.IsSpeaking())

	_, ok := r.Peek("device-b")
	assert.True(t, ok)
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(func(string) (SpeechEngine, Highlighter) {
		return &fakeEngine{}, newHighlighter()
	}, nil, &mocks.Logger{}, time.Minute)

	c := r.Get("device-a")
	r.Close()
	r.Close()

	assert.Nil(t, r.Get("device-a"))
	assert.Zero(t, r.Len())
	assert.False(t, c.ReadPage(context.Background(), static("Home page"), "en"))
}
