// ABOUTME: Function-field test doubles for the core interfaces
// ABOUTME: Shared by the service packages so each test sets only the behaviour it needs

package mocks

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"cropguard-api/core/domain"
	"cropguard-api/core/interfaces"
	"cropguard-api/pkg/featureflags"
)

// HTTPClient is a mock implementation of the HTTPClient interface
type HTTPClient struct {
	GetFunc  func(ctx context.Context, url string) (interfaces.Response, error)
	PostFunc func(ctx context.Context, url, contentType string, body io.Reader) (interfaces.Response, error)
}

func (m *HTTPClient) Get(ctx context.Context, url string) (interfaces.Response, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, url)
	}
	return &Response{Status: 404}, nil
}

func (m *HTTPClient) Post(ctx context.Context, url, contentType string, body io.Reader) (interfaces.Response, error) {
	if m.PostFunc != nil {
		return m.PostFunc(ctx, url, contentType, body)
	}
	return &Response{Status: 404}, nil
}

// Response is a mock implementation of the Response interface
type Response struct {
	Status  int
	Content string
	Headers map[string]string
}

func (m *Response) StatusCode() int {
	return m.Status
}

func (m *Response) Body() io.ReadCloser {
	return io.NopCloser(strings.NewReader(m.Content))
}

func (m *Response) Header(key string) string {
	if m.Headers != nil {
		return m.Headers[key]
	}
	return ""
}

// Cache is a map backed Cache that ignores TTLs
type Cache struct {
	mu    sync.Mutex
	Items map[string][]byte
	Sets  int
}

// NewCache creates an empty Cache
func NewCache() *Cache {
	return &Cache{Items: make(map[string][]byte)}
}

func (m *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Items[key]
	if !ok {
		return nil, interfaces.ErrCacheMiss
	}
	return v, nil
}

func (m *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items[key] = value
	m.Sets++
	return nil
}

func (m *Cache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Items, key)
	return nil
}

// Logger is a mock implementation of the Logger interface
type Logger struct {
	DebugFunc func(msg string, fields map[string]interface{})
	InfoFunc  func(msg string, fields map[string]interface{})
	WarnFunc  func(msg string, fields map[string]interface{})
	ErrorFunc func(msg string, fields map[string]interface{})
}

func (m *Logger) Debug(msg string, fields map[string]interface{}) {
	if m.DebugFunc != nil {
		m.DebugFunc(msg, fields)
	}
}

func (m *Logger) Info(msg string, fields map[string]interface{}) {
	if m.InfoFunc != nil {
		m.InfoFunc(msg, fields)
	}
}

func (m *Logger) Warn(msg string, fields map[string]interface{}) {
	if m.WarnFunc != nil {
		m.WarnFunc(msg, fields)
	}
}

func (m *Logger) Error(msg string, fields map[string]interface{}) {
	if m.ErrorFunc != nil {
		m.ErrorFunc(msg, fields)
	}
}

// InferenceClient is a mock implementation of the InferenceClient interface
type InferenceClient struct {
	PredictFunc func(ctx context.Context, image []byte) (*domain.Prediction, error)
}

func (m *InferenceClient) Predict(ctx context.Context, image []byte) (*domain.Prediction, error) {
	return m.PredictFunc(ctx, image)
}

// ColorExtractor is a mock implementation of the ColorExtractor interface
type ColorExtractor struct {
	ExtractFunc func(ctx context.Context, image []byte) (*domain.RGBColor, error)
}

func (m *ColorExtractor) ExtractColor(ctx context.Context, image []byte) (*domain.RGBColor, error) {
	return m.ExtractFunc(ctx, image)
}

// Deps returns Dependencies wired with the given doubles, a silent logger
// and the listed flags enabled
func Deps(http interfaces.HTTPClient, cache interfaces.Cache, enabled ...featureflags.FeatureFlag) interfaces.Dependencies {
	flags := featureflags.NewStaticManager(nil)
	for _, f := range enabled {
		flags.SetEnabled(f, true)
	}
	return interfaces.Dependencies{
		HTTPClient: http,
		Cache:      cache,
		Logger:     &Logger{},
		Flags:      flags,
	}
}
