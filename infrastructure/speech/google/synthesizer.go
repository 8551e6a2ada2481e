// ABOUTME: Google Cloud text-to-speech synthesizer producing OGG/Opus audio per locale
// ABOUTME: Splits long text on word boundaries and caches the joined audio by content hash

package google

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces"
)

// maxChunkChars is the longest text sent in one synthesis request
const maxChunkChars = 1000

// ContentType is the MIME type of synthesized audio
const ContentType = "audio/ogg"

// Client is the subset of the text-to-speech API the synthesizer needs
type Client interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

type cloudClient struct {
	c *texttospeech.Client
}

func (c cloudClient) SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	return c.c.SynthesizeSpeech(ctx, req)
}

func (c cloudClient) Close() error {
	return c.c.Close()
}

// Config configures the synthesizer
type Config struct {
	// CacheTTL is how long joined audio is cached
	CacheTTL time.Duration

	// Voices optionally pins a voice name per locale
	Voices map[string]string
}

// DefaultVoices are the voices used when none are configured
var DefaultVoices = map[string]string{
	"en-US": "en-US-Neural2-J",
	"hi-IN": "hi-IN-Neural2-A",
}

// Synthesizer implements interfaces.SpeechSynthesizer
type Synthesizer struct {
	client Client
	cfg    Config
	deps   interfaces.Dependencies
}

// New dials Google Cloud text-to-speech using application default credentials
func New(ctx context.Context, cfg Config, deps interfaces.Dependencies) (*Synthesizer, error) {
	c, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	return NewWithClient(cloudClient{c: c}, cfg, deps), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client Client, cfg Config, deps interfaces.Dependencies) *Synthesizer {
	if cfg.Voices == nil {
		cfg.Voices = DefaultVoices
	}
	return &Synthesizer{client: client, cfg: cfg, deps: deps}
}

// Close releases the underlying client
func (s *Synthesizer) Close() error {
	return s.client.Close()
}

// Synthesize renders text in locale to OGG/Opus audio.
// Unmapped locales are spoken with the default locale.
func (s *Synthesizer) Synthesize(ctx context.Context, text, locale string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &errors.ValidationError{Field: "text", Message: "text cannot be empty"}
	}
	if locale == "" {
		locale = domain.DefaultLocale
	}

	key := cacheKey(locale, text)
	if s.deps.Cache != nil {
		if audio, err := s.deps.Cache.Get(ctx, key); err == nil {
			return audio, nil
		}
	}

	var audio bytes.Buffer
	for _, chunk := range SplitText(text, maxChunkChars) {
		resp, err := s.client.SynthesizeSpeech(ctx, s.request(chunk, locale))
		if err != nil {
			return nil, &errors.ExternalAPIError{API: "google text-to-speech", Message: err.Error()}
		}
		audio.Write(resp.AudioContent)
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, key, audio.Bytes(), s.cfg.CacheTTL); err != nil {
			s.deps.Logger.Warn("Failed to cache synthesized audio", map[string]interface{}{
				"locale": locale,
				"error":  err.Error(),
			})
		}
	}

	s.deps.Logger.Debug("Speech synthesized", map[string]interface{}{
		"locale": locale,
		"chars":  utf8.RuneCountInString(text),
		"bytes":  audio.Len(),
	})
	return audio.Bytes(), nil
}

func (s *Synthesizer) request(chunk, locale string) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: locale,
			Name:         s.cfg.Voices[locale],
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_OGG_OPUS,
		},
	}
}

func cacheKey(locale, text string) string {
	sum := sha256.Sum256([]byte(locale + "\x00" + text))
	return "speech:" + hex.EncodeToString(sum[:])
}

// SplitText breaks text into chunks of at most maxChars characters on word
// boundaries. A single word longer than maxChars becomes its own chunk.
func SplitText(text string, maxChars int) []string {
	var chunks []string
	var chunk strings.Builder
	size := 0

	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)
		if size > 0 && size+1+n > maxChars {
			chunks = append(chunks, chunk.String())
			chunk.Reset()
			size = 0
		}
		if size > 0 {
			chunk.WriteByte(' ')
			size++
		}
		chunk.WriteString(word)
		size += n
	}
	if size > 0 {
		chunks = append(chunks, chunk.String())
	}
	return chunks
}
