package handlers

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard-api/core/errors"
)

type fakeSynth struct {
	text, locale string
	err          error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, locale string) ([]byte, error) {
	f.text, f.locale = text, locale
	if f.err != nil {
		return nil, f.err
	}
	return []byte("OggS"), nil
}

func TestSpeechHandler_Synthesize(t *testing.T) {
	synth := &fakeSynth{}
	_, api := humatest.New(t)
	NewSpeechHandler(synth).RegisterRoutes(api)

	resp := api.Get("/speech?text=" + url.QueryEscape("पत्ती पर धब्बे") + "&lang=hi")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, AudioContentType, resp.Header().Get("Content-Type"))
	assert.Equal(t, "OggS", resp.Body.String())
	assert.Equal(t, "पत्ती पर धब्बे", synth.text)
	assert.Equal(t, "hi-IN", synth.locale)

	// Locales pass through
	require.Equal(t, http.StatusOK, api.Get("/speech?text=Rust&lang=ta-in").Code)
	assert.Equal(t, "ta-IN", synth.locale)

	// Unmapped codes read in the default locale
	require.Equal(t, http.StatusOK, api.Get("/speech?text=Rust&lang=fr").Code)
	assert.Equal(t, "en-US", synth.locale)

	assert.Equal(t, http.StatusUnprocessableEntity, api.Get("/speech?lang=hi").Code)
}

func TestSpeechHandler_Errors(t *testing.T) {
	_, api := humatest.New(t)
	NewSpeechHandler(nil).RegisterRoutes(api)
	assert.Equal(t, http.StatusServiceUnavailable, api.Get("/speech?text=Home").Code)

	_, api = humatest.New(t)
	NewSpeechHandler(&fakeSynth{err: &errors.ExternalAPIError{API: "google text-to-speech", Message: "quota"}}).RegisterRoutes(api)
	assert.Equal(t, http.StatusServiceUnavailable, api.Get("/speech?text=Home").Code)
}

func TestSpeechLocale(t *testing.T) {
	tests := map[string]string{
		"":      "en-US",
		"en":    "en-US",
		"bn":    "bn-IN",
		" mr ":  "mr-IN",
		"hi-IN": "hi-IN",
		"xx":    "en-US",
		"en-gb": "en-GB",
	}
	for in, want := range tests {
		assert.Equal(t, want, SpeechLocale(in), in)
	}
}

func TestSpeechURL(t *testing.T) {
	build := SpeechURL("https://api.cropguard.example/")
	assert.Equal(t, "https://api.cropguard.example/speech?lang=hi-IN&text=Late+Blight", build("Late Blight", "hi-IN"))
}
