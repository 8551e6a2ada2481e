// ABOUTME: Speech synthesis handler returning spoken audio for a piece of text
// ABOUTME: Devices without a local voice for a language play this audio instead

package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces"
	"github.com/danielgtaylor/huma/v2"
)

// AudioContentType is the MIME type of synthesized audio
const AudioContentType = "audio/ogg"

// SpeechHandler serves synthesized audio
type SpeechHandler struct {
	synth interfaces.SpeechSynthesizer
}

// NewSpeechHandler creates a speech handler. A nil synthesizer answers 503.
func NewSpeechHandler(synth interfaces.SpeechSynthesizer) *SpeechHandler {
	return &SpeechHandler{synth: synth}
}

// RegisterRoutes registers the speech route
func (h *SpeechHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "synthesizeSpeech",
		Method:      http.MethodGet,
		Path:        "/speech",
		Summary:     "Synthesize speech",
		Description: "Returns OGG/Opus audio of the text spoken in the language's locale",
		Tags:        []string{"Speech"},
	}, h.Synthesize)
}

// SpeechInput is the text to speak
type SpeechInput struct {
	Text string `query:"text" required:"true" minLength:"1" maxLength:"5000" doc:"Text to speak"`
	Lang string `query:"lang" default:"en" doc:"Language code (hi) or speech locale (hi-IN)"`
}

// AudioOutput is raw audio
type AudioOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

// Synthesize handles GET /speech
func (h *SpeechHandler) Synthesize(ctx context.Context, input *SpeechInput) (*AudioOutput, error) {
	if h.synth == nil {
		return nil, toHumaError(&errors.UnavailableError{Service: "speech synthesis", Reason: "disabled"})
	}

	audio, err := h.synth.Synthesize(ctx, input.Text, SpeechLocale(input.Lang))
	if err != nil {
		return nil, toHumaError(err)
	}
	return &AudioOutput{
		ContentType:  AudioContentType,
		CacheControl: "public, max-age=604800",
		Body:         audio,
	}, nil
}

// SpeechLocale accepts a language code or a locale. Codes go through the
// language table so unmapped codes read in the default locale.
func SpeechLocale(lang string) string {
	lang = strings.TrimSpace(lang)
	if code, region, ok := strings.Cut(lang, "-"); ok && len(code) == 2 && len(region) == 2 {
		return strings.ToLower(code) + "-" + strings.ToUpper(region)
	}
	return domain.LocaleFor(lang)
}

// SpeechURL builds links to the speech endpoint under baseURL
func SpeechURL(baseURL string) func(text, locale string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	return func(text, locale string) string {
		q := url.Values{}
		q.Set("text", text)
		q.Set("lang", locale)
		return baseURL + "/speech?" + q.Encode()
	}
}
