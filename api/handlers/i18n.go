// ABOUTME: Localization handlers serving languages and translated UI text
// ABOUTME: Missing translations come back in English while a fetch runs in the background

package handlers

import (
	"context"
	"net/http"

	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
	"cropguard-api/core/i18n"
	"cropguard-api/core/interfaces"
	"github.com/danielgtaylor/huma/v2"
)

// KeyedTranslator is a Translator that knows its keys
type KeyedTranslator interface {
	interfaces.Translator
	Has(key string) bool
}

// I18nHandler serves UI text
type I18nHandler struct {
	translator KeyedTranslator
}

// NewI18nHandler creates a localization handler
func NewI18nHandler(translator KeyedTranslator) *I18nHandler {
	return &I18nHandler{translator: translator}
}

// RegisterRoutes registers the localization routes
func (h *I18nHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listLanguages",
		Method:      http.MethodGet,
		Path:        "/languages",
		Summary:     "Supported languages",
		Tags:        []string{"Localization"},
	}, h.ListLanguages)

	huma.Register(api, huma.Operation{
		OperationID: "getTranslations",
		Method:      http.MethodGet,
		Path:        "/translations/{lang}",
		Summary:     "All UI text for a language",
		Tags:        []string{"Localization"},
	}, h.GetBundle)

	huma.Register(api, huma.Operation{
		OperationID: "getTranslation",
		Method:      http.MethodGet,
		Path:        "/translations/{lang}/{key}",
		Summary:     "One UI text for a language",
		Tags:        []string{"Localization"},
	}, h.GetText)
}

// LanguagesOutput wraps the language list
type LanguagesOutput struct {
	Body struct {
		Languages []i18n.LanguageInfo `json:"languages"`
		Default   domain.Language     `json:"default"`
	}
}

// ListLanguages handles GET /languages
func (h *I18nHandler) ListLanguages(ctx context.Context, input *struct{}) (*LanguagesOutput, error) {
	out := &LanguagesOutput{}
	out.Body.Languages = i18n.Languages()
	out.Body.Default = domain.DefaultLanguage
	return out, nil
}

// LangInput names a language in the path
type LangInput struct {
	Lang string `path:"lang" doc:"Language code"`
}

func parseLang(code string) (domain.Language, error) {
	lang, ok := domain.ParseLanguage(code)
	if !ok {
		return "", &errors.ValidationError{Field: "lang", Message: "unsupported language " + code}
	}
	return lang, nil
}

// BundleOutput wraps every UI text of a language
type BundleOutput struct {
	Body struct {
		Language     domain.Language   `json:"language"`
		Translations map[string]string `json:"translations"`
	}
}

// GetBundle handles GET /translations/{lang}
func (h *I18nHandler) GetBundle(ctx context.Context, input *LangInput) (*BundleOutput, error) {
	lang, err := parseLang(input.Lang)
	if err != nil {
		return nil, toHumaError(err)
	}
	out := &BundleOutput{}
	out.Body.Language = lang
	out.Body.Translations = h.translator.Bundle(ctx, lang)
	return out, nil
}

// TextInput names a key of a language
type TextInput struct {
	LangInput
	Key string `path:"key" doc:"Translation key such as home.title"`
}

// TextOutput wraps one UI text
type TextOutput struct {
	Body struct {
		Language domain.Language `json:"language"`
		Key      string          `json:"key"`
		Text     string          `json:"text"`
	}
}

// GetText handles GET /translations/{lang}/{key}
func (h *I18nHandler) GetText(ctx context.Context, input *TextInput) (*TextOutput, error) {
	lang, err := parseLang(input.Lang)
	if err != nil {
		return nil, toHumaError(err)
	}
	if !h.translator.Has(input.Key) {
		return nil, toHumaError(&errors.NotFoundError{Resource: "translation key", ID: input.Key})
	}
	out := &TextOutput{}
	out.Body.Language = lang
	out.Body.Key = input.Key
	out.Body.Text = h.translator.T(ctx, input.Key, lang)
	return out, nil
}
