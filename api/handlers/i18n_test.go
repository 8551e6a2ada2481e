package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard-api/core/domain"
	"cropguard-api/core/i18n"
	"cropguard-api/core/interfaces/mocks"
)

const testTranslations = `{
  "nav.home": {"en": "Home", "hi": "होम"},
  "alerts.none": {"en": "No alerts nearby"}
}`

func newI18nAPI(t *testing.T) humatest.TestAPI {
	t.Helper()
	// No API key, so missing translations fall back to English without fetching
	svc, err := i18n.Load(i18n.Config{}, mocks.Deps(nil, mocks.NewCache()), []byte(testTranslations))
	require.NoError(t, err)

	_, api := humatest.New(t)
	NewI18nHandler(svc).RegisterRoutes(api)
	return api
}

func TestI18nHandler_ListLanguages(t *testing.T) {
	api := newI18nAPI(t)

	resp := api.Get("/languages")
	require.Equal(t, http.StatusOK, resp.Code)

	var out struct {
		Languages []i18n.LanguageInfo `json:"languages"`
		Default   domain.Language     `json:"default"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, domain.English, out.Default)
	require.Len(t, out.Languages, len(domain.Languages()))
	assert.Equal(t, i18n.LanguageInfo{Code: domain.Hindi, Label: "हिन्दी", Locale: "hi-IN"}, out.Languages[1])
}

func TestI18nHandler_GetBundle(t *testing.T) {
	api := newI18nAPI(t)

	resp := api.Get("/translations/hi")
	require.Equal(t, http.StatusOK, resp.Code)

	var out struct {
		Language     domain.Language   `json:"language"`
		Translations map[string]string `json:"translations"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, domain.Hindi, out.Language)
	assert.Equal(t, map[string]string{
		"nav.home":    "होम",
		"alerts.none": "No alerts nearby",
	}, out.Translations)

	assert.Equal(t, http.StatusBadRequest, api.Get("/translations/fr").Code)
}

func TestI18nHandler_GetText(t *testing.T) {
	api := newI18nAPI(t)

	resp := api.Get("/translations/HI/nav.home")
	require.Equal(t, http.StatusOK, resp.Code)
	var out struct {
		Language domain.Language `json:"language"`
		Key      string          `json:"key"`
		Text     string          `json:"text"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, domain.Hindi, out.Language)
	assert.Equal(t, "होम", out.Text)

	assert.Equal(t, http.StatusNotFound, api.Get("/translations/hi/nav.unknown").Code)
}
