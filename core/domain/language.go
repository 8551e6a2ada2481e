// ABOUTME: Language domain model for the closed set of supported UI languages
// ABOUTME: Maps language codes to speech locales with an English fallback

package domain

import "strings"

// Language is a supported UI language code
type Language string

// Supported languages
const (
	English Language = "en"
	Hindi   Language = "hi"
	Bengali Language = "bn"
	Telugu  Language = "te"
	Marathi Language = "mr"
	Tamil   Language = "ta"
)

// DefaultLanguage is used when a device has not picked a language
const DefaultLanguage = English

// DefaultLocale is the speech locale used for any unmapped language code
const DefaultLocale = "en-US"

var languageLocales = map[Language]string{
	English: "en-US",
	Hindi:   "hi-IN",
	Bengali: "bn-IN",
	Telugu:  "te-IN",
	Marathi: "mr-IN",
	Tamil:   "ta-IN",
}

var languageLabels = map[Language]string{
	English: "English",
	Hindi:   "हिन्दी",
	Bengali: "বাংলা",
	Telugu:  "తెలుగు",
	Marathi: "मराठी",
	Tamil:   "தமிழ்",
}

// Languages returns the supported languages in display order
func Languages() []Language {
	return []Language{English, Hindi, Bengali, Telugu, Marathi, Tamil}
}

// ParseLanguage normalizes a language code and reports whether it is supported
func ParseLanguage(code string) (Language, bool) {
	lang := Language(strings.ToLower(strings.TrimSpace(code)))
	_, ok := languageLocales[lang]
	return lang, ok
}

// Locale returns the BCP 47 speech locale for the language
func (l Language) Locale() string {
	if locale, ok := languageLocales[l]; ok {
		return locale
	}
	return DefaultLocale
}

// Label returns the native display name of the language
func (l Language) Label() string {
	if label, ok := languageLabels[l]; ok {
		return label
	}
	return string(l)
}

// LocaleFor maps any language code to a speech locale, falling back to DefaultLocale
func LocaleFor(code string) string {
	lang, _ := ParseLanguage(code)
	return lang.Locale()
}
