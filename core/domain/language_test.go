package domain

import "testing"

func TestLocaleFor(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"en", "en-US"},
		{"hi", "hi-IN"},
		{"bn", "bn-IN"},
		{"te", "te-IN"},
		{"mr", "mr-IN"},
		{"ta", "ta-IN"},
		{" HI ", "hi-IN"},
		{"fr", DefaultLocale},
		{"", DefaultLocale},
		{"zz-ZZ", DefaultLocale},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := LocaleFor(tt.code); got != tt.expected {
				t.Errorf("LocaleFor(%q) = %q, want %q", tt.code, got, tt.expected)
			}
		})
	}
}

func TestParseLanguage(t *testing.T) {
	if lang, ok := ParseLanguage("Ta"); !ok || lang != Tamil {
		t.Errorf("ParseLanguage(Ta) = %q, %v", lang, ok)
	}
	if _, ok := ParseLanguage("de"); ok {
		t.Error("ParseLanguage(de) should not be supported")
	}
}

func TestLanguages_AllHaveLocaleAndLabel(t *testing.T) {
	langs := Languages()
	if len(langs) != 6 {
		t.Fatalf("Languages() returned %d entries, want 6", len(langs))
	}
	for _, l := range langs {
		if l.Locale() == "" || l.Label() == string(l) {
			t.Errorf("language %q missing locale or label", l)
		}
	}
	if Language("xx").Label() != "xx" {
		t.Error("unknown language label should echo the code")
	}
}
