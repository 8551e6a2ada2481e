// ABOUTME: Translation service serving embedded UI strings in the supported languages
// ABOUTME: Missing strings fall back to English while Google Translate fills them in the background

package i18n

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces"
	"cropguard-api/pkg/featureflags"
)

//go:embed data/translations.json
var baseTranslations []byte

const (
	fetchTimeout = 10 * time.Second
	// failed fetches are not retried for this long
	retryAfter = 5 * time.Minute
)

// Config configures machine translation
type Config struct {
	APIKey   string
	Endpoint string
	CacheTTL time.Duration
}

// LanguageInfo describes one selectable language
type LanguageInfo struct {
	Code   domain.Language `json:"code"`
	Label  string          `json:"label"`
	Locale string          `json:"locale"`
}

// Service implements interfaces.Translator
type Service struct {
	cfg  Config
	deps interfaces.Dependencies
	base map[string]map[domain.Language]string
	keys []string

	mu      sync.RWMutex
	fetched map[string]string
	failed  map[string]time.Time
	now     func() time.Time

	group   singleflight.Group
	pending sync.WaitGroup
}

// NewService loads the embedded translations
func NewService(cfg Config, deps interfaces.Dependencies) (*Service, error) {
	return Load(cfg, deps, baseTranslations)
}

// Load builds a service from a JSON document of key -> language -> text
func Load(cfg Config, deps interfaces.Dependencies, data []byte) (*Service, error) {
	var base map[string]map[domain.Language]string
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("failed to parse translations: %w", err)
	}

	keys := make([]string, 0, len(base))
	for k, texts := range base {
		if texts[domain.English] == "" {
			return nil, fmt.Errorf("translation %q has no english text", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return &Service{
		cfg:     cfg,
		deps:    deps,
		base:    base,
		keys:    keys,
		fetched: make(map[string]string),
		failed:  make(map[string]time.Time),
		now:     time.Now,
	}, nil
}

// Languages lists the selectable languages in display order
func Languages() []LanguageInfo {
	langs := domain.Languages()
	out := make([]LanguageInfo, 0, len(langs))
	for _, l := range langs {
		out = append(out, LanguageInfo{Code: l, Label: l.Label(), Locale: l.Locale()})
	}
	return out
}

// Keys returns every known translation key, sorted
func (s *Service) Keys() []string {
	return s.keys
}

// Has reports whether key is a known translation key
func (s *Service) Has(key string) bool {
	_, ok := s.base[key]
	return ok
}

// T resolves key for lang. Unknown keys resolve to themselves.
func (s *Service) T(ctx context.Context, key string, lang domain.Language) string {
	texts, ok := s.base[key]
	if !ok {
		return key
	}
	if v := texts[lang]; v != "" {
		return v
	}

	english := texts[domain.English]
	if lang == domain.English {
		return english
	}
	if _, supported := domain.ParseLanguage(string(lang)); !supported {
		return english
	}

	if v, ok := s.lookup(ctx, key, lang); ok {
		return v
	}

	if s.canFetch(ctx) && !s.recentlyFailed(key, lang) {
		s.fetchAsync(key, lang, english)
	}
	return english
}

// Bundle resolves every key for lang
func (s *Service) Bundle(ctx context.Context, lang domain.Language) map[string]string {
	out := make(map[string]string, len(s.keys))
	for _, k := range s.keys {
		out[k] = s.T(ctx, k, lang)
	}
	return out
}

// Wait blocks until background translation fetches finish
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) canFetch(ctx context.Context) bool {
	return s.cfg.APIKey != "" && s.deps.HTTPClient != nil && s.deps.Enabled(ctx, featureflags.AutoTranslate)
}

func cacheKey(key string, lang domain.Language) string {
	return "i18n:" + string(lang) + ":" + key
}

func (s *Service) recentlyFailed(key string, lang domain.Language) bool {
	s.mu.RLock()
	at, ok := s.failed[cacheKey(key, lang)]
	s.mu.RUnlock()
	return ok && s.now().Sub(at) < retryAfter
}

func (s *Service) lookup(ctx context.Context, key string, lang domain.Language) (string, bool) {
	ck := cacheKey(key, lang)

	s.mu.RLock()
	v, ok := s.fetched[ck]
	s.mu.RUnlock()
	if ok {
		return v, true
	}

	if s.deps.Cache == nil {
		return "", false
	}
	data, err := s.deps.Cache.Get(ctx, ck)
	if err != nil || len(data) == 0 {
		return "", false
	}

	s.mu.Lock()
	s.fetched[ck] = string(data)
	s.mu.Unlock()
	return string(data), true
}

// fetchAsync starts at most one background translation per key and language
func (s *Service) fetchAsync(key string, lang domain.Language, english string) {
	ck := cacheKey(key, lang)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		_, _, _ = s.group.Do(ck, func() (interface{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()

			// a caller that lost the race may arrive after the value landed
			if v, ok := s.lookup(ctx, key, lang); ok {
				return v, nil
			}

			translated, err := s.translate(ctx, english, lang)
			if err != nil {
				s.deps.Logger.Debug("Translation fetch failed", map[string]interface{}{
					"key":   key,
					"lang":  string(lang),
					"error": err.Error(),
				})
				s.mu.Lock()
				s.failed[ck] = s.now()
				s.mu.Unlock()
				return nil, err
			}

			s.mu.Lock()
			s.fetched[ck] = translated
			delete(s.failed, ck)
			s.mu.Unlock()
			if s.deps.Cache != nil {
				_ = s.deps.Cache.Set(ctx, ck, []byte(translated), s.cfg.CacheTTL)
			}
			return translated, nil
		})
	}()
}

type translateRequest struct {
	Q      string `json:"q"`
	Target string `json:"target"`
	Source string `json:"source"`
	Format string `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (s *Service) translate(ctx context.Context, text string, target domain.Language) (string, error) {
	body, err := json.Marshal(translateRequest{Q: text, Target: string(target), Source: "en", Format: "text"})
	if err != nil {
		return "", err
	}

	endpoint := s.cfg.Endpoint + "?key=" + url.QueryEscape(s.cfg.APIKey)
	resp, err := s.deps.HTTPClient.Post(ctx, endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", withoutQuery(err)
	}
	defer resp.Body().Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", &errors.ExternalAPIError{API: "google translate", StatusCode: resp.StatusCode(), Message: "translate request failed"}
	}

	raw, err := io.ReadAll(resp.Body())
	if err != nil {
		return "", err
	}
	var parsed translateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode translate response: %w", err)
	}
	if len(parsed.Data.Translations) == 0 || parsed.Data.Translations[0].TranslatedText == "" {
		return "", fmt.Errorf("translate response carried no text")
	}
	return parsed.Data.Translations[0].TranslatedText, nil
}

// withoutQuery drops the query from transport errors, which echo the
// request URL and with it the API key
func withoutQuery(err error) error {
	var urlErr *url.Error
	if !stderrors.As(err, &urlErr) {
		return err
	}
	redacted := "(redacted)"
	if u, perr := url.Parse(urlErr.URL); perr == nil {
		u.RawQuery = ""
		redacted = u.String()
	}
	return &url.Error{Op: urlErr.Op, URL: redacted, Err: urlErr.Err}
}
