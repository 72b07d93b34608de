// Package translate turns non-English search terms into English before
// they are sent to the literature database.
package translate

import (
	"context"
	"errors"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-ranking-service/internal/observability"
)

// Markers prefixed to the input when translation fails.
const (
	FailedPrefix = "[翻译失败] "
	ErrorPrefix  = "[错误] "
)

// DefaultCacheSize bounds the number of cached translations.
const DefaultCacheSize = 1024

// Translator translates text into targetLang.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// ContainsChinese reports whether s has at least one Han character.
func ContainsChinese(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// Service translates Chinese terms through a backend and caches results.
// Text without Chinese characters is returned trimmed and untranslated.
type Service struct {
	backend    Translator
	targetLang string
	cache      *lru.Cache[string, string]
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// NewService creates a Service. A nil backend disables translation: Chinese
// text is passed through unchanged.
func NewService(backend Translator, targetLang string, cacheSize int, logger zerolog.Logger, metrics *observability.Metrics) (*Service, error) {
	if targetLang == "" {
		targetLang = "en"
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{
		backend:    backend,
		targetLang: targetLang,
		cache:      cache,
		logger:     logger.With().Str("component", "translate").Logger(),
		metrics:    metrics,
	}, nil
}

// ToTarget returns text in the target language. It never fails: provider
// errors produce the input prefixed with FailedPrefix, transport errors with
// ErrorPrefix. Blank input is returned as is.
func (s *Service) ToTarget(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	text = strings.TrimSpace(text)

	if !ContainsChinese(text) {
		s.record("skipped")
		return text
	}
	if s.backend == nil {
		s.logger.Warn().Str("text", text).Msg("translation backend not configured, using original text")
		s.record("unconfigured")
		return text
	}
	if cached, ok := s.cache.Get(text); ok {
		s.record("cache_hit")
		return cached
	}

	translated, err := s.backend.Translate(ctx, text, s.targetLang)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			s.logger.Error().Err(err).Str("text", text).Msg("translation rejected")
			s.record("failed")
			return FailedPrefix + text
		}
		s.logger.Error().Err(err).Str("text", text).Msg("translation request error")
		s.record("error")
		return ErrorPrefix + text
	}

	s.cache.Add(text, translated)
	s.record("translated")
	s.logger.Info().Str("text", text).Str("translated", translated).Msg("translated")
	return translated
}

func (s *Service) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordTranslation(result)
	}
}
