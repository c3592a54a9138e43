// Package localization provides functionality for internationalization (i18n).
// It loads translation strings from JSON files and provides a simple way to get
// localized strings for different languages.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

//go:embed locales/*.json
var bundled embed.FS

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	fallback     string
	mu           sync.RWMutex
}

// NewDefault returns a Localizer over the catalogues shipped with the binary.
func NewDefault(fallback string) (*Localizer, error) {
	return NewLocalizer(bundled, "locales", fallback)
}

// NewLocalizer creates and returns a new Localizer instance.
// It loads all translations from dir inside fsys. The directory should
// contain JSON files named with the language code (e.g., "en.json").
func NewLocalizer(fsys fs.FS, dir, fallback string) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
		fallback:     fallback,
	}

	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := fs.ReadFile(fsys, path.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[lang] = translations
	}

	if _, ok := l.translations[fallback]; !ok {
		return nil, fmt.Errorf("no translations for fallback language %q", fallback)
	}
	return l, nil
}

// normalize maps client tags such as "en-US" onto the catalogue name.
func normalize(lang string) string {
	lang = strings.ToLower(lang)
	if base, _, ok := strings.Cut(lang, "-"); ok {
		return base
	}
	return lang
}

// GetString returns the localized string for a given key and language.
// Missing languages or keys fall back to the fallback language, then to
// the key itself.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if langTranslations, ok := l.translations[normalize(lang)]; ok {
		if value, ok := langTranslations[key]; ok {
			return value
		}
	}

	if fallbackTranslations, ok := l.translations[l.fallback]; ok {
		if value, ok := fallbackTranslations[key]; ok {
			return value
		}
	}

	return key
}

// Language returns lang when a catalogue exists for it, else the fallback.
func (l *Localizer) Language(lang string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.translations[normalize(lang)]; ok {
		return normalize(lang)
	}
	return l.fallback
}

// MatchKey finds which of keys has text as its value in any language.
// Labels are recognized regardless of the sender's language setting.
func (l *Localizer) MatchKey(text string, keys ...string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	langs := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, key := range keys {
		for _, lang := range langs {
			if v, ok := l.translations[lang][key]; ok && v == text {
				return key, true
			}
		}
	}
	return "", false
}
