// Package localization provides the user-facing strings of the bot.
// Translations are JSON files embedded at build time, one per language code.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

//go:embed locales/*.json
var localeFS embed.FS

// Localizer holds one translation table per language.
type Localizer struct {
	translations map[string]map[string]string
}

// NewLocalizer loads every embedded locale file.
func NewLocalizer() (*Localizer, error) {
	l := &Localizer{translations: make(map[string]map[string]string)}

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded locales: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".json")

		data, err := localeFS.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", entry.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", entry.Name(), err)
		}
		l.translations[lang] = translations
	}

	return l, nil
}

// GetString returns the localized string for a key. Unknown languages fall
// back to English; an unknown key comes back verbatim so a missing
// translation is visible rather than silent.
func (l *Localizer) GetString(lang, key string) string {
	if table, ok := l.translations[lang]; ok {
		if value, ok := table[key]; ok {
			return value
		}
	}
	if lang != "en" {
		if value, ok := l.translations["en"][key]; ok {
			return value
		}
	}
	return key
}

// Languages lists the loaded language codes.
func (l *Localizer) Languages() []string {
	langs := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		langs = append(langs, lang)
	}
	return langs
}
