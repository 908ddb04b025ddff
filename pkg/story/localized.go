package story

import (
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// FallbackLanguage is preferred when the requested language has no translation.
const FallbackLanguage = "en"

// LocalizedString maps BCP 47 language tags to text, e.g. {"en": "Hello", "fr": "Bonjour"}.
type LocalizedString map[string]string

// NewLocalized builds an English-only string.
func NewLocalized(en string) LocalizedString {
	return LocalizedString{FallbackLanguage: en}
}

// UnmarshalJSON supports both a plain string and an object keyed by language.
func (ls *LocalizedString) UnmarshalJSON(data []byte) error {
	// Try unmarshaling as a plain string first
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*ls = NewLocalized(str)
		return nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("localized string must be a string or an object of language to text: %w", err)
	}
	*ls = m
	return nil
}

// UnmarshalYAML supports both a plain scalar and a mapping keyed by language.
func (ls *LocalizedString) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*ls = NewLocalized(value.Value)
		return nil
	}

	var m map[string]string
	if err := value.Decode(&m); err != nil {
		return fmt.Errorf("localized string must be a string or a mapping of language to text: %w", err)
	}
	*ls = m
	return nil
}

// Languages returns the declared language tags, fallback language first.
func (ls LocalizedString) Languages() []string {
	langs := make([]string, 0, len(ls))
	for k := range ls {
		if k != FallbackLanguage {
			langs = append(langs, k)
		}
	}
	sort.Strings(langs)
	if _, ok := ls[FallbackLanguage]; ok {
		langs = append([]string{FallbackLanguage}, langs...)
	}
	return langs
}

// Text returns the best translation for lang. Unknown or unmatched languages
// resolve to English, then to the first declared language.
func (ls LocalizedString) Text(lang string) string {
	if len(ls) == 0 {
		return ""
	}
	if s, ok := ls[lang]; ok {
		return s
	}

	keys := ls.Languages()
	supported := make([]language.Tag, 0, len(keys))
	for _, k := range keys {
		supported = append(supported, language.Make(k))
	}

	desired, err := language.Parse(lang)
	if err != nil {
		return ls[keys[0]]
	}

	// The matcher returns index 0 (the fallback) when nothing matches.
	_, idx, _ := language.NewMatcher(supported).Match(desired)
	if idx < 0 || idx >= len(keys) {
		idx = 0
	}
	return ls[keys[idx]]
}

// IsEmpty reports whether every translation is blank.
func (ls LocalizedString) IsEmpty() bool {
	for _, s := range ls {
		if s != "" {
			return false
		}
	}
	return true
}
