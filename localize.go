package passbridge

import "sort"

// Localizations maps a language code to a table from default-language
// text to translated text. Entries are keyed by content, so two fields
// with equal default text share one translation.
type Localizations map[string]map[string]string

// Add records a translation. Identical translations are ignored.
func (l Localizations) Add(lang, defaultValue, translated string) {
	if lang == "" || defaultValue == "" || translated == "" || translated == defaultValue {
		return
	}
	table, ok := l[lang]
	if !ok {
		table = map[string]string{}
		l[lang] = table
	}
	table[defaultValue] = translated
}

// Lookup returns the translation of defaultValue for lang.
func (l Localizations) Lookup(lang, defaultValue string) (string, bool) {
	v, ok := l[lang][defaultValue]
	return v, ok
}

// Languages returns the languages with at least one entry, sorted.
func (l Localizations) Languages() []string {
	out := make([]string, 0, len(l))
	for lang, table := range l {
		if len(table) > 0 {
			out = append(out, lang)
		}
	}
	sort.Strings(out)
	return out
}

// TranslatedString is one language/value pair of the payload format.
type TranslatedString struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

// LocalizedString is the payload's localized text shape.
type LocalizedString struct {
	DefaultValue     TranslatedString   `json:"defaultValue"`
	TranslatedValues []TranslatedString `json:"translatedValues,omitempty"`
}

// localizer reconciles a pass's Localizations with payload localized
// strings in both directions.
type localizer struct {
	defaultLanguage string
	strings         Localizations
}

// encode builds a localized string for value, listing only translations
// that differ from the default.
func (l localizer) encode(value string) *LocalizedString {
	if value == "" {
		return nil
	}
	ls := &LocalizedString{DefaultValue: TranslatedString{Language: l.defaultLanguage, Value: value}}
	for _, lang := range l.strings.Languages() {
		if lang == l.defaultLanguage {
			continue
		}
		if translated, ok := l.strings.Lookup(lang, value); ok && translated != value {
			ls.TranslatedValues = append(ls.TranslatedValues, TranslatedString{Language: lang, Value: translated})
		}
	}
	return ls
}

// decode absorbs every override of ls into the table and returns the
// default text, or fallback when ls is absent.
func (l localizer) decode(ls *LocalizedString, fallback string) string {
	if ls == nil || ls.DefaultValue.Value == "" {
		return fallback
	}
	def := ls.DefaultValue.Value
	for _, tv := range ls.TranslatedValues {
		l.strings.Add(tv.Language, def, tv.Value)
	}
	return def
}
