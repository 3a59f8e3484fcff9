package passbridge

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// DateStyle marks a content field whose value is a date and/or time.
type DateStyle int

const (
	DateStyleNone DateStyle = iota
	DateStyleDate
	DateStyleTime
	DateStyleDateTime
)

const (
	archiveDateStyleNone   = "PKDateStyleNone"
	archiveDateStyleMedium = "PKDateStyleMedium"
	archiveDateStyleShort  = "PKDateStyleShort"

	// localDateTimeLayout is the payload's offset-free date-time form.
	localDateTimeLayout = "2006-01-02T15:04:05"
)

func dateStyleFromArchive(dateStyle, timeStyle string) DateStyle {
	hasDate := dateStyle != "" && dateStyle != archiveDateStyleNone
	hasTime := timeStyle != "" && timeStyle != archiveDateStyleNone
	switch {
	case hasDate && hasTime:
		return DateStyleDateTime
	case hasDate:
		return DateStyleDate
	case hasTime:
		return DateStyleTime
	}
	return DateStyleNone
}

func (s DateStyle) archiveStyles() (dateStyle, timeStyle string) {
	switch s {
	case DateStyleDate:
		return archiveDateStyleMedium, archiveDateStyleNone
	case DateStyleTime:
		return archiveDateStyleNone, archiveDateStyleShort
	case DateStyleDateTime:
		return archiveDateStyleMedium, archiveDateStyleShort
	}
	return "", ""
}

var parseLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	localDateTimeLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDateTime parses the ISO-8601 variants found in both formats. The
// second result reports whether the text carried a UTC offset.
func parseDateTime(s string) (time.Time, bool, bool) {
	s = strings.TrimSpace(s)
	for i, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, i < 2, true
		}
	}
	return time.Time{}, false, false
}

// localDateTime normalizes a date-time to the offset-free payload form.
func localDateTime(s string) (string, bool) {
	t, _, ok := parseDateTime(s)
	if !ok {
		return "", false
	}
	return t.Format(localDateTimeLayout), true
}

type dateLayout struct {
	date string
	time string
}

var (
	dateLayoutTags = []language.Tag{
		language.English,
		language.AmericanEnglish,
		language.French,
		language.German,
		language.Spanish,
		language.Italian,
		language.Dutch,
		language.Portuguese,
		language.Japanese,
		language.Chinese,
		language.Korean,
	}
	dateLayouts = []dateLayout{
		{"2 Jan 2006", "15:04"},
		{"Jan 2, 2006", "3:04 PM"},
		{"02/01/2006", "15:04"},
		{"02.01.2006", "15:04"},
		{"02/01/2006", "15:04"},
		{"02/01/2006", "15:04"},
		{"02-01-2006", "15:04"},
		{"02/01/2006", "15:04"},
		{"2006/01/02", "15:04"},
		{"2006/01/02", "15:04"},
		{"2006. 01. 02.", "15:04"},
	}
	dateMatcher = language.NewMatcher(dateLayoutTags)
)

func layoutFor(lang string) dateLayout {
	tag, err := language.Parse(lang)
	if err != nil {
		return dateLayouts[0]
	}
	_, index, _ := dateMatcher.Match(tag)
	return dateLayouts[index]
}

// formatDateTime renders t for a viewer language using the style flag.
func formatDateTime(t time.Time, style DateStyle, lang string) string {
	layout := layoutFor(lang)
	switch style {
	case DateStyleDate:
		return t.Format(layout.date)
	case DateStyleTime:
		return t.Format(layout.time)
	}
	return t.Format(layout.date + " " + layout.time)
}

// localizedDateTime re-derives a free-text date into a default value plus
// one value per configured language.
func localizedDateTime(value string, style DateStyle, languages []string) (*LocalizedString, bool) {
	t, _, ok := parseDateTime(value)
	if !ok || len(languages) == 0 {
		return nil, false
	}
	ls := &LocalizedString{DefaultValue: TranslatedString{
		Language: languages[0],
		Value:    formatDateTime(t, style, languages[0]),
	}}
	for _, lang := range languages[1:] {
		formatted := formatDateTime(t, style, lang)
		if formatted == ls.DefaultValue.Value {
			continue
		}
		ls.TranslatedValues = append(ls.TranslatedValues, TranslatedString{Language: lang, Value: formatted})
	}
	return ls, true
}
