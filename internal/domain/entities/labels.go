package entities

import "strings"

// Locale selects UI labels.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleFR Locale = "fr"
)

var lengthLabels = map[Locale]map[Length]string{
	LocaleEN: {LengthShort: "short", LengthMedium: "medium", LengthLong: "long"},
	LocaleFR: {LengthShort: "court", LengthMedium: "moyen", LengthLong: "long"},
}

var styleLabels = map[Locale]map[Style]string{
	LocaleEN: {StyleFreeVerse: "free verse", StyleSonnet: "sonnet", StyleHaiku: "haiku", StyleLimerick: "limerick"},
	LocaleFR: {StyleFreeVerse: "vers libres", StyleSonnet: "sonnet", StyleHaiku: "haïku", StyleLimerick: "limerick"},
}

// Valid reports whether l is a known length.
func (l Length) Valid() bool {
	_, ok := lengthLabels[LocaleEN][l]
	return ok
}

// Label returns the display label for l, falling back to English.
func (l Length) Label(loc Locale) string {
	if m, ok := lengthLabels[loc]; ok {
		if s, ok := m[l]; ok {
			return s
		}
	}
	return lengthLabels[LocaleEN][l]
}

// Valid reports whether s is a known style.
func (s Style) Valid() bool {
	_, ok := styleLabels[LocaleEN][s]
	return ok
}

// Label returns the display label for s, falling back to English.
func (s Style) Label(loc Locale) string {
	if m, ok := styleLabels[loc]; ok {
		if v, ok := m[s]; ok {
			return v
		}
	}
	return styleLabels[LocaleEN][s]
}

// ParseLength accepts the canonical value or any localized label.
func ParseLength(raw string) (Length, bool) {
	key := normalizeLabel(raw)
	for _, labels := range lengthLabels {
		for l, label := range labels {
			if key == string(l) || key == normalizeLabel(label) {
				return l, true
			}
		}
	}
	return Length(key), false
}

// ParseStyle accepts the canonical value or any localized label.
func ParseStyle(raw string) (Style, bool) {
	key := normalizeLabel(raw)
	for _, labels := range styleLabels {
		for s, label := range labels {
			if key == string(s) || key == normalizeLabel(label) {
				return s, true
			}
		}
	}
	return Style(key), false
}

// ParseLocale falls back to English for anything unknown.
func ParseLocale(raw string) Locale {
	switch Locale(strings.ToLower(strings.TrimSpace(raw))) {
	case LocaleFR:
		return LocaleFR
	default:
		return LocaleEN
	}
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}
