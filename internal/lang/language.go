// Package lang validates target language codes for translation and renders
// them as names a model understands in a prompt.
package lang

import (
	"fmt"
	"strings"
)

// names maps supported ISO 639-1 base codes to the English name used in prompts.
var names = map[string]string{
	"af": "Afrikaans",
	"ar": "Arabic",
	"bg": "Bulgarian",
	"bn": "Bengali",
	"ca": "Catalan",
	"cs": "Czech",
	"da": "Danish",
	"de": "German",
	"el": "Greek",
	"en": "English",
	"es": "Spanish",
	"et": "Estonian",
	"fa": "Persian",
	"fi": "Finnish",
	"fr": "French",
	"he": "Hebrew",
	"hi": "Hindi",
	"hr": "Croatian",
	"hu": "Hungarian",
	"id": "Indonesian",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"lt": "Lithuanian",
	"lv": "Latvian",
	"ms": "Malay",
	"nl": "Dutch",
	"no": "Norwegian",
	"pl": "Polish",
	"pt": "Portuguese",
	"ro": "Romanian",
	"ru": "Russian",
	"sk": "Slovak",
	"sl": "Slovenian",
	"sr": "Serbian",
	"sv": "Swedish",
	"sw": "Swahili",
	"th": "Thai",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"ur": "Urdu",
	"vi": "Vietnamese",
	"zh": "Chinese",
}

// regional refines names for common locales.
var regional = map[string]string{
	"en-us": "American English",
	"en-gb": "British English",
	"fr-ca": "Canadian French",
	"de-at": "Austrian German",
	"de-ch": "Swiss German",
	"es-mx": "Mexican Spanish",
	"pt-br": "Brazilian Portuguese",
	"pt-pt": "European Portuguese",
	"zh-cn": "Simplified Chinese",
	"zh-tw": "Traditional Chinese",
}

// Language is a validated language code such as "de" or "pt-BR".
// The zero value means no language was chosen.
type Language struct {
	code string
}

// English is the default translation target.
var English = Language{code: "en"}

// Normalize lowercases a code and uses a hyphen separator.
// "pt_BR", "PT-BR" and "pt-br" all become "pt-br".
func Normalize(code string) string {
	return strings.ToLower(strings.ReplaceAll(code, "_", "-"))
}

// Parse validates code. Accepts ISO 639-1 codes and locales whose base code
// is supported. The empty string yields the zero Language.
func Parse(code string) (Language, error) {
	if code == "" {
		return Language{}, nil
	}
	normalized := Normalize(strings.TrimSpace(code))
	if _, ok := names[baseOf(normalized)]; !ok {
		return Language{}, fmt.Errorf("invalid language code %q (use ISO 639-1 codes like 'en', 'de', 'pt-BR'): %w",
			code, ErrInvalid)
	}
	return Language{code: normalized}, nil
}

// MustParse parses code, panicking if invalid. Use only for constants and tests.
func MustParse(code string) Language {
	l, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return l
}

// String returns the normalized code, or "" for the zero value.
func (l Language) String() string {
	return l.code
}

// IsZero reports whether no language was chosen.
func (l Language) IsZero() bool {
	return l.code == ""
}

// BaseCode returns the ISO 639-1 part of the code ("pt-br" -> "pt").
func (l Language) BaseCode() string {
	return baseOf(l.code)
}

// IsEnglish reports whether l is any English variant.
func (l Language) IsEnglish() bool {
	return l.BaseCode() == "en"
}

// DisplayName returns the English name of the language for use in prompts.
func (l Language) DisplayName() string {
	if name, ok := regional[l.code]; ok {
		return name
	}
	if name, ok := names[l.BaseCode()]; ok {
		return name
	}
	return l.code
}

func baseOf(normalized string) string {
	if idx := strings.Index(normalized, "-"); idx != -1 {
		return normalized[:idx]
	}
	return normalized
}
