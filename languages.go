package subflow

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageNames maps locale codes to human-readable names for provider prompts.
var LanguageNames = map[string]string{
	"en_US": "English (United States)",
	"en_GB": "English (United Kingdom)",
	"de_DE": "German (Germany)",
	"es_ES": "Spanish (Spain)",
	"es_MX": "Spanish (Mexico)",
	"fr_FR": "French (France)",
	"it_IT": "Italian (Italy)",
	"ja_JP": "Japanese (Japan)",
	"ko_KR": "Korean (South Korea)",
	"pt_BR": "Portuguese (Brazil)",
	"pt_PT": "Portuguese (Portugal)",
	"ru_RU": "Russian (Russia)",
	"zh_CN": "Chinese (Simplified)",
	"zh_TW": "Chinese (Traditional)",
}

// ShortCodeToLocale maps short language codes to full locale codes.
var ShortCodeToLocale = map[string]string{
	"en": "en_US",
	"de": "de_DE",
	"es": "es_ES",
	"fr": "fr_FR",
	"it": "it_IT",
	"ja": "ja_JP",
	"ko": "ko_KR",
	"pt": "pt_BR",
	"ru": "ru_RU",
	"zh": "zh_CN",
}

// GetLanguageName returns the human-readable name for a language code.
// Codes missing from LanguageNames are named from CLDR data; unparseable
// codes are returned as given.
func GetLanguageName(langCode string) string {
	if name, ok := LanguageNames[langCode]; ok {
		return name
	}
	if locale, ok := ShortCodeToLocale[langCode]; ok {
		if name, ok := LanguageNames[locale]; ok {
			return name
		}
	}
	tag, err := language.Parse(ToBCP47(langCode))
	if err != nil {
		return langCode
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return langCode
}

// NormalizeLocale converts a language code to the underscore form (e.g., "ja-JP" → "ja_JP").
func NormalizeLocale(langCode string) string {
	return strings.ReplaceAll(strings.TrimSpace(langCode), "-", "_")
}

// ToBCP47 converts a locale code to BCP 47 form (e.g., "ja_JP" → "ja-JP").
func ToBCP47(langCode string) string {
	return strings.ReplaceAll(strings.TrimSpace(langCode), "_", "-")
}

// ValidateLanguage reports whether langCode is a well-formed language tag.
func ValidateLanguage(langCode string) error {
	if strings.TrimSpace(langCode) == "" {
		return fmt.Errorf("language code is empty")
	}
	if _, err := language.Parse(ToBCP47(langCode)); err != nil {
		return fmt.Errorf("language code %q: %w", langCode, err)
	}
	return nil
}

// BaseLanguage extracts the base language (e.g., "ja" from "ja_JP").
func BaseLanguage(langCode string) string {
	tag, err := language.Parse(ToBCP47(langCode))
	if err != nil {
		return strings.ToLower(strings.Split(NormalizeLocale(langCode), "_")[0])
	}
	base, _ := tag.Base()
	return base.String()
}
