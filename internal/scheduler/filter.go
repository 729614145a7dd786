package scheduler

import (
	"regexp"
	"strings"
	"unicode"
)

// Patterns for text that would waste a translation call.
var (
	urlPattern      = regexp.MustCompile(`^(https?://|www\.)\S+$|^\S+\.(com|org|net|io|dev)(/\S*)?$`)
	handlePattern   = regexp.MustCompile(`^[@#]\w+$`)
	currencyPattern = regexp.MustCompile(`^[$€£¥₽]\s?\d[\d.,]*$|^\d[\d.,]*\s?[$€£¥₽]$`)
	datePattern     = regexp.MustCompile(`^\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}$`)
	phonePattern    = regexp.MustCompile(`^\+?[\d\s().-]{7,}$`)
)

// ShouldTranslate reports whether the text is worth sending to the
// remote service. Pure numbers and symbols, short all-caps tokens,
// URLs, handles, currency amounts, dates and phone numbers are not.
func ShouldTranslate(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	if !containsLetter(text) {
		return false
	}
	if isShortAllCapsToken(text) {
		return false
	}
	if urlPattern.MatchString(text) {
		return false
	}
	if handlePattern.MatchString(text) {
		return false
	}
	if currencyPattern.MatchString(text) {
		return false
	}
	if datePattern.MatchString(text) {
		return false
	}
	if phonePattern.MatchString(text) {
		return false
	}
	return true
}

func containsLetter(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// isShortAllCapsToken catches acronym-like tokens such as "API" or
// "FAQ" that rarely benefit from translation.
func isShortAllCapsToken(text string) bool {
	if strings.ContainsAny(text, " \t\n") {
		return false
	}
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		if !unicode.IsUpper(r) {
			return false
		}
		letters++
	}
	return letters > 0 && letters <= 5
}
