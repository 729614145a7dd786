package session

import (
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/pageglot/pageglot/internal/extract"
)

// detectSampleLimit bounds how many unit texts feed detection.
const detectSampleLimit = 20

// detectSourceLanguage resolves an "auto" source language from the
// dominant language of the extracted sample.
func detectSourceLanguage(units []*extract.TextUnit) string {
	texts := make([]string, 0, detectSampleLimit)
	for _, unit := range units {
		texts = append(texts, unit.OriginalText)
		if len(texts) >= detectSampleLimit {
			break
		}
	}
	if len(texts) == 0 {
		return ""
	}

	lang := whatlanggo.DetectLang(strings.Join(texts, "\n")).Iso6391()
	return lang
}
