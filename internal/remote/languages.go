package remote

import (
	"fmt"

	"golang.org/x/text/language"
)

// supportedLanguages are the languages the remote endpoint translates
// between. Requested tags are matched against this set, so regional
// variants (fr-CA, pt-BR) resolve to their base language.
var supportedLanguages = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
	language.Italian,
	language.Portuguese,
	language.Dutch,
	language.Swedish,
	language.Polish,
	language.Turkish,
	language.Russian,
	language.Ukrainian,
	language.Arabic,
	language.Hindi,
	language.Chinese,
	language.Japanese,
	language.Korean,
	language.Vietnamese,
	language.Thai,
	language.Indonesian,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// SupportedLanguage parses a language tag and resolves it against the
// supported set. Obscure tags that parse as well-formed but name a
// language the endpoint cannot translate are rejected the same way
// malformed ones are.
func SupportedLanguage(s string) (language.Tag, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, newError(ClassValidation, "language", fmt.Errorf("malformed language tag %q: %w", s, err))
	}
	if _, _, conf := languageMatcher.Match(tag); conf == language.No {
		return language.Und, newError(ClassValidation, "language", fmt.Errorf("unsupported language %q", s))
	}
	return tag, nil
}
