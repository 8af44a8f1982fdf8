package services

import (
	"context"
	"fmt"
	"strings"
)

// TranslationProvider is one interchangeable external translation backend.
// Implementations are selected by name at construction time and must keep
// their own request timeout.
type TranslationProvider interface {
	Name() string
	IsEnabled() bool
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// NewTranslationProvider builds the backend named by the TRANSLATION_PROVIDER
// setting. Unknown names return nil; the caller treats that as disabled.
func NewTranslationProvider(name string) TranslationProvider {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return NewOpenAITranslation()
	case "anthropic":
		return NewAnthropicTranslation()
	case "google", "gemini":
		return NewGoogleTranslation()
	default:
		infoLog("Unknown translation provider %q, translation disabled", name)
		return nil
	}
}

// languageNames maps the 2-letter codes stored on conversations to display
// names for LLM prompts. Unknown codes fall through to the raw code, which
// the models cope with.
var languageNames = map[string]string{
	"ar": "Arabic",
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fa": "Persian",
	"fr": "French",
	"hi": "Hindi",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"nl": "Dutch",
	"pl": "Polish",
	"pt": "Portuguese",
	"ru": "Russian",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"vi": "Vietnamese",
	"zh": "Chinese",
}

func languageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// translationPrompt builds the instruction shared by the LLM-backed providers.
func translationPrompt(text, sourceLang, targetLang string) string {
	return fmt.Sprintf(
		"Translate the following chat message from %s to %s. "+
			"Respond with only the translated text, no quotes, no explanations.\n\n%s",
		languageName(sourceLang), languageName(targetLang), text)
}
