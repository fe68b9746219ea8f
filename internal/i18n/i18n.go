// Package i18n provides best-effort message language detection and the
// localized template strings used by the answer pipeline (refusals, empty
// knowledge base placeholders, default welcome messages, and the language
// directive embedded in the system instruction).
//
// Detection is a heuristic that only selects which localized template to use;
// false positives are acceptable. It classifies by, in priority order:
// non-Latin script ratio (Cyrillic), Spanish diacritics or marker words, and
// otherwise the configured default.
package i18n

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// Language identifies one of the supported response languages.
type Language string

// Supported languages.
const (
	English Language = "en"
	Russian Language = "ru"
	Spanish Language = "es"
)

// Tag maps a Language onto its x/text language tag.
func (l Language) Tag() language.Tag {
	switch l {
	case Russian:
		return language.Russian
	case Spanish:
		return language.Spanish
	default:
		return language.English
	}
}

// spanishMarkers are common function words that flag a Spanish message when
// no diacritics survive the user's typing.
var spanishMarkers = map[string]struct{}{
	"hola": {}, "gracias": {}, "por": {}, "para": {}, "como": {},
	"donde": {}, "cuando": {}, "usted": {}, "buenos": {}, "buenas": {},
	"dias": {}, "tardes": {}, "necesito": {}, "quiero": {}, "ayuda": {},
}

const spanishDiacritics = "áéíóúñü¿¡"

// Detect classifies text into a supported language. def is returned when no
// heuristic fires (and for empty input).
func Detect(text string, def Language) Language {
	if def == "" {
		def = English
	}
	if strings.TrimSpace(text) == "" {
		return def
	}

	var cyrillic, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case r < 128 && unicode.IsLetter(r):
			latin++
		}
	}
	if cyrillic > latin {
		return Russian
	}

	if strings.ContainsAny(strings.ToLower(text), spanishDiacritics) {
		return Spanish
	}
	markers := 0
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, "?!.,;:¿¡")
		if _, ok := spanishMarkers[w]; ok {
			markers++
			if markers >= 2 {
				return Spanish
			}
		}
	}

	return def
}

// ParseLanguage maps a configuration string onto a supported Language,
// defaulting to English for anything unrecognized.
func ParseLanguage(s string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case Russian:
		return Russian
	case Spanish:
		return Spanish
	default:
		return English
	}
}

// OffTopic is the localized refusal used when the assistant has knowledge but
// none of it scores against the query.
func OffTopic(l Language) string {
	switch l {
	case Russian:
		return "Этот вопрос выходит за рамки моей базы знаний. Я могу отвечать только на вопросы по теме ассистента."
	case Spanish:
		return "Esa pregunta está fuera de mi base de conocimientos. Solo puedo responder preguntas sobre el tema del asistente."
	default:
		return "That question is outside my knowledge base. I can only answer questions about this assistant's topic."
	}
}

// NoInformation is the localized template the model is instructed to use when
// the knowledge block does not contain the answer.
func NoInformation(l Language) string {
	switch l {
	case Russian:
		return "У меня нет этой информации. Пожалуйста, обратитесь к сотрудникам."
	case Spanish:
		return "No tengo esa información. Por favor, contacte con el personal."
	default:
		return "I don't have that information. Please contact the staff."
	}
}

// EmptyKnowledge is the placeholder inserted when an assistant has no
// knowledge entries at all.
func EmptyKnowledge(l Language) string {
	switch l {
	case Russian:
		return "База знаний пуста."
	case Spanish:
		return "La base de conocimientos está vacía."
	default:
		return "The knowledge base is empty."
	}
}

// DefaultWelcome is the greeting reply used when the assistant has no
// configured welcome message.
func DefaultWelcome(l Language) string {
	switch l {
	case Russian:
		return "Здравствуйте! Чем я могу помочь?"
	case Spanish:
		return "¡Hola! ¿En qué puedo ayudarle?"
	default:
		return "Hello! How can I help you?"
	}
}

// Directive is the language instruction embedded in the system prompt.
func Directive(l Language) string {
	switch l {
	case Russian:
		return "Respond in Russian."
	case Spanish:
		return "Respond in Spanish."
	default:
		return "Respond in English."
	}
}

// greetingPhrases is the fixed multilingual list a message is checked against
// (after trimming and lowercasing) by the greeting shortcut.
var greetingPhrases = []string{
	"hi", "hello", "hey", "good morning", "good afternoon", "good evening",
	"привет", "здравствуйте", "добрый день", "доброе утро", "добрый вечер",
	"hola", "buenos dias", "buenos días", "buenas tardes", "buenas noches",
}

// greetingMaxRunes caps how long a message may be and still count as a plain
// greeting; longer messages that merely open with one carry a real question.
const greetingMaxRunes = 32

// IsGreeting reports whether the message is a short standalone greeting: it
// must equal or begin with one of the known phrases and stay under the length
// ceiling.
func IsGreeting(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" || len([]rune(t)) > greetingMaxRunes {
		return false
	}
	t = strings.Trim(t, "!.,")
	for _, phrase := range greetingPhrases {
		if t == phrase || strings.HasPrefix(t, phrase+" ") || strings.HasPrefix(t, phrase+",") {
			return true
		}
	}
	return false
}
