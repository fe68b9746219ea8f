// Package search implements the deterministic text pipeline behind answer
// routing: normalization, keyword extraction, exact FAQ matching, and lexical
// keyword-overlap scoring with snippet extraction. It is intentionally small
// and dependency-free:
//
//   - No logging in the library (callers decide how/what to log)
//   - Deterministic scoring and sorting (stable order for ties)
//   - Set-based tokenization with multilingual stop-word removal
//
// Scoring is lexical, not semantic: score = |Q ∩ E| / |Q| for the filtered
// keyword sets of the query and an entry's content.
package search

import "strings"

// punctReplacer strips the fixed normalization charset: quotes (including the
// guillemets common in Russian text), brackets, and terminal punctuation.
var punctReplacer = strings.NewReplacer(
	"?", "", "!", "", ".", "", ",", "", ";", "", ":", "",
	"'", "", `"`, "", "«", "", "»", "", "“", "", "”", "", "‘", "", "’", "",
	"(", "", ")", "", "[", "", "]", "", "¿", "", "¡", "",
)

// Normalize lowercases s, strips the fixed punctuation set, collapses runs of
// whitespace to single spaces, and trims. It is idempotent:
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = punctReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ExtractKeywords tokenizes Normalize(s) on spaces and keeps tokens longer
// than two runes that are not stop words. Duplicates collapse; order is
// irrelevant (set semantics).
func ExtractKeywords(s string) map[string]struct{} {
	fields := strings.Fields(Normalize(s))
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(fields))
	for _, tok := range fields {
		if len([]rune(tok)) <= 2 {
			continue
		}
		if _, skip := stopwords[tok]; skip {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

// stopwords covers the two highest-volume query languages (English and
// Russian) plus a handful of Spanish function words picked up by the
// language heuristic.
var stopwords = map[string]struct{}{
	// English
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "were": {},
	"that": {}, "this": {}, "with": {}, "from": {}, "have": {}, "has": {},
	"had": {}, "not": {}, "you": {}, "your": {}, "can": {}, "could": {},
	"will": {}, "would": {}, "should": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "whom": {}, "how": {}, "why": {}, "does": {},
	"did": {}, "about": {}, "into": {}, "than": {}, "then": {}, "them": {},
	"they": {}, "their": {}, "there": {}, "here": {}, "our": {}, "out": {},
	"all": {}, "any": {}, "but": {},
	// "time" is interrogative filler in this domain ("what time does X
	// open") and would otherwise dilute the overlap score of every
	// opening-hours query.
	"time": {},
	// Russian
	"его": {},
	"это": {}, "как": {}, "что": {}, "где": {}, "когда": {}, "почему": {},
	"какой": {}, "какая": {}, "какие": {}, "кто": {}, "или": {}, "для": {},
	"при": {}, "про": {}, "если": {}, "чтобы": {}, "можно": {}, "нужно": {},
	"есть": {}, "был": {}, "была": {}, "были": {}, "будет": {}, "меня": {},
	"мне": {}, "вас": {}, "вам": {}, "они": {}, "оно": {}, "она": {},
	"так": {}, "тоже": {}, "только": {}, "еще": {}, "ещё": {}, "уже": {},
	"вот": {}, "все": {}, "всё": {}, "наш": {}, "ваш": {},
	// Spanish
	"que": {}, "como": {}, "cómo": {}, "qué": {}, "por": {}, "para": {},
	"con": {}, "los": {}, "las": {}, "una": {}, "uno": {}, "del": {},
	"donde": {}, "dónde": {}, "cuando": {}, "cuándo": {}, "está": {},
	"estás": {}, "son": {}, "hay": {},
}
