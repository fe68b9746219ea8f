package search

import (
	"sort"
	"strings"

	"github.com/askadesk/assistant-backend/internal/domain"
)

// snippetLeadRunes is how far the snippet window reaches back before the
// earliest keyword hit, so the hit lands with surrounding context.
const snippetLeadRunes = 100

// ScoredEntry is a non-faq knowledge entry ranked against a query.
type ScoredEntry struct {
	Entry   domain.KnowledgeEntry
	Score   float64
	Matched []string
}

// prefixMatchMinRunes is the shortest token that may participate in a
// prefix match. Below it, prefixes collide with unrelated words ("car" and
// "carpet"); at it, English inflection still resolves ("open" and "opens").
const prefixMatchMinRunes = 4

// Score ranks non-faq entries by keyword overlap with the query.
//
// A query keyword counts as matched when an entry keyword equals it or when
// one is a prefix of the other, so inflected forms ("open" in the query,
// "opens" in the content) still overlap. Entries sharing fewer than
// minMatched keywords are excluded, which keeps a single coincidental word
// from producing a false positive. The score is |matched| / |query keywords|.
// The result is sorted descending by score; ties keep the original relative
// order (stable sort).
func Score(query string, entries []domain.KnowledgeEntry, minMatched int) []ScoredEntry {
	if minMatched < 1 {
		minMatched = 1
	}
	queryKeywords := ExtractKeywords(query)
	if len(queryKeywords) == 0 {
		return nil
	}

	out := make([]ScoredEntry, 0, len(entries))
	for i := range entries {
		e := entries[i]
		if e.SourceKind == domain.SourceFAQ || strings.TrimSpace(e.Content) == "" {
			continue
		}
		entryKeywords := ExtractKeywords(e.Content)
		if len(entryKeywords) == 0 {
			continue
		}
		matched := make([]string, 0, len(queryKeywords))
		for kw := range queryKeywords {
			if _, ok := entryKeywords[kw]; ok {
				matched = append(matched, kw)
				continue
			}
			for ek := range entryKeywords {
				if keywordsMatch(kw, ek) {
					matched = append(matched, kw)
					break
				}
			}
		}
		if len(matched) < minMatched {
			continue
		}
		sort.Strings(matched) // map iteration order is random; keep output deterministic
		out = append(out, ScoredEntry{
			Entry:   e,
			Score:   float64(len(matched)) / float64(len(queryKeywords)),
			Matched: matched,
		})
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// keywordsMatch reports whether two keywords are the same word up to a
// suffix: either string is a prefix of the other, provided the shorter one
// carries at least prefixMatchMinRunes runes.
func keywordsMatch(a, b string) bool {
	if a == b {
		return true
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len([]rune(shorter)) < prefixMatchMinRunes {
		return false
	}
	return strings.HasPrefix(longer, shorter)
}

// ExtractSnippet cuts a bounded window out of content around the earliest
// case-insensitive occurrence of any matched keyword. The window starts
// snippetLeadRunes before the hit (clamped to the start) and extends
// maxLength-snippetLeadRunes runes past it. Ellipsis markers are added on the
// sides where the window does not reach the content boundary.
func ExtractSnippet(content string, matched []string, maxLength int) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if maxLength <= snippetLeadRunes {
		maxLength = snippetLeadRunes * 3
	}

	runes := []rune(content)
	lower := []rune(strings.ToLower(content))

	hit := -1
	for _, kw := range matched {
		if kw == "" {
			continue
		}
		if idx := runeIndex(lower, []rune(kw)); idx >= 0 && (hit < 0 || idx < hit) {
			hit = idx
		}
	}
	if hit < 0 {
		hit = 0
	}

	start := hit - snippetLeadRunes
	if start < 0 {
		start = 0
	}
	end := hit + (maxLength - snippetLeadRunes)
	if end > len(runes) {
		end = len(runes)
	}

	snippet := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet = snippet + "..."
	}
	return snippet
}

// runeIndex returns the rune offset of the first occurrence of needle in
// haystack, or -1. Both slices are expected to be pre-lowercased; matching by
// runes keeps offsets safe for multi-byte scripts.
func runeIndex(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		j := 0
		for ; j < len(needle); j++ {
			if haystack[i+j] != needle[j] {
				break
			}
		}
		if j == len(needle) {
			return i
		}
	}
	return -1
}
