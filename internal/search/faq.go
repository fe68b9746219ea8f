package search

import "github.com/askadesk/assistant-backend/internal/domain"

// MatchFAQ compares the normalized query against the normalized question of
// every faq entry and returns the first exact match's response. No partial or
// fuzzy matching, equality only, so identical normalized queries always
// produce identical answers.
func MatchFAQ(query string, entries []domain.KnowledgeEntry) (string, bool) {
	normalized := Normalize(query)
	if normalized == "" {
		return "", false
	}
	for i := range entries {
		question, response, ok := entries[i].FAQ()
		if !ok {
			continue
		}
		if Normalize(question) == normalized {
			return response, true
		}
	}
	return "", false
}
