package search

import (
	"testing"

	"github.com/askadesk/assistant-backend/internal/domain"
)

func faqEntry(t *testing.T, question, response string) domain.KnowledgeEntry {
	t.Helper()
	meta, err := domain.NewFAQMetadata(question, response)
	if err != nil {
		t.Fatalf("NewFAQMetadata: %v", err)
	}
	return domain.KnowledgeEntry{SourceKind: domain.SourceFAQ, Metadata: meta}
}

func TestMatchFAQ_ExactAfterNormalization(t *testing.T) {
	entries := []domain.KnowledgeEntry{
		faqEntry(t, "How do I get a library card?", "Visit the front desk."),
	}

	got, ok := MatchFAQ("how do i get a library card?", entries)
	if !ok || got != "Visit the front desk." {
		t.Fatalf("expected exact match, got %q ok=%v", got, ok)
	}

	// Determinism: every query with the same normalized form matches.
	for _, q := range []string{
		"HOW DO I GET A LIBRARY CARD",
		"  how   do i get a library card!  ",
		`how do i get a "library card"?`,
	} {
		if r, ok := MatchFAQ(q, entries); !ok || r != "Visit the front desk." {
			t.Fatalf("normalized-equal query %q did not match (got %q, %v)", q, r, ok)
		}
	}
}

func TestMatchFAQ_NoFuzzyMatching(t *testing.T) {
	entries := []domain.KnowledgeEntry{
		faqEntry(t, "How do I get a library card?", "Visit the front desk."),
	}
	if _, ok := MatchFAQ("how do i get a card", entries); ok {
		t.Fatal("partial question must not match")
	}
	if _, ok := MatchFAQ("", entries); ok {
		t.Fatal("empty query must not match")
	}
}

func TestMatchFAQ_SkipsMalformedEntries(t *testing.T) {
	entries := []domain.KnowledgeEntry{
		{SourceKind: domain.SourceFAQ, Metadata: domain.EntryMetadata{FAQ: &domain.FAQPair{Question: "only question"}}},
		{SourceKind: domain.SourceText, Content: "how do i get a library card"},
		faqEntry(t, "How do I get a library card?", "Visit the front desk."),
	}
	got, ok := MatchFAQ("how do i get a library card", entries)
	if !ok || got != "Visit the front desk." {
		t.Fatalf("expected the well-formed faq entry to win, got %q ok=%v", got, ok)
	}
}

func TestMatchFAQ_FirstMatchWins(t *testing.T) {
	entries := []domain.KnowledgeEntry{
		faqEntry(t, "Opening hours?", "9 to 6."),
		faqEntry(t, "Opening hours", "duplicate answer"),
	}
	got, ok := MatchFAQ("opening hours", entries)
	if !ok || got != "9 to 6." {
		t.Fatalf("expected first matching entry's response, got %q", got)
	}
}
