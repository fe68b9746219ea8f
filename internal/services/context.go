// Package services – prompt context assembly
//
// This file builds the bounded system instruction handed to the generative
// backend: the assistant's persona, a language directive, the grounding rules,
// and a knowledge block assembled from top-scored snippets, FAQ pairs, and a
// couple of truncated extras.
package services

import (
	"fmt"
	"strings"

	"github.com/askadesk/assistant-backend/internal/domain"
	"github.com/askadesk/assistant-backend/internal/i18n"
	"github.com/askadesk/assistant-backend/internal/llm"
	"github.com/askadesk/assistant-backend/internal/search"
)

const (
	// maxSnippetEntries caps how many top-scored entries contribute snippets.
	maxSnippetEntries = 3
	// maxExtraEntries caps how many additional entries are appended truncated.
	maxExtraEntries = 2
	// extraEntryRunes is the truncation cap for those extras.
	extraEntryRunes = 400

	sectionDelimiter = "\n\n---\n\n"
)

// PromptContext is the assembled input for a generative-backend call.
type PromptContext struct {
	SystemInstruction string
	History           []llm.Turn
}

// buildPromptContext composes the system instruction and maps prior messages
// into the backend's turn sequence. scored must already be sorted descending
// (see search.Score); entries is the assistant's full knowledge set.
func buildPromptContext(a *domain.Assistant, entries []domain.KnowledgeEntry, scored []search.ScoredEntry, lang i18n.Language, prior []domain.Message, snippetMaxRunes int) PromptContext {
	var sections []string

	used := make(map[string]bool, maxSnippetEntries)
	for i, sc := range scored {
		if i >= maxSnippetEntries {
			break
		}
		snippet := search.ExtractSnippet(sc.Entry.Content, sc.Matched, snippetMaxRunes)
		if snippet == "" {
			continue
		}
		used[sc.Entry.ID] = true
		sections = append(sections, fmt.Sprintf("### %s\n%s", sc.Entry.Title, snippet))
	}

	var faqLines []string
	for i := range entries {
		if q, r, ok := entries[i].FAQ(); ok {
			faqLines = append(faqLines, fmt.Sprintf("Q: %s\nA: %s", q, r))
		}
	}
	if len(faqLines) > 0 {
		sections = append(sections, "### FAQ\n"+strings.Join(faqLines, "\n\n"))
	}

	extras := 0
	for i := range entries {
		if extras >= maxExtraEntries {
			break
		}
		e := &entries[i]
		if e.SourceKind == domain.SourceFAQ || e.Content == "" || used[e.ID] {
			continue
		}
		sections = append(sections, fmt.Sprintf("### %s\n%s", e.Title, truncateRunes(e.Content, extraEntryRunes)))
		extras++
	}

	knowledge := i18n.EmptyKnowledge(lang)
	if len(sections) > 0 {
		knowledge = strings.Join(sections, sectionDelimiter)
	}

	var b strings.Builder
	if p := strings.TrimSpace(a.SystemPrompt); p != "" {
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	b.WriteString(i18n.Directive(lang))
	b.WriteString("\n\nRules:\n")
	b.WriteString("1. Answer ONLY from the knowledge base below.\n")
	fmt.Fprintf(&b, "2. If the knowledge base does not contain the answer, reply exactly: %q\n", i18n.NoInformation(lang))
	fmt.Fprintf(&b, "3. If the request is unrelated to this assistant's domain, reply exactly: %q\n", i18n.OffTopic(lang))
	b.WriteString("4. Never answer from general world knowledge.\n\n")
	b.WriteString("Knowledge base:\n")
	b.WriteString(knowledge)

	history := make([]llm.Turn, 0, len(prior))
	for i := range prior {
		history = append(history, llm.Turn{Role: prior[i].Role, Text: prior[i].Content})
	}

	return PromptContext{SystemInstruction: b.String(), History: history}
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
