package services

import (
	"context"
	"errors"
	"testing"

	"github.com/askadesk/assistant-backend/internal/domain"
	"github.com/askadesk/assistant-backend/internal/repo"
)

func newKnowledgeFixture(t *testing.T) (*KnowledgeService, *domain.Assistant) {
	t.Helper()
	db := newServiceDB(t)
	svc := &KnowledgeService{DB: db, Cache: &CacheService{DB: db}}

	a := &domain.Assistant{UserID: "u1", Name: "A", SystemPrompt: "p"}
	if err := repo.CreateAssistant(context.Background(), db, a); err != nil {
		t.Fatalf("seed assistant: %v", err)
	}
	return svc, a
}

func TestKnowledgeCreate_FAQRequiresBothHalves(t *testing.T) {
	svc, a := newKnowledgeFixture(t)

	_, err := svc.Create(context.Background(), a.ID, EntryInput{
		Title:      "FAQ",
		SourceKind: domain.SourceFAQ,
		Question:   "When are you open?",
	})
	if err == nil {
		t.Fatal("faq entry without a response must be rejected")
	}

	e, err := svc.Create(context.Background(), a.ID, EntryInput{
		Title:      "FAQ",
		SourceKind: domain.SourceFAQ,
		Question:   "When are you open?",
		Response:   "9 to 6.",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if q, r, ok := e.FAQ(); !ok || q == "" || r == "" {
		t.Fatalf("faq pair lost: %+v", e.Metadata)
	}
}

func TestKnowledgeCreate_RejectsBadKind(t *testing.T) {
	svc, a := newKnowledgeFixture(t)
	_, err := svc.Create(context.Background(), a.ID, EntryInput{
		Title:      "x",
		SourceKind: "pdf",
		Content:    "c",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown source_kind must be rejected as invalid input, got %v", err)
	}
}

func TestKnowledgeMutations_InvalidateCache(t *testing.T) {
	svc, a := newKnowledgeFixture(t)
	ctx := context.Background()

	seedCache := func() {
		if err := svc.Cache.Store(ctx, a.ID, "cached question", "cached answer"); err != nil {
			t.Fatalf("seed cache: %v", err)
		}
	}
	cacheEmpty := func() bool {
		rec, err := svc.Cache.Peek(ctx, a.ID, "cached question")
		if err != nil {
			t.Fatalf("Peek: %v", err)
		}
		return rec == nil
	}

	// Create
	seedCache()
	e, err := svc.Create(ctx, a.ID, EntryInput{Title: "Hours", SourceKind: domain.SourceText, Content: "Open 9 to 6."})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !cacheEmpty() {
		t.Fatal("create must invalidate the cache")
	}

	// Update
	seedCache()
	if _, err := svc.Update(ctx, a.ID, e.ID, EntryInput{Content: "Open 8 to 5."}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !cacheEmpty() {
		t.Fatal("update must invalidate the cache")
	}

	// Delete
	seedCache()
	if err := svc.Delete(ctx, a.ID, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !cacheEmpty() {
		t.Fatal("delete must invalidate the cache")
	}
}

func TestKnowledgeUpdate_FAQPairMerge(t *testing.T) {
	svc, a := newKnowledgeFixture(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, a.ID, EntryInput{
		Title:      "FAQ",
		SourceKind: domain.SourceFAQ,
		Question:   "When are you open?",
		Response:   "9 to 6.",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Update(ctx, a.ID, e.ID, EntryInput{Response: "8 to 5."})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	q, r, ok := got.FAQ()
	if !ok || q != "When are you open?" || r != "8 to 5." {
		t.Fatalf("partial faq update mangled the pair: %q %q ok=%v", q, r, ok)
	}
}

func TestKnowledgeGetDelete_NotFound(t *testing.T) {
	svc, a := newKnowledgeFixture(t)

	if _, err := svc.Get(context.Background(), a.ID, "missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), a.ID, "missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}
