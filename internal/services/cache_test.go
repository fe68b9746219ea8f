package services

import (
	"context"
	"strings"
	"testing"
)

func TestQuestionHash_NormalizationInvariant(t *testing.T) {
	if QuestionHash("  How do I RENEW?  ") != QuestionHash("how do i renew") {
		t.Fatal("hash must be stable under normalization")
	}
	if QuestionHash("how do i renew") == QuestionHash("how do i return") {
		t.Fatal("different questions must not collide")
	}
}

func TestCacheService_StoreIsIdempotent(t *testing.T) {
	db := newServiceDB(t)
	svc := &CacheService{DB: db}
	ctx := context.Background()

	if err := svc.Store(ctx, "a1", "what are the hours", "9 to 6."); err != nil {
		t.Fatalf("first Store: %v", err)
	}
	if err := svc.Store(ctx, "a1", "What are the HOURS?", "a different answer"); err != nil {
		t.Fatalf("second Store must be a silent no-op: %v", err)
	}

	rec, err := svc.Peek(ctx, "a1", "what are the hours")
	if err != nil || rec == nil {
		t.Fatalf("Peek: rec=%v err=%v", rec, err)
	}
	if rec.Response != "9 to 6." {
		t.Fatalf("original response must be preserved, got %q", rec.Response)
	}
}

func TestCacheService_SizeCeiling(t *testing.T) {
	db := newServiceDB(t)
	svc := &CacheService{DB: db, MaxResponseRunes: 10}
	ctx := context.Background()

	if err := svc.Store(ctx, "a1", "q", strings.Repeat("x", 50)); err != nil {
		t.Fatalf("oversized Store must be skipped silently: %v", err)
	}
	rec, err := svc.Peek(ctx, "a1", "q")
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if rec != nil {
		t.Fatalf("oversized response must not be cached: %+v", rec)
	}
}

func TestCacheService_PeekMissIsNil(t *testing.T) {
	db := newServiceDB(t)
	svc := &CacheService{DB: db}

	rec, err := svc.Peek(context.Background(), "a1", "never asked")
	if err != nil || rec != nil {
		t.Fatalf("miss should be (nil, nil), got rec=%v err=%v", rec, err)
	}
}

func TestCacheService_LookupBumpsHitCount(t *testing.T) {
	db := newServiceDB(t)
	svc := &CacheService{DB: db}
	ctx := context.Background()

	if err := svc.Store(ctx, "a1", "what are the hours", "9 to 6."); err != nil {
		t.Fatalf("Store: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Lookup(ctx, "a1", "what are the hours"); err != nil {
			t.Fatalf("Lookup: %v", err)
		}
	}
	rec, _ := svc.Peek(ctx, "a1", "what are the hours")
	if rec.HitCount != 2 {
		t.Fatalf("hit count = %d, want 2", rec.HitCount)
	}
}

func TestCacheService_Invalidate(t *testing.T) {
	db := newServiceDB(t)
	svc := &CacheService{DB: db}
	ctx := context.Background()

	_ = svc.Store(ctx, "a1", "q1", "r1")
	_ = svc.Store(ctx, "a1", "q2", "r2")
	_ = svc.Store(ctx, "a2", "q1", "r1")

	if err := svc.Invalidate(ctx, "a1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if rec, _ := svc.Peek(ctx, "a1", "q1"); rec != nil {
		t.Fatalf("a1 cache must be empty, got %+v", rec)
	}
	if rec, _ := svc.Peek(ctx, "a2", "q1"); rec == nil {
		t.Fatal("a2 cache must be untouched")
	}
}
