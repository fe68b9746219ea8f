// Package services – CacheService
//
// This file implements the response cache over the repo layer. Entries are
// keyed by (assistant, SHA-256 of the normalized question), so byte-different
// spellings of the same question share one slot. Reads are split into Peek
// (no side effect) and Touch (hit-count bump) so the routing layer can inspect
// the cache before committing to serving from it.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/askadesk/assistant-backend/internal/domain"
	"github.com/askadesk/assistant-backend/internal/repo"
	"github.com/askadesk/assistant-backend/internal/search"
)

// DefaultMaxCachedRunes bounds the size of responses eligible for caching.
const DefaultMaxCachedRunes = 4000

// CacheService stores and retrieves previously computed answers.
type CacheService struct {
	DB *gorm.DB

	// MaxResponseRunes caps cacheable response size; 0 means DefaultMaxCachedRunes.
	MaxResponseRunes int
}

// QuestionHash returns the cache key for a question: hex SHA-256 of its
// normalized form.
func QuestionHash(question string) string {
	sum := sha256.Sum256([]byte(search.Normalize(question)))
	return hex.EncodeToString(sum[:])
}

// Peek returns the cached entry for a question without recording a hit.
// A miss returns (nil, nil).
func (s *CacheService) Peek(ctx context.Context, assistantID, question string) (*domain.CacheEntry, error) {
	rec, err := repo.GetCacheEntry(ctx, s.DB, assistantID, QuestionHash(question))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Touch records a served hit: increments the counter and stamps last_used_at.
func (s *CacheService) Touch(ctx context.Context, entry *domain.CacheEntry) error {
	return repo.TouchCacheEntry(ctx, s.DB, entry.ID, time.Now().UTC())
}

// Lookup combines Peek and Touch for callers that serve the hit immediately.
func (s *CacheService) Lookup(ctx context.Context, assistantID, question string) (*domain.CacheEntry, error) {
	rec, err := s.Peek(ctx, assistantID, question)
	if err != nil || rec == nil {
		return rec, err
	}
	if err := s.Touch(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Store caches a response for a question. Stores are idempotent: a concurrent
// or repeated store for the same key is a no-op, and the original response is
// preserved. Responses over the size ceiling are skipped silently.
func (s *CacheService) Store(ctx context.Context, assistantID, question, response string) error {
	max := s.MaxResponseRunes
	if max <= 0 {
		max = DefaultMaxCachedRunes
	}
	if response == "" || utf8.RuneCountInString(response) >= max {
		return nil
	}
	_, err := repo.CreateCacheEntry(ctx, s.DB, assistantID, QuestionHash(question), search.Normalize(question), response)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// Invalidate drops every cached answer for an assistant. Must be called
// whenever the assistant's knowledge set changes.
func (s *CacheService) Invalidate(ctx context.Context, assistantID string) error {
	_, err := repo.DeleteCacheEntries(ctx, s.DB, assistantID)
	return err
}
