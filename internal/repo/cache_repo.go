// Package repo – repository helpers for the response cache. Rows are keyed by
// (assistant_id, question_hash); reads and hit-count bumps are split so the
// routing layer can inspect the cache without recording a hit.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askadesk/assistant-backend/internal/domain"
)

// ErrDuplicate indicates that a cache row already exists for the given
// (assistant_id, question_hash) pair.
var ErrDuplicate = errors.New("duplicate")

// GetCacheEntry returns the cached row for a question hash without touching
// its hit counter, or ErrNotFound.
func GetCacheEntry(ctx context.Context, db *gorm.DB, assistantID, questionHash string) (*domain.CacheEntry, error) {
	var rec domain.CacheEntry
	err := db.WithContext(ctx).
		Where("assistant_id = ? AND question_hash = ?", assistantID, questionHash).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// TouchCacheEntry increments the hit counter and stamps last_used_at for a row
// that was just served. Missing rows return ErrNotFound.
func TouchCacheEntry(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.CacheEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"hit_count":    gorm.Expr("hit_count + 1"),
			"last_used_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateCacheEntry inserts a row and returns ErrDuplicate on unique violation.
func CreateCacheEntry(ctx context.Context, db *gorm.DB, assistantID, questionHash, question, response string) (*domain.CacheEntry, error) {
	now := time.Now().UTC()
	rec := &domain.CacheEntry{
		ID:           uuid.NewString(),
		AssistantID:  assistantID,
		QuestionHash: questionHash,
		Question:     question,
		Response:     response,
		HitCount:     0,
		LastUsedAt:   now,
		CreatedAt:    now,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// DeleteCacheEntries drops every cached answer for an assistant. Called when
// the knowledge base changes, so stale answers never outlive their sources.
func DeleteCacheEntries(ctx context.Context, db *gorm.DB, assistantID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("assistant_id = ?", assistantID).
		Delete(&domain.CacheEntry{})
	return res.RowsAffected, res.Error
}
