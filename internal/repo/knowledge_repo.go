// Package repo – repository functions for the KnowledgeEntry model. Entries
// are written by the ingestion/administration boundary and read by the answer
// pipeline; cache invalidation on mutation is enforced one layer up, in
// services.KnowledgeService.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askadesk/assistant-backend/internal/domain"
)

// ListEntries returns all knowledge entries for an assistant, most recently
// created first. This is the read used by every routing decision.
func ListEntries(ctx context.Context, db *gorm.DB, assistantID string) ([]domain.KnowledgeEntry, error) {
	var out []domain.KnowledgeEntry
	err := db.WithContext(ctx).
		Where("assistant_id = ?", assistantID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountEntries returns the number of knowledge entries for an assistant.
func CountEntries(ctx context.Context, db *gorm.DB, assistantID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.KnowledgeEntry{}).
		Where("assistant_id = ?", assistantID).
		Count(&total).Error
	return total, err
}

// GetEntry fetches a single entry scoped to its assistant, or ErrNotFound.
func GetEntry(ctx context.Context, db *gorm.DB, id, assistantID string) (*domain.KnowledgeEntry, error) {
	var e domain.KnowledgeEntry
	err := db.WithContext(ctx).
		Where("id = ? AND assistant_id = ?", id, assistantID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEntry inserts a knowledge entry, assigning its ID and timestamp.
func CreateEntry(ctx context.Context, db *gorm.DB, e *domain.KnowledgeEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(e).Error
}

// UpdateEntry applies column updates to an entry scoped to its assistant.
// Returns ErrNotFound when no row matched.
func UpdateEntry(ctx context.Context, db *gorm.DB, id, assistantID string, updates map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.KnowledgeEntry{}).
		Where("id = ? AND assistant_id = ?", id, assistantID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEntry soft-deletes an entry scoped to its assistant.
func DeleteEntry(ctx context.Context, db *gorm.DB, id, assistantID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND assistant_id = ?", id, assistantID).
		Delete(&domain.KnowledgeEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
