// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Assistant
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an assistant is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askadesk/assistant-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist. It aliases
// gorm.ErrRecordNotFound for consistency across services and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateAssistant inserts a new assistant. The ID is assigned here and
// CreatedAt is set to UTC.
func CreateAssistant(ctx context.Context, db *gorm.DB, a *domain.Assistant) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(a).Error
}

// GetAssistant fetches an assistant by ID, or ErrNotFound.
func GetAssistant(ctx context.Context, db *gorm.DB, id string) (*domain.Assistant, error) {
	var a domain.Assistant
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAssistants returns all assistants owned by userID, demo assistants
// first, then most recently created.
func ListAssistants(ctx context.Context, db *gorm.DB, userID string) ([]domain.Assistant, error) {
	var out []domain.Assistant
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_demo desc, created_at desc").
		Find(&out).Error
	return out, err
}

// UpdateAssistant applies the given column updates to an assistant owned by
// userID. Returns ErrNotFound when no row matched.
func UpdateAssistant(ctx context.Context, db *gorm.DB, id, userID string, updates map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Assistant{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAssistant soft-deletes an assistant owned by userID.
func DeleteAssistant(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Assistant{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastTrainedAt stamps the assistant's retrain marker.
func TouchLastTrainedAt(ctx context.Context, db *gorm.DB, id, userID string, at time.Time) error {
	return UpdateAssistant(ctx, db, id, userID, map[string]any{"last_trained_at": at})
}

// FindDemoAssistant returns the user's demo assistant, or ErrNotFound.
func FindDemoAssistant(ctx context.Context, db *gorm.DB, userID string) (*domain.Assistant, error) {
	var a domain.Assistant
	err := db.WithContext(ctx).
		Where("user_id = ? AND is_demo = ?", userID, true).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}
