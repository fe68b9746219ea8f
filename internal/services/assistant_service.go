// Package services – AssistantService
//
// This file implements assistant administration: create, list (demo first),
// update, delete, and the retrain stamp. The seeded demo assistant is
// protected from deletion. Admin calls are scoped to the owning user; the
// answer pipeline reads assistants unscoped because chat endpoints are public.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/askadesk/assistant-backend/internal/domain"
	"github.com/askadesk/assistant-backend/internal/repo"
)

const nameMaxRunes = 255

// DefaultSystemPrompt is the persona applied when an assistant is created
// without one.
const DefaultSystemPrompt = "You are a helpful support assistant. Answer visitor questions politely and concisely."

// AssistantService provides CRUD operations over assistants.
type AssistantService struct {
	DB *gorm.DB

	// DefaultSystemPrompt is applied when a new assistant omits one.
	DefaultSystemPrompt string
}

// AssistantInput carries the writable fields of an assistant.
type AssistantInput struct {
	Name           string                   `json:"name"`
	Description    string                   `json:"description"`
	SystemPrompt   string                   `json:"system_prompt"`
	WelcomeMessage string                   `json:"welcome_message"`
	CoverImage     string                   `json:"cover_image"`
	IsPublished    *bool                    `json:"is_published"`
	ModelSelector  string                   `json:"model_selector"`
	Deployment     *domain.DeploymentConfig `json:"deployment_config"`
	RateLimit      *domain.RateLimitConfig  `json:"rate_limit_config"`
	Cache          *domain.CacheConfig      `json:"cache_config"`
}

// Create inserts a new assistant for userID.
func (s *AssistantService) Create(ctx context.Context, userID string, in AssistantInput) (*domain.Assistant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > nameMaxRunes {
		name = string([]rune(name)[:nameMaxRunes])
	}
	prompt := strings.TrimSpace(in.SystemPrompt)
	if prompt == "" {
		prompt = s.DefaultSystemPrompt
	}

	a := &domain.Assistant{
		UserID:         userID,
		Name:           name,
		Description:    strings.TrimSpace(in.Description),
		SystemPrompt:   prompt,
		WelcomeMessage: strings.TrimSpace(in.WelcomeMessage),
		CoverImage:     in.CoverImage,
		ModelSelector:  in.ModelSelector,
	}
	if in.IsPublished != nil {
		a.IsPublished = *in.IsPublished
	}
	if in.Deployment != nil {
		a.Deployment = *in.Deployment
	}
	if in.RateLimit != nil {
		a.RateLimit = *in.RateLimit
	}
	if in.Cache != nil {
		a.Cache = *in.Cache
	}
	if err := repo.CreateAssistant(ctx, s.DB, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get fetches an assistant by ID, unscoped. Used by the public chat path.
func (s *AssistantService) Get(ctx context.Context, id string) (*domain.Assistant, error) {
	a, err := repo.GetAssistant(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAssistantNotFound
	}
	return a, err
}

// List returns the user's assistants, demo first, then newest first.
func (s *AssistantService) List(ctx context.Context, userID string) ([]domain.Assistant, error) {
	return repo.ListAssistants(ctx, s.DB, userID)
}

// Update applies the provided fields to an assistant owned by userID.
func (s *AssistantService) Update(ctx context.Context, userID, id string, in AssistantInput) (*domain.Assistant, error) {
	updates := map[string]any{}
	if v := strings.TrimSpace(in.Name); v != "" {
		updates["name"] = v
	}
	if in.Description != "" {
		updates["description"] = strings.TrimSpace(in.Description)
	}
	if v := strings.TrimSpace(in.SystemPrompt); v != "" {
		updates["system_prompt"] = v
	}
	if in.WelcomeMessage != "" {
		updates["welcome_message"] = strings.TrimSpace(in.WelcomeMessage)
	}
	if in.CoverImage != "" {
		updates["cover_image"] = in.CoverImage
	}
	if in.IsPublished != nil {
		updates["is_published"] = *in.IsPublished
	}
	if in.ModelSelector != "" {
		updates["model_selector"] = in.ModelSelector
	}
	if in.Deployment != nil {
		updates["deployment"] = *in.Deployment
	}
	if in.RateLimit != nil {
		updates["rate_limit"] = *in.RateLimit
	}
	if in.Cache != nil {
		updates["cache"] = *in.Cache
	}
	if len(updates) == 0 {
		return s.ownedAssistant(ctx, userID, id)
	}

	err := repo.UpdateAssistant(ctx, s.DB, id, userID, updates)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAssistantNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.ownedAssistant(ctx, userID, id)
}

// Delete removes an assistant owned by userID. The demo assistant is refused.
func (s *AssistantService) Delete(ctx context.Context, userID, id string) error {
	a, err := s.ownedAssistant(ctx, userID, id)
	if err != nil {
		return err
	}
	if a.IsDemo {
		return ErrDemoProtected
	}
	err = repo.DeleteAssistant(ctx, s.DB, id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrAssistantNotFound
	}
	return err
}

// Retrain stamps LastTrainedAt. Actual re-ingestion happens out of process;
// the timestamp is what the dashboard reads.
func (s *AssistantService) Retrain(ctx context.Context, userID, id string) (*domain.Assistant, error) {
	if _, err := s.ownedAssistant(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := repo.TouchLastTrainedAt(ctx, s.DB, id, userID, time.Now().UTC()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAssistantNotFound
		}
		return nil, err
	}
	return s.ownedAssistant(ctx, userID, id)
}

// EnsureDemo seeds the demo assistant for userID if it does not exist yet.
// Called at boot so a fresh database always has something to chat with.
func (s *AssistantService) EnsureDemo(ctx context.Context, userID string, seed AssistantInput) (*domain.Assistant, error) {
	existing, err := repo.FindDemoAssistant(ctx, s.DB, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	a, err := s.Create(ctx, userID, seed)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateAssistant(ctx, s.DB, a.ID, userID, map[string]any{"is_demo": true, "is_published": true}); err != nil {
		return nil, err
	}
	a.IsDemo = true
	a.IsPublished = true
	return a, nil
}

func (s *AssistantService) ownedAssistant(ctx context.Context, userID, id string) (*domain.Assistant, error) {
	a, err := repo.GetAssistant(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAssistantNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrAssistantNotFound
	}
	return a, nil
}
