// Package services – KnowledgeService
//
// This file implements knowledge administration. Every mutation synchronously
// invalidates the owning assistant's response cache: cached answers were
// derived from the knowledge set and must not outlive it.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/askadesk/assistant-backend/internal/domain"
	"github.com/askadesk/assistant-backend/internal/repo"
)

// KnowledgeService provides CRUD over knowledge entries.
type KnowledgeService struct {
	DB    *gorm.DB
	Cache *CacheService
}

// EntryInput carries the writable fields of a knowledge entry.
type EntryInput struct {
	Title      string `json:"title"`
	SourceKind string `json:"source_kind"`
	Content    string `json:"content"`

	// FAQ pair, required when SourceKind is "faq".
	Question string `json:"question,omitempty"`
	Response string `json:"response,omitempty"`

	// Free-form provenance for non-faq kinds.
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Origin    string `json:"origin,omitempty"`
}

// List returns the assistant's entries, newest first.
func (s *KnowledgeService) List(ctx context.Context, assistantID string) ([]domain.KnowledgeEntry, error) {
	return repo.ListEntries(ctx, s.DB, assistantID)
}

// Get fetches one entry scoped to the assistant.
func (s *KnowledgeService) Get(ctx context.Context, assistantID, id string) (*domain.KnowledgeEntry, error) {
	e, err := repo.GetEntry(ctx, s.DB, id, assistantID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	return e, err
}

// Create validates and inserts an entry, then invalidates the cache.
func (s *KnowledgeService) Create(ctx context.Context, assistantID string, in EntryInput) (*domain.KnowledgeEntry, error) {
	e, err := buildEntry(assistantID, in)
	if err != nil {
		return nil, err
	}
	if err := repo.CreateEntry(ctx, s.DB, e); err != nil {
		return nil, err
	}
	if err := s.Cache.Invalidate(ctx, assistantID); err != nil {
		return nil, err
	}
	return e, nil
}

// Update applies changes to an entry, then invalidates the cache.
func (s *KnowledgeService) Update(ctx context.Context, assistantID, id string, in EntryInput) (*domain.KnowledgeEntry, error) {
	current, err := s.Get(ctx, assistantID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if v := strings.TrimSpace(in.Title); v != "" {
		updates["title"] = v
	}
	if in.Content != "" {
		updates["content"] = in.Content
	}
	if current.SourceKind == domain.SourceFAQ && (in.Question != "" || in.Response != "") {
		q, r := in.Question, in.Response
		if q == "" {
			q, _, _ = currentFAQ(current)
		}
		if r == "" {
			_, r, _ = currentFAQ(current)
		}
		md, err := domain.NewFAQMetadata(q, r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}
		updates["metadata"] = md
	}
	if len(updates) > 0 {
		if err := repo.UpdateEntry(ctx, s.DB, id, assistantID, updates); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrEntryNotFound
			}
			return nil, err
		}
		if err := s.Cache.Invalidate(ctx, assistantID); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, assistantID, id)
}

// Delete removes an entry, then invalidates the cache.
func (s *KnowledgeService) Delete(ctx context.Context, assistantID, id string) error {
	err := repo.DeleteEntry(ctx, s.DB, id, assistantID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrEntryNotFound
	}
	if err != nil {
		return err
	}
	return s.Cache.Invalidate(ctx, assistantID)
}

func buildEntry(assistantID string, in EntryInput) (*domain.KnowledgeEntry, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	kind := strings.TrimSpace(in.SourceKind)
	switch kind {
	case domain.SourceUpload, domain.SourceText, domain.SourceWebsite, domain.SourceFAQ:
	default:
		return nil, fmt.Errorf("%w: invalid source_kind %q", ErrInvalidInput, kind)
	}

	e := &domain.KnowledgeEntry{
		AssistantID: assistantID,
		Title:       title,
		SourceKind:  kind,
		Content:     in.Content,
	}
	if kind == domain.SourceFAQ {
		md, err := domain.NewFAQMetadata(in.Question, in.Response)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}
		e.Metadata = md
	} else {
		if in.Content == "" {
			return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
		}
		e.Metadata = domain.NewSourceMetadata(in.SizeBytes, in.Origin)
	}
	return e, nil
}

func currentFAQ(e *domain.KnowledgeEntry) (question, response string, ok bool) {
	if e.Metadata.FAQ == nil {
		return "", "", false
	}
	return e.Metadata.FAQ.Question, e.Metadata.FAQ.Response, true
}
