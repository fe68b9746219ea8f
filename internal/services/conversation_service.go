// Package services – ConversationService
//
// This file implements conversation lifecycle: session start (verifying the
// assistant exists) and paginated history reads. Messages themselves are
// appended by AnswerService as part of routing.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/askadesk/assistant-backend/internal/domain"
	"github.com/askadesk/assistant-backend/internal/repo"
)

const defaultTitle = "New Chat"

// ConversationService creates conversations and lists their messages.
type ConversationService struct {
	DB *gorm.DB
}

// Start creates a conversation for an assistant. The title starts as a
// placeholder and is auto-generated from the first user message.
func (s *ConversationService) Start(ctx context.Context, assistantID string) (*domain.Conversation, error) {
	if _, err := repo.GetAssistant(ctx, s.DB, assistantID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAssistantNotFound
		}
		return nil, err
	}
	return repo.CreateConversation(ctx, s.DB, assistantID, defaultTitle)
}

// Get fetches a conversation by ID.
func (s *ConversationService) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	c, err := repo.GetConversation(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	return c, err
}

// ListPage returns a page of messages in chronological order.
// It applies defaults for invalid page/pageSize and returns total count.
func (s *ConversationService) ListPage(ctx context.Context, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := s.Get(ctx, conversationID); err != nil {
		return nil, 0, err
	}

	total, err := repo.CountMessages(ctx, s.DB, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, conversationID, offset, pageSize)
	return items, total, err
}
