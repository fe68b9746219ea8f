// Assistant HTTP handlers.
//
// This file exposes the admin REST endpoints for assistants:
//   - POST   /assistants               (create)
//   - GET    /assistants               (list, demo first)
//   - GET    /assistants/{id}          (fetch)
//   - PUT    /assistants/{id}          (update)
//   - DELETE /assistants/{id}          (delete; demo is protected)
//   - POST   /assistants/{id}/retrain  (stamp a retraining pass)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askadesk/assistant-backend/internal/domain"
	"github.com/askadesk/assistant-backend/internal/http/middleware"
	"github.com/askadesk/assistant-backend/internal/services"
	"github.com/askadesk/assistant-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// AssistantService defines assistant administration operations consumed by
// HTTP handlers. Implementations must be safe for concurrent use and honor
// the provided context.
type AssistantService interface {
	Create(ctx context.Context, userID string, in services.AssistantInput) (*domain.Assistant, error)
	Get(ctx context.Context, id string) (*domain.Assistant, error)
	List(ctx context.Context, userID string) ([]domain.Assistant, error)
	Update(ctx context.Context, userID, id string, in services.AssistantInput) (*domain.Assistant, error)
	Delete(ctx context.Context, userID, id string) error
	Retrain(ctx context.Context, userID, id string) (*domain.Assistant, error)
}

// KnowledgeService defines knowledge-base administration operations.
type KnowledgeService interface {
	List(ctx context.Context, assistantID string) ([]domain.KnowledgeEntry, error)
	Get(ctx context.Context, assistantID, id string) (*domain.KnowledgeEntry, error)
	Create(ctx context.Context, assistantID string, in services.EntryInput) (*domain.KnowledgeEntry, error)
	Update(ctx context.Context, assistantID, id string, in services.EntryInput) (*domain.KnowledgeEntry, error)
	Delete(ctx context.Context, assistantID, id string) error
}

// ConversationService defines chat session lifecycle operations.
type ConversationService interface {
	Start(ctx context.Context, assistantID string) (*domain.Conversation, error)
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	ListPage(ctx context.Context, conversationID string, page, pageSize int) ([]domain.Message, int64, error)
}

// AnswerStreamer routes a visitor message and streams the reply through emit.
type AnswerStreamer interface {
	Answer(ctx context.Context, conversationID, clientID, content string, emit func(services.StreamFrame) error) (*domain.Message, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for assistants, knowledge, and chat.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic; DB is used only for cheap ETag stat queries.
type Handlers struct {
	assistants    AssistantService
	knowledge     KnowledgeService
	conversations ConversationService
	answers       AnswerStreamer
	db            *gorm.DB
}

// New constructs a Handlers instance bound to the given services.
func New(as AssistantService, ks KnowledgeService, cs ConversationService, ans AnswerStreamer, db *gorm.DB) *Handlers {
	return &Handlers{assistants: as, knowledge: ks, conversations: cs, answers: ans, db: db}
}

// userID extracts the admin subject set by the identity middleware. Admin
// endpoints fall back to "demo-user" so local setups work without a gateway.
func userID(c *gin.Context) string {
	if uid := middleware.UserIDFrom(c); uid != "" {
		return uid
	}
	return "demo-user"
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListAssistantsResponse wraps the assistants owned by the caller.
type ListAssistantsResponse struct {
	Assistants []domain.Assistant `json:"assistants"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const maxPageSize = 100
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), 20),
		maxPageSize,
	)
}

// requireUUID validates a path parameter as a UUID, writing a 400 on failure.
func requireUUID(c *gin.Context, param, what string) (string, bool) {
	id := c.Param(param)
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, what+" id must be a UUID")
		return "", false
	}
	return id, true
}

//
// Handlers
//

// CreateAssistant godoc
// @ID          createAssistant
// @Summary     Create an assistant
// @Description Creates an assistant for the current owner and returns it.
// @Tags        Assistants
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  false "Owner ID"  example(owner-1)
// @Param       body       body    services.AssistantInput  true  "Assistant fields"
// @Success     201  {object}  domain.Assistant
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /assistants [post]
func (h *Handlers) CreateAssistant(c *gin.Context) {
	var in services.AssistantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	a, err := h.assistants.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, a)
}

// ListAssistants godoc
// @ID          listAssistants
// @Summary     List assistants
// @Description Returns the caller's assistants, demo assistant first.
// @Tags        Assistants
// @Produce     json
// @Param       X-User-ID  header  string  false "Owner ID"  example(owner-1)
// @Success     200  {object}  handlers.ListAssistantsResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /assistants [get]
func (h *Handlers) ListAssistants(c *gin.Context) {
	items, err := h.assistants.List(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListAssistantsResponse{Assistants: items})
}

// GetAssistant godoc
// @ID          getAssistant
// @Summary     Fetch an assistant
// @Tags        Assistants
// @Produce     json
// @Param       id  path  string  true  "Assistant ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Assistant
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /assistants/{id} [get]
func (h *Handlers) GetAssistant(c *gin.Context) {
	id, okID := requireUUID(c, "id", "assistant")
	if !okID {
		return
	}
	a, err := h.assistants.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}

// UpdateAssistant godoc
// @ID          updateAssistant
// @Summary     Update an assistant
// @Description Applies the provided fields to an assistant owned by the caller.
// @Tags        Assistants
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  false "Owner ID"  example(owner-1)
// @Param       id         path    string  true  "Assistant ID (UUID)"  format(uuid)
// @Param       body       body    services.AssistantInput  true  "Fields to update"
// @Success     200  {object}  domain.Assistant
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /assistants/{id} [put]
func (h *Handlers) UpdateAssistant(c *gin.Context) {
	id, okID := requireUUID(c, "id", "assistant")
	if !okID {
		return
	}
	var in services.AssistantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	a, err := h.assistants.Update(c.Request.Context(), userID(c), id, in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}

// DeleteAssistant godoc
// @ID          deleteAssistant
// @Summary     Delete an assistant
// @Description Deletes an assistant owned by the caller. The demo assistant is protected.
// @Tags        Assistants
// @Param       X-User-ID  header  string  false "Owner ID"  example(owner-1)
// @Param       id         path    string  true  "Assistant ID (UUID)"  format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse "Demo assistant"
// @Router      /assistants/{id} [delete]
func (h *Handlers) DeleteAssistant(c *gin.Context) {
	id, okID := requireUUID(c, "id", "assistant")
	if !okID {
		return
	}
	if err := h.assistants.Delete(c.Request.Context(), userID(c), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// RetrainAssistant godoc
// @ID          retrainAssistant
// @Summary     Mark an assistant as retrained
// @Description Stamps the assistant with the caller and current time.
// @Tags        Assistants
// @Produce     json
// @Param       X-User-ID  header  string  false "Owner ID"  example(owner-1)
// @Param       id         path    string  true  "Assistant ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Assistant
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /assistants/{id}/retrain [post]
func (h *Handlers) RetrainAssistant(c *gin.Context) {
	id, okID := requireUUID(c, "id", "assistant")
	if !okID {
		return
	}
	a, err := h.assistants.Retrain(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}
