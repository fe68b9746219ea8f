// Chat HTTP handlers.
//
// This file exposes the public chat endpoints consumed by the embeddable
// widget:
//   - POST /chat/session                 (open a conversation with an assistant)
//   - POST /chat/session/{id}/message    (send a message; reply streams as SSE)
//   - GET  /chat/session/{id}/messages   (list history, paginated, ETag support)
//
// The message endpoint answers with Server-Sent Events. Each frame is a JSON
// object on a "data:" line; content frames carry a "content" field and the
// final frame carries "done": true (plus "cached": true for cache hits).
// Deterministic branches produce a single content frame; generative replies
// stream token deltas as they arrive from the backend. If the backend fails
// after output has started, the stream is terminated without a done marker so
// clients can detect the truncation.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/askadesk/assistant-backend/internal/domain"
	"github.com/askadesk/assistant-backend/internal/http/middleware"
	"github.com/askadesk/assistant-backend/internal/repo"
	"github.com/askadesk/assistant-backend/internal/services"
)

//
// DTOs
//

// StartSessionRequest is the JSON payload for opening a conversation.
type StartSessionRequest struct {
	// AssistantID selects which published assistant the visitor talks to.
	AssistantID string `json:"assistant_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// PostMessageRequest is the JSON payload for sending a visitor message.
type PostMessageRequest struct {
	// Content is the visitor's message. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"When is the library open?"`
}

// ListMessagesResponse contains a page of conversation messages and
// pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// excessNewlines collapses runs of three or more newlines in user content.
var excessNewlines = regexp.MustCompile(`\n{3,}`)

// normalizeContent unifies line endings and trims exaggerated blank runs so
// stored messages and cache keys stay tidy.
func normalizeContent(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

//
// Handlers
//

// StartSession godoc
// @ID          startSession
// @Summary     Open a chat session
// @Description Creates a conversation bound to an assistant and returns it.
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.StartSessionRequest  true  "Session payload"
// @Success     201  {object}  domain.Conversation
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse "Assistant not found"
// @Router      /chat/session [post]
func (h *Handlers) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "assistant_id is required")
		return
	}
	conv, err := h.conversations.Start(c.Request.Context(), req.AssistantID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, conv)
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a message and stream the reply
// @Description Routes the message (greeting, FAQ, snippet, cache, or generative backend) and streams the reply as Server-Sent Events.
// @Tags        Chat
// @Accept      json
// @Produce     text/event-stream
// @Param       X-Client-ID  header  string  false "Stable widget client identity"
// @Param       id           path    string  true  "Conversation ID (UUID)"  format(uuid)
// @Param       body         body    handlers.PostMessageRequest  true  "Message payload"
// @Success     200  {string}  string "SSE stream of JSON frames"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse "Conversation not found"
// @Failure     429  {object}  handlers.ErrorResponse "Message limit reached"
// @Failure     500  {object}  handlers.ErrorResponse "Backend unavailable"
// @Router      /chat/session/{id}/message [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	conversationID, okID := requireUUID(c, "id", "conversation")
	if !okID {
		return
	}
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content is required")
		return
	}
	content := normalizeContent(req.Content)
	clientID := middleware.ClientIDFrom(c)

	// SSE headers are deferred to the first frame so that pre-stream
	// failures still produce a regular JSON error response.
	wroteAny := false
	w := c.Writer
	emit := func(f services.StreamFrame) error {
		payload, err := json.Marshal(f)
		if err != nil {
			return err
		}
		if !wroteAny {
			header := w.Header()
			header.Set("Content-Type", "text/event-stream")
			header.Set("Cache-Control", "no-cache")
			header.Set("Connection", "keep-alive")
			header.Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		wroteAny = true
		w.Flush()
		return nil
	}

	msg, err := h.answers.Answer(c.Request.Context(), conversationID, clientID, content, emit)
	if err != nil {
		if !wroteAny {
			failErr(c, err)
			return
		}
		// The stream already started; stop without a done marker so the
		// client sees the truncation.
		middleware.LoggerFrom(c).Error().
			Err(err).
			Str("conversation_id", conversationID).
			Msg("stream aborted")
		c.Abort()
		return
	}
	if msg != nil {
		middleware.ObserveRouting(msg.Source)
	}
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List conversation messages
// @Description Returns a page of messages in chronological order. Supports weak ETag via If-None-Match.
// @Tags        Chat
// @Produce     json
// @Param       id             path    string  true  "Conversation ID (UUID)"  format(uuid)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"    minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page" minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListMessagesResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /chat/session/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	conversationID, okID := requireUUID(c, "id", "conversation")
	if !okID {
		return
	}
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if h.db != nil {
		count, maxTS, err := repo.MessagesStats(ctx, h.db, conversationID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, conversationID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.conversations.ListPage(ctx, conversationID, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
