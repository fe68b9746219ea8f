// Knowledge HTTP handlers.
//
// This file exposes the admin REST endpoints for an assistant's knowledge
// base:
//   - GET    /assistants/{id}/knowledge            (list, ETag support)
//   - POST   /assistants/{id}/knowledge            (create)
//   - GET    /assistants/{id}/knowledge/{entryID}  (fetch)
//   - PUT    /assistants/{id}/knowledge/{entryID}  (update)
//   - DELETE /assistants/{id}/knowledge/{entryID}  (delete)
//
// Every mutation flows through KnowledgeService, which invalidates the
// assistant's response cache before returning.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/askadesk/assistant-backend/internal/domain"
	"github.com/askadesk/assistant-backend/internal/repo"
	"github.com/askadesk/assistant-backend/internal/services"
)

// ListKnowledgeResponse wraps an assistant's knowledge entries.
type ListKnowledgeResponse struct {
	Entries []domain.KnowledgeEntry `json:"entries"`
}

// knowledgeETag builds a weak validator from the entry count and the newest
// update timestamp, so unchanged knowledge lists can be answered with 304.
func (h *Handlers) knowledgeETag(c *gin.Context, assistantID string) (string, bool) {
	if h.db == nil {
		return "", false
	}
	count, maxTS, err := repo.KnowledgeStats(c.Request.Context(), h.db, assistantID)
	if err != nil {
		return "", false
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.Unix()
	}
	return fmt.Sprintf(`W/"knowledge:%s:%d:%d"`, assistantID, count, ts), true
}

// ListKnowledge godoc
// @ID          listKnowledge
// @Summary     List knowledge entries
// @Description Returns the assistant's knowledge entries, newest first. Supports weak ETag via If-None-Match.
// @Tags        Knowledge
// @Produce     json
// @Param       id             path    string  true  "Assistant ID (UUID)"  format(uuid)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListKnowledgeResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /assistants/{id}/knowledge [get]
func (h *Handlers) ListKnowledge(c *gin.Context) {
	assistantID, okID := requireUUID(c, "id", "assistant")
	if !okID {
		return
	}

	if etag, okTag := h.knowledgeETag(c, assistantID); okTag {
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	entries, err := h.knowledge.List(c.Request.Context(), assistantID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListKnowledgeResponse{Entries: entries})
}

// CreateKnowledge godoc
// @ID          createKnowledge
// @Summary     Add a knowledge entry
// @Description Creates an entry (text, upload, website, or faq) and invalidates cached answers.
// @Tags        Knowledge
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Assistant ID (UUID)"  format(uuid)
// @Param       body  body  services.EntryInput  true  "Entry fields"
// @Success     201  {object}  domain.KnowledgeEntry
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /assistants/{id}/knowledge [post]
func (h *Handlers) CreateKnowledge(c *gin.Context) {
	assistantID, okID := requireUUID(c, "id", "assistant")
	if !okID {
		return
	}
	var in services.EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	entry, err := h.knowledge.Create(c.Request.Context(), assistantID, in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, entry)
}

// GetKnowledge godoc
// @ID          getKnowledge
// @Summary     Fetch a knowledge entry
// @Tags        Knowledge
// @Produce     json
// @Param       id       path  string  true  "Assistant ID (UUID)"  format(uuid)
// @Param       entryID  path  string  true  "Entry ID (UUID)"      format(uuid)
// @Success     200  {object}  domain.KnowledgeEntry
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /assistants/{id}/knowledge/{entryID} [get]
func (h *Handlers) GetKnowledge(c *gin.Context) {
	assistantID, okID := requireUUID(c, "id", "assistant")
	if !okID {
		return
	}
	entryID, okEntry := requireUUID(c, "entryID", "entry")
	if !okEntry {
		return
	}
	entry, err := h.knowledge.Get(c.Request.Context(), assistantID, entryID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, entry)
}

// UpdateKnowledge godoc
// @ID          updateKnowledge
// @Summary     Update a knowledge entry
// @Description Applies the provided fields and invalidates cached answers.
// @Tags        Knowledge
// @Accept      json
// @Produce     json
// @Param       id       path  string  true  "Assistant ID (UUID)"  format(uuid)
// @Param       entryID  path  string  true  "Entry ID (UUID)"      format(uuid)
// @Param       body     body  services.EntryInput  true  "Fields to update"
// @Success     200  {object}  domain.KnowledgeEntry
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /assistants/{id}/knowledge/{entryID} [put]
func (h *Handlers) UpdateKnowledge(c *gin.Context) {
	assistantID, okID := requireUUID(c, "id", "assistant")
	if !okID {
		return
	}
	entryID, okEntry := requireUUID(c, "entryID", "entry")
	if !okEntry {
		return
	}
	var in services.EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	entry, err := h.knowledge.Update(c.Request.Context(), assistantID, entryID, in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, entry)
}

// DeleteKnowledge godoc
// @ID          deleteKnowledge
// @Summary     Delete a knowledge entry
// @Description Removes the entry and invalidates cached answers.
// @Tags        Knowledge
// @Param       id       path  string  true  "Assistant ID (UUID)"  format(uuid)
// @Param       entryID  path  string  true  "Entry ID (UUID)"      format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /assistants/{id}/knowledge/{entryID} [delete]
func (h *Handlers) DeleteKnowledge(c *gin.Context) {
	assistantID, okID := requireUUID(c, "id", "assistant")
	if !okID {
		return
	}
	entryID, okEntry := requireUUID(c, "entryID", "entry")
	if !okEntry {
		return
	}
	if err := h.knowledge.Delete(c.Request.Context(), assistantID, entryID); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
