package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/askadesk/assistant-backend/internal/domain"
	"github.com/askadesk/assistant-backend/internal/http/middleware"
	"github.com/askadesk/assistant-backend/internal/repo"
	"github.com/askadesk/assistant-backend/internal/services"
)

// ---------- test DB ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ---------- flexible service stubs ----------

type stubConversations struct {
	start    func(context.Context, string) (*domain.Conversation, error)
	get      func(context.Context, string) (*domain.Conversation, error)
	listPage func(context.Context, string, int, int) ([]domain.Message, int64, error)
}

func (s stubConversations) Start(ctx context.Context, assistantID string) (*domain.Conversation, error) {
	if s.start != nil {
		return s.start(ctx, assistantID)
	}
	return &domain.Conversation{ID: uuid.NewString(), AssistantID: assistantID, Title: "New Chat"}, nil
}

func (s stubConversations) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	if s.get != nil {
		return s.get(ctx, id)
	}
	return &domain.Conversation{ID: id}, nil
}

func (s stubConversations) ListPage(ctx context.Context, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	if s.listPage != nil {
		return s.listPage(ctx, conversationID, page, pageSize)
	}
	return nil, 0, nil
}

type stubAnswers struct {
	answer func(context.Context, string, string, string, func(services.StreamFrame) error) (*domain.Message, error)
}

func (s stubAnswers) Answer(ctx context.Context, conversationID, clientID, content string, emit func(services.StreamFrame) error) (*domain.Message, error) {
	if s.answer != nil {
		return s.answer(ctx, conversationID, clientID, content, emit)
	}
	return nil, nil
}

// chatRouter wires a Handlers instance behind the middleware the chat
// endpoints rely on.
func chatRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ClientIdentity())
	r.POST("/chat/session", h.StartSession)
	r.POST("/chat/session/:id/message", h.PostMessage)
	r.GET("/chat/session/:id/messages", h.ListMessages)
	return r
}

func postJSON(r *gin.Engine, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// sseFrames parses "data: {...}" lines from an SSE body.
func sseFrames(t *testing.T, body string) []services.StreamFrame {
	t.Helper()
	var frames []services.StreamFrame
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var f services.StreamFrame
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &f); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		frames = append(frames, f)
	}
	return frames
}

// ---------- tests ----------

func TestStartSession(t *testing.T) {
	aid := uuid.NewString()
	h := New(nil, nil, stubConversations{}, stubAnswers{}, nil)
	r := chatRouter(h)

	w := postJSON(r, "/chat/session", StartSessionRequest{AssistantID: aid}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var conv domain.Conversation
	if err := json.Unmarshal(w.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if conv.AssistantID != aid {
		t.Errorf("assistant_id = %q, want %q", conv.AssistantID, aid)
	}
}

func TestStartSession_UnknownAssistant(t *testing.T) {
	h := New(nil, nil, stubConversations{
		start: func(context.Context, string) (*domain.Conversation, error) {
			return nil, services.ErrAssistantNotFound
		},
	}, stubAnswers{}, nil)
	r := chatRouter(h)

	w := postJSON(r, "/chat/session", StartSessionRequest{AssistantID: uuid.NewString()}, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != ErrCodeNotFound {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestStartSession_MissingBody(t *testing.T) {
	h := New(nil, nil, stubConversations{}, stubAnswers{}, nil)
	r := chatRouter(h)

	w := postJSON(r, "/chat/session", map[string]string{}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPostMessage_StreamsFrames(t *testing.T) {
	convID := uuid.NewString()
	h := New(nil, nil, stubConversations{}, stubAnswers{
		answer: func(ctx context.Context, id, clientID, content string, emit func(services.StreamFrame) error) (*domain.Message, error) {
			for _, chunk := range []string{"Hello", " there"} {
				if err := emit(services.StreamFrame{Content: chunk}); err != nil {
					return nil, err
				}
			}
			if err := emit(services.StreamFrame{Done: true}); err != nil {
				return nil, err
			}
			return &domain.Message{ID: uuid.NewString(), Role: domain.RoleModel, Content: "Hello there", Source: "generative"}, nil
		},
	}, nil)
	r := chatRouter(h)

	w := postJSON(r, "/chat/session/"+convID+"/message", PostMessageRequest{Content: "hi"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}

	frames := sseFrames(t, w.Body.String())
	if len(frames) != 3 {
		t.Fatalf("frames = %d, want 3: %s", len(frames), w.Body.String())
	}
	if frames[0].Content != "Hello" || frames[1].Content != " there" {
		t.Errorf("unexpected content frames: %+v", frames)
	}
	if !frames[2].Done || frames[2].Cached {
		t.Errorf("final frame = %+v, want done without cached", frames[2])
	}
}

func TestPostMessage_CachedDoneFlag(t *testing.T) {
	convID := uuid.NewString()
	h := New(nil, nil, stubConversations{}, stubAnswers{
		answer: func(ctx context.Context, id, clientID, content string, emit func(services.StreamFrame) error) (*domain.Message, error) {
			if err := emit(services.StreamFrame{Content: "cached reply"}); err != nil {
				return nil, err
			}
			if err := emit(services.StreamFrame{Done: true, Cached: true}); err != nil {
				return nil, err
			}
			return &domain.Message{Source: "cache"}, nil
		},
	}, nil)
	r := chatRouter(h)

	w := postJSON(r, "/chat/session/"+convID+"/message", PostMessageRequest{Content: "hi"}, nil)
	frames := sseFrames(t, w.Body.String())
	if len(frames) != 2 || !frames[1].Cached {
		t.Fatalf("expected cached done frame, got %+v", frames)
	}
}

func TestPostMessage_PreStreamErrorIsJSON(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrConversationNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrRateLimited, http.StatusTooManyRequests, ErrCodeRateLimited},
		{services.ErrTooLong, http.StatusBadRequest, ErrCodeBadRequest},
		{services.ErrBackendUnavailable, http.StatusInternalServerError, ErrCodeBackendUnavailable},
	}
	for _, tc := range cases {
		h := New(nil, nil, stubConversations{}, stubAnswers{
			answer: func(context.Context, string, string, string, func(services.StreamFrame) error) (*domain.Message, error) {
				return nil, tc.err
			},
		}, nil)
		r := chatRouter(h)

		w := postJSON(r, "/chat/session/"+uuid.NewString()+"/message", PostMessageRequest{Content: "hi"}, nil)
		if w.Code != tc.status {
			t.Errorf("%v: status = %d, want %d", tc.err, w.Code, tc.status)
			continue
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Errorf("%v: body not JSON: %v", tc.err, err)
			continue
		}
		if resp.Code != tc.code {
			t.Errorf("%v: code = %q, want %q", tc.err, resp.Code, tc.code)
		}
	}
}

func TestPostMessage_RateLimitedSetsRetryAfter(t *testing.T) {
	h := New(nil, nil, stubConversations{}, stubAnswers{
		answer: func(context.Context, string, string, string, func(services.StreamFrame) error) (*domain.Message, error) {
			return nil, services.ErrRateLimited
		},
	}, nil)
	r := chatRouter(h)

	w := postJSON(r, "/chat/session/"+uuid.NewString()+"/message", PostMessageRequest{Content: "hi"}, nil)
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After on 429")
	}
}

func TestPostMessage_MidStreamErrorTruncates(t *testing.T) {
	h := New(nil, nil, stubConversations{}, stubAnswers{
		answer: func(ctx context.Context, id, clientID, content string, emit func(services.StreamFrame) error) (*domain.Message, error) {
			if err := emit(services.StreamFrame{Content: "partial"}); err != nil {
				return nil, err
			}
			return nil, errors.New("backend connection reset")
		},
	}, nil)
	r := chatRouter(h)

	w := postJSON(r, "/chat/session/"+uuid.NewString()+"/message", PostMessageRequest{Content: "hi"}, nil)

	frames := sseFrames(t, w.Body.String())
	if len(frames) != 1 || frames[0].Content != "partial" {
		t.Fatalf("expected single partial frame, got %+v", frames)
	}
	for _, f := range frames {
		if f.Done {
			t.Fatalf("truncated stream must not carry a done marker")
		}
	}
	if strings.Contains(w.Body.String(), "backend connection reset") {
		t.Errorf("error text leaked into the stream")
	}
}

func TestPostMessage_PassesClientIdentity(t *testing.T) {
	var gotClient string
	h := New(nil, nil, stubConversations{}, stubAnswers{
		answer: func(ctx context.Context, id, clientID, content string, emit func(services.StreamFrame) error) (*domain.Message, error) {
			gotClient = clientID
			_ = emit(services.StreamFrame{Done: true})
			return &domain.Message{Source: "greeting"}, nil
		},
	}, nil)
	r := chatRouter(h)

	postJSON(r, "/chat/session/"+uuid.NewString()+"/message", PostMessageRequest{Content: "hi"},
		map[string]string{"X-Client-ID": "widget-9"})
	if gotClient != "widget-9" {
		t.Fatalf("client id = %q, want widget-9", gotClient)
	}
}

func TestPostMessage_NormalizesContent(t *testing.T) {
	var gotContent string
	h := New(nil, nil, stubConversations{}, stubAnswers{
		answer: func(ctx context.Context, id, clientID, content string, emit func(services.StreamFrame) error) (*domain.Message, error) {
			gotContent = content
			_ = emit(services.StreamFrame{Done: true})
			return &domain.Message{Source: "greeting"}, nil
		},
	}, nil)
	r := chatRouter(h)

	postJSON(r, "/chat/session/"+uuid.NewString()+"/message",
		PostMessageRequest{Content: "line one\r\n\r\n\r\n\r\nline two  "}, nil)
	if gotContent != "line one\n\nline two" {
		t.Fatalf("content = %q", gotContent)
	}
}

func TestListMessages_PaginationAndETag(t *testing.T) {
	db := newHandlerDB(t)
	a := &domain.Assistant{UserID: "owner", Name: "A", SystemPrompt: "p"}
	if err := repo.CreateAssistant(context.Background(), db, a); err != nil {
		t.Fatalf("assistant: %v", err)
	}
	conv, err := repo.CreateConversation(context.Background(), db, a.ID, "New Chat")
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := repo.AppendMessage(context.Background(), db, conv.ID, domain.RoleUser, fmt.Sprintf("m%d", i), ""); err != nil {
			t.Fatalf("append: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	convSvc := &services.ConversationService{DB: db}
	h := New(nil, nil, convSvc, stubAnswers{}, db)
	r := chatRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat/session/"+conv.ID+"/messages?page=1&page_size=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	var resp ListMessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Messages) != 2 || resp.Pagination.Total != 3 || !resp.Pagination.HasNext {
		t.Fatalf("unexpected page: %+v", resp.Pagination)
	}
	if resp.Messages[0].Content != "m0" {
		t.Errorf("order: first = %q, want m0", resp.Messages[0].Content)
	}

	// Replay with If-None-Match.
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/chat/session/"+conv.ID+"/messages", nil)
	req2.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w2, req2)
	if w2.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", w2.Code)
	}
}

func TestListMessages_BadUUID(t *testing.T) {
	h := New(nil, nil, stubConversations{}, stubAnswers{}, nil)
	r := chatRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat/session/not-a-uuid/messages", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
