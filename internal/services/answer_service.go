// Package services – AnswerService
//
// This file implements the routing orchestrator and stream relay. An inbound
// user message passes the rate limiter, is persisted, and is then evaluated by
// the pure Decide ladder: greeting shortcut, exact FAQ match, off-topic guard,
// high-confidence snippet, cache hit, and finally the generative fallback.
// Deterministic branches answer synchronously; the fallback call streams
// incremental deltas to the caller and persists the concatenated result.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// conversation/assistant identifiers and the chosen routing branch.
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/askadesk/assistant-backend/internal/domain"
	"github.com/askadesk/assistant-backend/internal/i18n"
	"github.com/askadesk/assistant-backend/internal/llm"
	"github.com/askadesk/assistant-backend/internal/ratelimit"
	"github.com/askadesk/assistant-backend/internal/repo"
	"github.com/askadesk/assistant-backend/internal/search"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
)

// Branch identifies the routing ladder outcome for one user message.
type Branch string

const (
	BranchGreeting   Branch = "greeting"
	BranchFAQ        Branch = "faq"
	BranchOffTopic   Branch = "refusal"
	BranchSnippet    Branch = "snippet"
	BranchCache      Branch = "cache"
	BranchGenerative Branch = "generative"
)

// RoutingDecision is the outcome of evaluating a single user message. For
// deterministic branches Reply holds the full answer; for the generative
// branch Scored carries the ranked entries for context assembly.
type RoutingDecision struct {
	Branch Branch
	Reply  string
	Scored []search.ScoredEntry
}

// DecideInput is the full state Decide needs. It contains no handles to
// storage or the network, so every branch is unit-testable in isolation.
type DecideInput struct {
	Message        string
	Entries        []domain.KnowledgeEntry
	WelcomeMessage string
	Language       i18n.Language

	FirstMessage   bool
	CacheEnabled   bool
	CachedResponse string // peeked cache hit, empty on miss

	ScoreThreshold  float64
	MinMatched      int
	SnippetMaxRunes int
}

// Decide evaluates the routing ladder and returns the first matching branch.
// It is a pure function: the rate check and all persistence happen around it.
func Decide(in DecideInput) RoutingDecision {
	if i18n.IsGreeting(in.Message) {
		reply := strings.TrimSpace(in.WelcomeMessage)
		if reply == "" {
			reply = i18n.DefaultWelcome(in.Language)
		}
		return RoutingDecision{Branch: BranchGreeting, Reply: reply}
	}

	if response, ok := search.MatchFAQ(in.Message, in.Entries); ok {
		return RoutingDecision{Branch: BranchFAQ, Reply: response}
	}

	scored := search.Score(in.Message, in.Entries, in.MinMatched)

	if len(in.Entries) > 0 && len(scored) == 0 {
		return RoutingDecision{Branch: BranchOffTopic, Reply: i18n.OffTopic(in.Language)}
	}

	if len(scored) > 0 && scored[0].Score >= in.ScoreThreshold {
		top := scored[0]
		snippet := search.ExtractSnippet(top.Entry.Content, top.Matched, in.SnippetMaxRunes)
		return RoutingDecision{
			Branch: BranchSnippet,
			Reply:  fmt.Sprintf("%s\n\n(Source: %s)", snippet, top.Entry.Title),
			Scored: scored,
		}
	}

	if in.FirstMessage && in.CacheEnabled && in.CachedResponse != "" {
		return RoutingDecision{Branch: BranchCache, Reply: in.CachedResponse, Scored: scored}
	}

	return RoutingDecision{Branch: BranchGenerative, Scored: scored}
}

// StreamFrame is one frame of the answer stream. Deterministic branches emit
// a single content frame followed by the done frame; the generative branch
// emits one content frame per backend delta.
type StreamFrame struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Cached  bool   `json:"cached,omitempty"`
}

// AnswerService routes user messages to the cheapest sufficiently-confident
// answer source and relays the result as a stream.
type AnswerService struct {
	DB      *gorm.DB
	LLM     llm.Client
	Limiter ratelimit.Limiter
	Cache   *CacheService

	DefaultLanguage i18n.Language

	// Routing knobs; observed defaults are 0.8 and 2.
	ScoreThreshold  float64
	MinMatched      int
	SnippetMaxRunes int

	// Guards
	MaxMessageRunes int

	// Sliding-window defaults applied when the assistant config is unset.
	RateMaxCount int
	RateWindow   time.Duration

	// Title generation config
	TitleMaxLen int
}

// Answer runs the routing ladder for one user message and emits the answer
// through emit. The returned message is the persisted model reply; for the
// generative branch it is written once the stream has drained. ctx is
// threaded into the backend call so a departed client aborts it.
func (s *AnswerService) Answer(ctx context.Context, conversationID, clientID, content string, emit func(StreamFrame) error) (*domain.Message, error) {
	tr := otel.Tracer("services/AnswerService")
	ctx, span := tr.Start(ctx, "Answer",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(content) > s.MaxMessageRunes {
		return nil, ErrTooLong
	}

	conv, err := repo.GetConversation(ctx, s.DB, conversationID)
	if err != nil {
		return nil, ErrConversationNotFound
	}
	assistant, err := repo.GetAssistant(ctx, s.DB, conv.AssistantID)
	if err != nil {
		return nil, ErrAssistantNotFound
	}
	span.SetAttributes(attribute.String("assistant.id", assistant.ID))

	// Rate check precedes all routing work.
	if assistant.RateLimit.EffectiveEnabled() {
		max, window := assistant.RateLimit.Effective(s.RateMaxCount, s.RateWindow)
		if !s.Limiter.Allow(assistant.ID, clientID, max, window) {
			return nil, ErrRateLimited
		}
	}

	prior, err := repo.ListMessages(ctx, s.DB, conversationID, 0)
	if err != nil {
		return nil, err
	}
	firstMessage := len(prior) == 0

	if _, err := repo.AppendMessage(ctx, s.DB, conversationID, domain.RoleUser, content, ""); err != nil {
		return nil, err
	}
	if firstMessage {
		s.autoTitle(ctx, conv, content)
	}

	entries, err := repo.ListEntries(ctx, s.DB, assistant.ID)
	if err != nil {
		return nil, err
	}

	lang := i18n.Detect(content, s.DefaultLanguage)
	cacheEnabled := assistant.Cache.EffectiveEnabled()

	var cached *domain.CacheEntry
	if firstMessage && cacheEnabled {
		if cached, err = s.Cache.Peek(ctx, assistant.ID, content); err != nil {
			return nil, err
		}
	}
	cachedResponse := ""
	if cached != nil {
		cachedResponse = cached.Response
	}

	decision := Decide(DecideInput{
		Message:         content,
		Entries:         entries,
		WelcomeMessage:  assistant.WelcomeMessage,
		Language:        lang,
		FirstMessage:    firstMessage,
		CacheEnabled:    cacheEnabled,
		CachedResponse:  cachedResponse,
		ScoreThreshold:  s.ScoreThreshold,
		MinMatched:      s.MinMatched,
		SnippetMaxRunes: s.SnippetMaxRunes,
	})
	span.SetAttributes(attribute.String("routing.branch", string(decision.Branch)))

	if decision.Branch != BranchGenerative {
		msg, err := repo.AppendMessage(ctx, s.DB, conversationID, domain.RoleModel, decision.Reply, string(decision.Branch))
		if err != nil {
			return nil, err
		}
		if decision.Branch == BranchCache {
			if err := s.Cache.Touch(ctx, cached); err != nil {
				return nil, err
			}
		}
		if err := emit(StreamFrame{Content: decision.Reply}); err != nil {
			return msg, err
		}
		return msg, emit(StreamFrame{Done: true, Cached: decision.Branch == BranchCache})
	}

	return s.generate(ctx, assistant, conversationID, content, entries, decision.Scored, lang, prior, firstMessage, cacheEnabled, emit)
}

// generate assembles the prompt context, streams the backend call through
// emit, and persists (and maybe caches) the concatenated answer.
func (s *AnswerService) generate(
	ctx context.Context,
	assistant *domain.Assistant,
	conversationID, content string,
	entries []domain.KnowledgeEntry,
	scored []search.ScoredEntry,
	lang i18n.Language,
	prior []domain.Message,
	firstMessage, cacheEnabled bool,
	emit func(StreamFrame) error,
) (*domain.Message, error) {
	tr := otel.Tracer("services/AnswerService")
	ctx, span := tr.Start(ctx, "generate",
		trace.WithAttributes(attribute.String("assistant.id", assistant.ID)),
	)
	defer span.End()

	pc := buildPromptContext(assistant, entries, scored, lang, prior, s.SnippetMaxRunes)
	pc.History = append(pc.History, llm.Turn{Role: domain.RoleUser, Text: content})

	deltas, err := s.LLM.StreamChat(ctx, assistant.ModelSelector, pc.SystemInstruction, pc.History)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	var full strings.Builder
	for d := range deltas {
		if d.Err != nil {
			if full.Len() == 0 {
				return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, d.Err)
			}
			return nil, d.Err
		}
		if d.Content != "" {
			full.WriteString(d.Content)
			if err := emit(StreamFrame{Content: d.Content}); err != nil {
				return nil, err
			}
		}
		if d.Done {
			break
		}
	}

	response := full.String()
	if response == "" {
		return nil, ErrBackendUnavailable
	}

	msg, err := repo.AppendMessage(ctx, s.DB, conversationID, domain.RoleModel, response, string(BranchGenerative))
	if err != nil {
		return nil, err
	}
	if firstMessage && cacheEnabled {
		if err := s.Cache.Store(ctx, assistant.ID, content, response); err != nil {
			return nil, err
		}
	}
	return msg, emit(StreamFrame{Done: true})
}

var titleWordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

var titleStopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "of": {}, "for": {}, "and": {},
	"is": {}, "are": {}, "do": {}, "does": {}, "how": {}, "what": {},
	"i": {}, "my": {}, "me": {}, "you": {},
}

// autoTitle replaces the placeholder conversation title with a concise
// title-cased digest of the first user message. Failures are ignored; titling
// is cosmetic.
func (s *AnswerService) autoTitle(ctx context.Context, conv *domain.Conversation, content string) {
	if !strings.EqualFold(strings.TrimSpace(conv.Title), defaultTitle) {
		return
	}
	toks := titleWordRE.FindAllString(strings.ToLower(content), -1)
	caser := cases.Title(s.DefaultLanguage.Tag())
	out := make([]string, 0, 6)
	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, caser.String(w))
		if len(out) >= 6 {
			break
		}
	}
	if len(out) == 0 {
		return
	}
	title := strings.Join(out, " ")
	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		title = string([]rune(title)[:max])
	}
	_ = repo.UpdateConversationTitle(ctx, s.DB, conv.ID, title)
}
