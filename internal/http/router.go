// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, client identity, and edge rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Public chat surface and admin surface mounted separately
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/askadesk/assistant-backend/internal/config"
	"github.com/askadesk/assistant-backend/internal/http/handlers"
	"github.com/askadesk/assistant-backend/internal/http/middleware"
	"github.com/askadesk/assistant-backend/internal/i18n"
	"github.com/askadesk/assistant-backend/internal/llm"
	"github.com/askadesk/assistant-backend/internal/ratelimit"
	"github.com/askadesk/assistant-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. The admin API is mounted under cfg.APIBasePath; the public chat
// endpoints live under /chat so widgets never depend on the admin prefix.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Client identity (feeds both rate limiters)
//  8. Edge rate limiter (token bucket per client/IP)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, client llm.Client, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.DefaultRedactOptions()))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Resolve caller identity: widget client id for chat, admin subject
	// for the management API.
	r.Use(middleware.ClientIdentity())
	r.Use(middleware.UserIdentity())

	// 8) Token-bucket edge limiter per client/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientOrIP)
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured). The
	// widget is embedded on arbitrary customer sites, so the chat surface
	// must be reachable cross-origin.
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-Client-ID"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   int(cfg.Security.HSTSMaxAge / time.Second),
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/backend client
	cacheSvc := &services.CacheService{
		DB:               db,
		MaxResponseRunes: cfg.Routing.CacheMaxRunes,
	}
	assistantSvc := &services.AssistantService{DB: db, DefaultSystemPrompt: services.DefaultSystemPrompt}
	knowledgeSvc := &services.KnowledgeService{DB: db, Cache: cacheSvc}
	convSvc := &services.ConversationService{DB: db}
	answerSvc := &services.AnswerService{
		DB:              db,
		LLM:             client,
		Limiter:         ratelimit.NewSlidingWindow(),
		Cache:           cacheSvc,
		DefaultLanguage: i18n.ParseLanguage(cfg.Routing.DefaultLanguage),
		ScoreThreshold:  cfg.Routing.ScoreThreshold,
		MinMatched:      cfg.Routing.MinMatchedKeywords,
		SnippetMaxRunes: cfg.Routing.SnippetMaxRunes,
		MaxMessageRunes: cfg.Routing.MaxMessageRunes,
		RateMaxCount:    cfg.RateDefaultMax,
		RateWindow:      cfg.RateDefaultWindow,
	}
	h := handlers.New(assistantSvc, knowledgeSvc, convSvc, answerSvc, db)

	// Public chat surface (widget-facing)
	chat := r.Group("/chat")
	{
		chat.POST("/session", h.StartSession)
		chat.POST("/session/:id/message", h.PostMessage)
		chat.GET("/session/:id/messages", h.ListMessages)
	}

	// Admin API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/assistants", h.CreateAssistant)
		api.GET("/assistants", h.ListAssistants)
		api.GET("/assistants/:id", h.GetAssistant)
		api.PUT("/assistants/:id", h.UpdateAssistant)
		api.DELETE("/assistants/:id", h.DeleteAssistant)
		api.POST("/assistants/:id/retrain", h.RetrainAssistant)

		api.GET("/assistants/:id/knowledge", h.ListKnowledge)
		api.POST("/assistants/:id/knowledge", h.CreateKnowledge)
		api.GET("/assistants/:id/knowledge/:entryID", h.GetKnowledge)
		api.PUT("/assistants/:id/knowledge/:entryID", h.UpdateKnowledge)
		api.DELETE("/assistants/:id/knowledge/:entryID", h.DeleteKnowledge)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
