package middleware

import (
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Compiled once. Order matters: UUIDs first so their digit groups are not
// misread as phone numbers.
var (
	reUUID  = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)
	reEmail = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	rePhone = regexp.MustCompile(`\+?\d[\d\s\-()]{7,}\d`)
)

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders lists request headers whose values are replaced with
	// "[redacted]" in logs. Matching is case-insensitive via http.Header.
	MaskHeaders []string
}

// DefaultRedactOptions masks the usual credential-bearing headers.
func DefaultRedactOptions() RedactOptions {
	return RedactOptions{
		MaskHeaders: []string{"Authorization", "Cookie", "Set-Cookie", "X-Api-Key"},
	}
}

// Redact masks identifiers, email addresses, and phone-like digit runs in s.
func Redact(s string) string {
	s = reUUID.ReplaceAllString(s, "[uuid]")
	s = reEmail.ReplaceAllString(s, "[email]")
	s = rePhone.ReplaceAllString(s, "[phone]")
	return s
}

// RedactingLogger is a drop-in replacement for Logger that masks personal
// data and sensitive headers before anything reaches the log sink. Chat
// deployments log queries and paths that may embed user-supplied text, so
// the access log must never carry raw emails or phone numbers.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := make(map[string]bool, len(opts.MaskHeaders))
	for _, h := range opts.MaskHeaders {
		masked[h] = true
	}

	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		path := c.FullPath()
		if path == "" {
			path = Redact(c.Request.URL.Path)
		}

		hdr := make(map[string]string, len(masked))
		for h := range masked {
			if v := c.GetHeader(h); v != "" {
				hdr[h] = "[redacted]"
			}
		}

		l := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", Redact(c.Request.UserAgent())).
			Str("query", Redact(truncate(c.Request.URL.RawQuery, maxQueryLogLength))).
			Interface("masked_headers", hdr).
			Int64("bytes_in", c.Request.ContentLength).
			Logger()

		c.Set("logger", &l)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		ev := l.With().
			Int("status", status).
			Dur("latency", latency).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		switch {
		case len(c.Errors) > 0:
			ev.Error().Str("errors", Redact(c.Errors.String())).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}
