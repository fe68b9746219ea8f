package middleware

import "github.com/gin-gonic/gin"

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS adds Strict-Transport-Security on HTTPS requests.
	EnableHSTS bool
	// HSTSMaxAge is the max-age in seconds; defaults to one year when zero.
	HSTSMaxAge int
	// NoStore adds Cache-Control: no-store. Chat responses carry user
	// content, so the API defaults this on.
	NoStore bool
	// EnablePolicy adds a restrictive Content-Security-Policy suitable for a
	// JSON/SSE API that serves no HTML.
	EnablePolicy bool
}

// DefaultSecurityOptions returns the settings used by the API server.
func DefaultSecurityOptions() SecurityOptions {
	return SecurityOptions{
		EnableHSTS:   true,
		NoStore:      true,
		EnablePolicy: true,
	}
}

// SecurityHeaders sets standard hardening headers on every response.
func SecurityHeaders(opts SecurityOptions) gin.HandlerFunc {
	maxAge := opts.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 31536000
	}
	hsts := "max-age=" + itoa(maxAge) + "; includeSubDomains"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		if opts.NoStore {
			h.Set("Cache-Control", "no-store")
		}
		if opts.EnablePolicy {
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		}
		if opts.EnableHSTS && isHTTPS(c) {
			h.Set("Strict-Transport-Security", hsts)
		}
		c.Next()
	}
}

// isHTTPS reports whether the request arrived over TLS, directly or via a
// trusted proxy header.
func isHTTPS(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return c.GetHeader("X-Forwarded-Proto") == "https"
}

// itoa formats a small non-negative integer.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
