package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// clientIDKey is the Gin context key holding the resolved client identity.
	clientIDKey = "clientID"
	// clientIDHeader lets embedding frontends pin a stable identity across
	// page loads; widget clients send a locally generated UUID.
	clientIDHeader = "X-Client-ID"
	// userIDHeader identifies the owner on admin routes.
	userIDHeader = "X-User-ID"
	// maxClientIDLength bounds header-supplied identities.
	maxClientIDLength = 128
)

// ClientIdentity resolves who the caller is for rate-limiting purposes and
// stores it in the Gin context. A well-formed X-Client-ID header wins;
// otherwise the remote IP is used, so anonymous visitors still get a
// per-origin budget rather than a shared one.
func ClientIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sanitizeClientID(c.GetHeader(clientIDHeader))
		if id == "" {
			id = c.ClientIP()
		}
		c.Set(clientIDKey, id)
		c.Next()
	}
}

// ClientIDFrom returns the identity stored by ClientIdentity, or "".
func ClientIDFrom(c *gin.Context) string {
	v, _ := c.Get(clientIDKey)
	return asString(v)
}

// UserIdentity stores the X-User-ID header under "userID" for admin routes.
// Authentication itself is terminated upstream; the API only needs the
// subject for ownership scoping.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(userIDHeader)); uid != "" {
			c.Set("userID", uid)
		}
		c.Next()
	}
}

// UserIDFrom returns the subject stored by UserIdentity, or "".
func UserIDFrom(c *gin.Context) string {
	v, _ := c.Get("userID")
	return asString(v)
}

// sanitizeClientID rejects header values that are empty, oversized, or carry
// characters that would pollute logs or cache keys.
func sanitizeClientID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxClientIDLength {
		return ""
	}
	for _, r := range s {
		ok := r == '-' || r == '_' || r == '.' || r == ':' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !ok {
			return ""
		}
	}
	return s
}
