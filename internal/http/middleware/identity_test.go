package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestClientIdentity_HeaderWinsOverIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ClientIdentity())
	var got string
	r.GET("/", func(c *gin.Context) {
		got = ClientIDFrom(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("198.51.100.7", "9999")
	req.Header.Set(clientIDHeader, "widget-abc.1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got != "widget-abc.1" {
		t.Fatalf("client id = %q, want header value", got)
	}
}

func TestClientIdentity_FallsBackToIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ClientIdentity())
	var got string
	r.GET("/", func(c *gin.Context) {
		got = ClientIDFrom(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("198.51.100.7", "9999")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got != "198.51.100.7" {
		t.Fatalf("client id = %q, want remote ip", got)
	}
}

func TestSanitizeClientID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"widget-42", "widget-42"},
		{"  padded  ", "padded"},
		{"has spaces", ""},
		{"semi;colon", ""},
		{strings.Repeat("a", maxClientIDLength+1), ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := sanitizeClientID(tc.in); got != tc.want {
			t.Errorf("sanitizeClientID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUserIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(UserIdentity())
	var got string
	r.GET("/", func(c *gin.Context) {
		got = UserIDFrom(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(userIDHeader, "owner-1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if got != "owner-1" {
		t.Fatalf("user id = %q, want owner-1", got)
	}
}
