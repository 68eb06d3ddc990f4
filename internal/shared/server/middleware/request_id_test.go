package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestIDKeepsInboundHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var fromGin, fromCtx string
	router := gin.New()
	router.Use(RequestID())
	router.GET("/x", func(c *gin.Context) {
		fromGin = RequestIDFromContext(c)
		fromCtx = RequestIDFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "edge-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if fromGin != "edge-123" || fromCtx != "edge-123" {
		t.Fatalf("expected inbound id on both contexts, got %q / %q", fromGin, fromCtx)
	}
	if got := resp.Header().Get("X-Request-Id"); got != "edge-123" {
		t.Fatalf("expected header echoed, got %q", got)
	}
}

func TestRequestIDReplacesUnsafeHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, inbound := range []string{"", "has space", strings.Repeat("a", maxRequestIDLen+1)} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if inbound != "" {
			req.Header.Set("X-Request-Id", inbound)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		got := resp.Header().Get("X-Request-Id")
		if _, err := uuid.Parse(got); err != nil {
			t.Fatalf("inbound %q: expected generated uuid, got %q", inbound, got)
		}
	}
}
