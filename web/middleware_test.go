package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 2)
	defer rl.Stop()

	// Burst of 2 passes, third request is rejected
	if !rl.Allow("10.0.0.1") {
		t.Error("First request should be allowed")
	}
	if !rl.Allow("10.0.0.1") {
		t.Error("Second request should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("Third request should be rejected")
	}

	// Other clients have their own bucket
	if !rl.Allow("10.0.0.2") {
		t.Error("Different IP should be allowed")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(rate.Limit(1), 1)
	defer rl.Stop()

	g := gin.New()
	g.Use(RateLimitMiddleware(rl))
	g.GET("/", func(c *gin.Context) { c.Status(200) })

	first := httptest.NewRecorder()
	g.ServeHTTP(first, httptest.NewRequest("GET", "/", nil))
	if first.Code != 200 {
		t.Errorf("Expected 200, got: %d", first.Code)
	}

	second := httptest.NewRecorder()
	g.ServeHTTP(second, httptest.NewRequest("GET", "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got: %d", second.Code)
	}
}

func TestMaxBytesMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	g := gin.New()
	g.Use(MaxBytesMiddleware(16))
	g.POST("/", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(200)
	})

	small := httptest.NewRecorder()
	g.ServeHTTP(small, httptest.NewRequest("POST", "/", bytes.NewReader(make([]byte, 8))))
	if small.Code != 200 {
		t.Errorf("Expected 200 for small body, got: %d", small.Code)
	}

	large := httptest.NewRecorder()
	g.ServeHTTP(large, httptest.NewRequest("POST", "/", bytes.NewReader(make([]byte, 64))))
	if large.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413 for oversized body, got: %d", large.Code)
	}
}
