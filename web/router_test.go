package web

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pictodon/pictodon/activitypub"
)

func TestNewRouterServesAndStops(t *testing.T) {
	gin.SetMode(gin.TestMode)

	deps := &activitypub.Deps{Conf: testConf("example.com")}
	g, cleanup := NewRouter(deps)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest("GET", "/.well-known/nodeinfo", nil))
	if w.Code != 200 {
		t.Errorf("Expected 200 from nodeinfo discovery, got: %d", w.Code)
	}

	// Calling cleanup twice must not panic
	cleanup()
	cleanup()
}
