package web

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/google/uuid"
	"github.com/pictodon/pictodon/activitypub"
	"github.com/pictodon/pictodon/db"
	"github.com/pictodon/pictodon/util"
	"golang.org/x/time/rate"
)

const contentTypeActivityJSON = "application/activity+json; charset=utf-8"

// NewRouter builds the gin engine serving the federation surface: inboxes,
// actor documents, collections, webfinger, nodeinfo and RSS.
// The returned cleanup func stops the rate limiter eviction goroutines
// and must be called when the server shuts down.
func NewRouter(deps *activitypub.Deps) (*gin.Engine, func()) {
	conf := deps.Conf

	// Same log writer as the rest of the application
	gin.DefaultWriter = util.GetLogWriter()
	gin.DefaultErrorWriter = util.GetLogWriter()

	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	// RSS feeds
	g.GET("/feed", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")

		username := c.Query("username")
		rss, err := GetRSS(conf, username)
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rss})
		}
	})

	g.GET("/feed/:id", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")

		statusId, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.Render(404, render.String{Format: ""})
			return
		}

		rssItem, err := GetRSSItem(conf, statusId)
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rssItem})
		}
	})

	// Stricter rate limit for federation endpoints: 5 req/sec per IP
	apLimiter := NewRateLimiter(rate.Limit(5), 10)

	// Max 1MB request body size for inbound activities
	maxBody := MaxBytesMiddleware(1 * 1024 * 1024)

	g.GET("/statuses/:id", func(c *gin.Context) {
		c.Header("Content-Type", contentTypeActivityJSON)

		statusId, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(404, gin.H{"error": "Invalid status ID"})
			return
		}

		err, note := GetStatusObject(statusId, conf)
		if err != nil {
			c.JSON(404, gin.H{"error": "Status not found"})
		} else {
			c.Render(200, render.String{Format: note})
		}
	})

	g.GET("/users/:actor", func(c *gin.Context) {
		c.Header("Content-Type", contentTypeActivityJSON)

		err, actor := GetActor(c.Param("actor"), conf)
		if err != nil {
			c.Render(404, render.String{Format: actor})
		} else {
			c.Render(200, render.String{Format: actor})
		}
	})

	g.POST("/inbox", RateLimitMiddleware(apLimiter), maxBody, func(c *gin.Context) {
		log.Println("POST /inbox (shared inbox)")
		body, err := c.GetRawData()
		if err != nil {
			log.Printf("Shared inbox: Failed to read body: %v", err)
			c.Status(400)
			return
		}

		username, err := activitypub.ResolveSharedInboxTarget(body, deps)
		if err != nil {
			// Accept anyway, nothing here concerns us
			log.Printf("Shared inbox: %v", err)
			c.Status(202)
			return
		}

		log.Printf("Shared inbox: Routing to user %s", username)
		req := c.Request.Clone(c.Request.Context())
		req.Body = io.NopCloser(bytes.NewReader(body))
		activitypub.HandleInbox(c.Writer, req, username, deps)
	})

	g.POST("/users/:actor/inbox", RateLimitMiddleware(apLimiter), maxBody, func(c *gin.Context) {
		actor := c.Param("actor")
		log.Printf("POST /users/%s/inbox", actor)
		activitypub.HandleInbox(c.Writer, c.Request, actor, deps)
	})

	g.GET("/users/:actor/outbox", func(c *gin.Context) {
		actor := c.Param("actor")
		page := ParsePageParam(c.Query("page"))

		log.Printf("GET /users/%s/outbox (page=%d)", actor, page)

		c.Header("Content-Type", contentTypeActivityJSON)
		err, outboxDoc := GetOutbox(actor, page, conf)
		if err != nil {
			c.Render(404, render.String{Format: "{}"})
			return
		}
		c.Render(200, render.String{Format: outboxDoc})
	})

	g.GET("/users/:actor/followers", func(c *gin.Context) {
		handleFollowCollection(c, conf, true)
	})

	g.GET("/users/:actor/following", func(c *gin.Context) {
		handleFollowCollection(c, conf, false)
	})

	g.GET("/.well-known/webfinger", func(c *gin.Context) {
		c.Header("Content-Type", "application/jrd+json; charset=utf-8")

		resource := c.Query("resource")
		if resource == "" || !strings.HasPrefix(resource, "acct:") {
			c.Render(404, render.String{Format: GetWebFingerNotFound()})
			return
		}
		resource = strings.TrimPrefix(resource, "acct:")
		resource = strings.TrimSuffix(resource, fmt.Sprintf("@%s", conf.Conf.Domain))

		err, resp := GetWebfinger(resource, conf)
		if err != nil {
			c.Render(404, render.String{Format: GetWebFingerNotFound()})
		} else {
			c.Render(200, render.String{Format: resp})
		}
	})

	// NodeInfo endpoints for server discovery and statistics
	g.GET("/.well-known/nodeinfo", func(c *gin.Context) {
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Render(200, render.String{Format: GetWellKnownNodeInfo(conf)})
	})

	g.GET("/nodeinfo/2.0", func(c *gin.Context) {
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Render(200, render.String{Format: GetNodeInfo20(conf)})
	})

	cleanup := func() {
		globalLimiter.Stop()
		apLimiter.Stop()
	}
	return g, cleanup
}

func handleFollowCollection(c *gin.Context, conf *util.AppConfig, wantFollowers bool) {
	actor := c.Param("actor")
	page := ParsePageParam(c.Query("page"))
	c.Header("Content-Type", contentTypeActivityJSON)

	err, account := db.GetDB().ReadAccByUsername(actor)
	if err != nil {
		log.Printf("Failed to get account %s: %v", actor, err)
		c.Render(404, render.String{Format: "{}"})
		return
	}

	var uris []string
	var doc string
	if wantFollowers {
		uris = CollectFollowerURIs(account.Id, conf)
		if page > 0 {
			doc = GetFollowersPage(actor, conf, uris, page)
		} else {
			doc = GetFollowersCollection(actor, conf, uris)
		}
	} else {
		uris = CollectFollowingURIs(account.Id, conf)
		if page > 0 {
			doc = GetFollowingPage(actor, conf, uris, page)
		} else {
			doc = GetFollowingCollection(actor, conf, uris)
		}
	}

	log.Printf("Returning %d entries for %s (followers=%t)", len(uris), actor, wantFollowers)
	c.Render(200, render.String{Format: doc})
}
