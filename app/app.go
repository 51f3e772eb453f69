package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pictodon/pictodon/activitypub"
	"github.com/pictodon/pictodon/db"
	"github.com/pictodon/pictodon/queue"
	"github.com/pictodon/pictodon/util"
	"github.com/pictodon/pictodon/web"
)

// App ties together the database, the job queue and the HTTP server.
type App struct {
	config        *util.AppConfig
	queue         queue.Queue
	httpServer    *http.Server
	routerCleanup func()
	done          chan os.Signal
}

// New creates a new App instance with the given configuration
func New(conf *util.AppConfig) (*App, error) {
	return &App{
		config: conf,
		done:   make(chan os.Signal, 1),
	}, nil
}

// Initialize opens the database, builds the queue and wires the workers
// and the HTTP router.
func (a *App) Initialize() error {
	// Opening the database also runs migrations
	database := db.GetDB()

	switch a.config.Conf.QueueDriver {
	case "echo":
		log.Println("Using echo queue driver (jobs are logged, not run)")
		a.queue = queue.NewEchoQueue()
	default:
		a.queue = queue.NewSQLiteQueue(database)
	}

	deps := activitypub.NewDeps(activitypub.NewDBWrapper(), a.queue, a.config)
	activitypub.RegisterWorkers(a.queue, deps)

	router, routerCleanup := web.NewRouter(deps)
	a.routerCleanup = routerCleanup
	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.config.Conf.Host, a.config.Conf.HttpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return nil
}

// Start starts the queue and the HTTP server and blocks until a shutdown
// signal is received.
func (a *App) Start() error {
	a.queue.Start()

	signal.Notify(a.done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Starting HTTP server on %s:%d", a.config.Conf.Host, a.config.Conf.HttpPort)
	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-a.done
	log.Println("Shutdown signal received")

	return a.Shutdown()
}

// Shutdown gracefully stops the HTTP server and the queue with a 30
// second timeout.
func (a *App) Shutdown() error {
	log.Println("Initiating graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var shutdownErr error

	// Stop accepting new requests first
	log.Println("Stopping HTTP server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		shutdownErr = err
	} else {
		log.Println("HTTP server stopped gracefully")
	}

	// Let in-flight jobs finish
	log.Println("Stopping job queue...")
	a.queue.Stop()
	log.Println("Job queue stopped")

	if a.routerCleanup != nil {
		a.routerCleanup()
	}

	return shutdownErr
}
