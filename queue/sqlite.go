package queue

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pictodon/pictodon/domain"
)

// Store is the persistence the sqlite queue runs on.
type Store interface {
	EnqueueJob(job *domain.Job) error
	ReadDueJobs(now time.Time, limit int) (error, *[]domain.Job)
	RescheduleJob(id uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error
	DeleteJob(id uuid.UUID) error
}

const (
	pollInterval = 5 * time.Second
	pollBatch    = 50
	jobTimeout   = 5 * time.Minute
)

// SQLiteQueue polls the jobs table and dispatches due jobs to registered
// handlers. Jobs survive restarts; a job is deleted only after its
// handler returns nil or fails terminally.
type SQLiteQueue struct {
	store    Store
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	onError  ErrorFunc
	stop     chan struct{}
	done     chan struct{}
	started  bool
}

func NewSQLiteQueue(store Store) *SQLiteQueue {
	return &SQLiteQueue{
		store:    store,
		handlers: make(map[string]HandlerFunc),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (q *SQLiteQueue) Enqueue(kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.store.EnqueueJob(&domain.Job{
		Id:            uuid.New(),
		Kind:          kind,
		Payload:       data,
		NextAttemptAt: time.Now(),
		CreatedAt:     time.Now(),
	})
}

func (q *SQLiteQueue) Register(kind string, handler HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = handler
}

func (q *SQLiteQueue) OnError(fn ErrorFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onError = fn
}

func (q *SQLiteQueue) Start() {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	go func() {
		defer close(q.done)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-q.stop:
				return
			case <-ticker.C:
				q.ProcessDue(time.Now())
			}
		}
	}()
}

func (q *SQLiteQueue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()
	close(q.stop)
	<-q.done
}

// ProcessDue runs one poll cycle. Exported so callers can drain the
// queue without waiting for the ticker.
func (q *SQLiteQueue) ProcessDue(now time.Time) {
	err, jobs := q.store.ReadDueJobs(now, pollBatch)
	if err != nil {
		log.Printf("queue: reading due jobs: %v", err)
		return
	}
	for i := range *jobs {
		q.runJob(&(*jobs)[i])
	}
}

func (q *SQLiteQueue) runJob(job *domain.Job) {
	q.mu.RLock()
	handler, ok := q.handlers[job.Kind]
	onError := q.onError
	q.mu.RUnlock()

	if !ok {
		log.Printf("queue: no handler for kind %s, dropping job %s", job.Kind, job.Id)
		if err := q.store.DeleteJob(job.Id); err != nil {
			log.Printf("queue: deleting job %s: %v", job.Id, err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	err := handler(ctx, job.Payload)
	if err == nil {
		if err := q.store.DeleteJob(job.Id); err != nil {
			log.Printf("queue: deleting job %s: %v", job.Id, err)
		}
		return
	}

	if onError != nil {
		onError(job.Kind, job.Payload, err)
	}

	attempts := job.Attempts + 1
	if IsTerminal(err) || attempts >= maxAttempts {
		log.Printf("queue: dropping job %s (%s) after %d attempts: %v", job.Id, job.Kind, attempts, err)
		if err := q.store.DeleteJob(job.Id); err != nil {
			log.Printf("queue: deleting job %s: %v", job.Id, err)
		}
		return
	}

	next := time.Now().Add(retryDelay(job.Attempts))
	if err := q.store.RescheduleJob(job.Id, attempts, next, err.Error()); err != nil {
		log.Printf("queue: rescheduling job %s: %v", job.Id, err)
	}
}
