package queue

import (
	"encoding/json"
	"log"
)

// EchoQueue logs every enqueued job and drops it. It is the driver for
// single-user instances that do not federate and for local development.
type EchoQueue struct{}

func NewEchoQueue() *EchoQueue {
	return &EchoQueue{}
}

func (q *EchoQueue) Enqueue(kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	log.Printf("queue(echo): %s %s", kind, data)
	return nil
}

func (q *EchoQueue) Register(kind string, handler HandlerFunc) {}

func (q *EchoQueue) OnError(fn ErrorFunc) {}

func (q *EchoQueue) Start() {}

func (q *EchoQueue) Stop() {}
