package worker

import (
	"context"
	"log"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

// Handler runs one saga step for one inbound message.
type Handler interface {
	Handle(ctx context.Context, payload []byte) error
}

type HandlerFunc func(ctx context.Context, payload []byte) error

func (f HandlerFunc) Handle(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}

// Dispatcher routes inbound messages to handlers by exact topic. Each
// message runs on its own goroutine; Dispatch never waits for it.
type Dispatcher struct {
	routes         map[string]Handler
	handlerTimeout time.Duration
	wg             sync.WaitGroup
}

func NewDispatcher(handlerTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		routes:         make(map[string]Handler),
		handlerTimeout: handlerTimeout,
	}
}

// Route registers h for topic. Routes must be registered before the first
// Dispatch.
func (d *Dispatcher) Route(topic string, h Handler) {
	d.routes[topic] = h
}

func (d *Dispatcher) Topics() []string {
	topics := make([]string, 0, len(d.routes))
	for topic := range d.routes {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// Dispatch starts the handler for topic and reports whether one was found.
// Messages from unknown topics are logged and dropped.
func (d *Dispatcher) Dispatch(topic string, payload []byte) bool {
	h, ok := d.routes[topic]
	if !ok {
		log.Printf("Dispatcher: dropping message from unknown topic %s: %s", topic, payload)
		return false
	}

	d.wg.Add(1)
	go d.run(topic, h, payload)
	return true
}

// Wait blocks until every dispatched handler has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(topic string, h Handler, payload []byte) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Dispatcher: %s handler panicked: %v\n%s", topic, r, debug.Stack())
		}
	}()

	// Accepted commands are never cancelled, not even on shutdown
	ctx := context.Background()
	if d.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.handlerTimeout)
		defer cancel()
	}

	if err := h.Handle(ctx, payload); err != nil {
		log.Printf("Dispatcher: %s handler: %v", topic, err)
	}
}
