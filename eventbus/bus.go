package eventbus

import (
	"fmt"
	"sync"

	"github.com/mit-dci/litnode/logging"
)

type handler struct {
	fn  HandlerFunc
	mtx sync.Mutex // a handler never runs concurrently with itself
}

// topic holds the handlers for one event name.  Publishes of the same name
// are serialized on publishMtx.
type topic struct {
	publishMtx sync.Mutex
	handlers   []*handler
}

// An EventBus takes events and forwards them to event handlers matched by
// name.
type EventBus struct {
	log *logging.Logger

	mtx    sync.Mutex
	topics map[string]*topic

	// outstanding async handler calls
	async sync.WaitGroup
}

func NewEventBus(log *logging.Logger) *EventBus {
	return &EventBus{
		log:    log,
		topics: make(map[string]*topic),
	}
}

// RegisterHandler adds fn to the handlers of eventName.  Handlers are called
// in the order they were registered.
func (b *EventBus) RegisterHandler(eventName string, fn HandlerFunc) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	t, ok := b.topics[eventName]
	if !ok {
		t = &topic{}
		b.topics[eventName] = t
	}
	t.handlers = append(t.handlers, &handler{fn: fn})
	b.log.Debugf("registered handler for %s", eventName)
}

func (b *EventBus) CountHandlers(eventName string) int {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if t, ok := b.topics[eventName]; ok {
		return len(t.handlers)
	}
	return 0
}

// snapshot returns the topic for name and a copy of its handler list, so
// handlers registered while publishing don't see a half built event.
func (b *EventBus) snapshot(name string) (*topic, []*handler) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	t, ok := b.topics[name]
	if !ok {
		return nil, nil
	}
	return t, append([]*handler(nil), t.handlers...)
}

// Publish sends an event to its handlers.  It returns false if a handler
// cancelled the event.
func (b *EventBus) Publish(event Event) (bool, error) {
	f := event.Flags()
	if f.async() && f.cancellable() {
		return true, fmt.Errorf("event %s is async but cancellable, use Async instead of the raw bit", event.Name())
	}

	name := event.Name()
	t, hs := b.snapshot(name)
	if t == nil {
		return true, nil
	}
	b.log.Debugf("published event %s to %d handlers", name, len(hs))

	t.publishMtx.Lock()
	defer t.publishMtx.Unlock()

	ok := true
	for _, h := range hs {
		if f.async() {
			// results of async handlers are ignored
			b.async.Add(1)
			go func(h *handler) {
				defer b.async.Done()
				b.call(h, event)
			}(h)
			continue
		}

		res, err := b.call(h, event)
		if err != nil {
			b.log.Warnf("error in event handler for %s: %s", name, err.Error())
		}
		if res == Cancel && f.cancellable() {
			ok = false
		}
	}
	return ok, nil
}

// PublishNonblocking hands an async event to its handlers and returns at
// once.
func (b *EventBus) PublishNonblocking(event Event) error {
	if !event.Flags().async() {
		return fmt.Errorf("event %s is not async", event.Name())
	}
	b.async.Add(1)
	go func() {
		defer b.async.Done()
		if _, err := b.Publish(event); err != nil {
			b.log.Warnf("publish %s: %s", event.Name(), err.Error())
		}
	}()
	return nil
}

// Wait blocks until all async handler calls returned.
func (b *EventBus) Wait() {
	b.async.Wait()
}

// call runs one handler.  A panicking handler is reported as an error and
// doesn't cancel the event.
func (b *EventBus) call(h *handler, event Event) (res Result, err error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	defer func() {
		if r := recover(); r != nil {
			res = Continue
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.fn(event), nil
}
