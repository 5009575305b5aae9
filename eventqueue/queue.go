// Package eventqueue holds the node's user facing events.  The queue is
// written to the blob store on every change, so events survive a crash and
// are handed out again after a restart until the application confirms them.
package eventqueue

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
	"github.com/mit-dci/litnode/metrics"
)

// PersistenceKey is the blob store key of the serialised queue.
const PersistenceKey = "events"

// Queue is a FIFO of events with a single consumer.  The head stays in place
// until EventHandled is called, so repeated NextEvent calls return the same
// event.
type Queue struct {
	store lncore.BlobStore
	log   *logging.Logger

	mtx    sync.Mutex
	cond   *sync.Cond
	events []lncore.Event
}

// Load restores the queue from store.  A missing key gives an empty queue, an
// undecodable one is an error.
func Load(store lncore.BlobStore, log *logging.Logger) (*Queue, error) {
	q := &Queue{
		store: store,
		log:   log.With("eventqueue"),
	}
	q.cond = sync.NewCond(&q.mtx)

	b, ok, err := store.Read(PersistenceKey)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", lncore.ErrPersistenceFailed, PersistenceKey, err)
	}
	if ok && len(b) > 0 {
		q.events, err = decode(b)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", PersistenceKey, err)
		}
	}

	q.log.Debugf("restored %d events", len(q.events))
	metrics.SetEventQueueDepth(len(q.events))
	return q, nil
}

// Push appends ev.  The event is visible to the consumer only once it is
// durable; if the write fails the queue is left as it was.
func (q *Queue) Push(ev lncore.Event) error {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	q.events = append(q.events, ev)
	if err := q.persist(q.events); err != nil {
		q.events = q.events[:len(q.events)-1]
		return err
	}

	metrics.IncEventPushed(string(ev.Type()))
	metrics.SetEventQueueDepth(len(q.events))
	q.cond.Broadcast()
	return nil
}

// NextEvent returns the head of the queue, waiting for one to be pushed if
// the queue is empty.
func (q *Queue) NextEvent() lncore.Event {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	for len(q.events) == 0 {
		q.cond.Wait()
	}
	return q.events[0]
}

// TryNextEvent is NextEvent without the wait.
func (q *Queue) TryNextEvent() (lncore.Event, bool) {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if len(q.events) == 0 {
		return nil, false
	}
	return q.events[0], true
}

// EventHandled drops the head.  The shortened queue is written first; on a
// write error the head is kept and will be returned again.
func (q *Queue) EventHandled() error {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if len(q.events) == 0 {
		return nil
	}

	rest := q.events[1:]
	if err := q.persist(rest); err != nil {
		return err
	}
	q.events[0] = nil
	q.events = rest

	metrics.SetEventQueueDepth(len(q.events))
	return nil
}

func (q *Queue) Len() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return len(q.events)
}

// caller holds q.mtx
func (q *Queue) persist(events []lncore.Event) error {
	b, err := encode(events)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", lncore.ErrPersistenceFailed, err)
	}
	if err := q.store.Write(PersistenceKey, b); err != nil {
		q.log.Errorf("writing %d events: %s", len(events), err.Error())
		metrics.IncPersistFailure(PersistenceKey)
		return fmt.Errorf("%w: %v", lncore.ErrPersistenceFailed, err)
	}
	return nil
}

func encode(events []lncore.Event) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(events))
	for _, ev := range events {
		b, err := lncore.MarshalEvent(ev)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return json.Marshal(raw)
}

func decode(b []byte) ([]lncore.Event, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	events := make([]lncore.Event, 0, len(raw))
	for _, r := range raw {
		ev, err := lncore.UnmarshalEvent(r)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
