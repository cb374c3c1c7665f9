package events

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var ErrBusClosed = errors.New("event bus is closed")

type Subscription struct {
	C      chan Event
	topics map[Topic]struct{}
	bus    *Bus
}

// Matches reports whether the subscription listens on topic. An empty topic
// set subscribes to everything.
func (s *Subscription) Matches(topic Topic) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

// Bus is the in-process publish/subscribe fabric. Publish never blocks: a
// subscriber whose channel is full loses the event and a warning is logged,
// so one stuck consumer cannot stall the engines.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[*Subscription]struct{}
	bufferSize  int
	closed      bool
}

func NewBus(bufferSize int) *Bus {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &Bus{
		subscribers: make(map[*Subscription]struct{}),
		bufferSize:  bufferSize,
	}
}

func (b *Bus) Subscribe(topics ...Topic) *Subscription {
	sub := &Subscription{
		C:      make(chan Event, b.bufferSize),
		topics: make(map[Topic]struct{}, len(topics)),
		bus:    b,
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.C)
		return sub
	}
	b.subscribers[sub] = struct{}{}
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		close(sub.C)
	}
}

func (b *Bus) Publish(event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	var errs *multierror.Error
	for sub := range b.subscribers {
		if !sub.Matches(event.Topic) {
			continue
		}
		select {
		case sub.C <- event:
		default:
			log.Warnf("event bus: dropping %s event for a slow subscriber", event.Topic)
			errs = multierror.Append(errs, errors.Errorf("subscriber buffer full for topic %s", event.Topic))
		}
	}
	return errs.ErrorOrNil()
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for sub := range b.subscribers {
		close(sub.C)
	}
	b.subscribers = make(map[*Subscription]struct{})
	return nil
}

// LogSubscriber drains a subscription into the application log. Wired in main
// as the default consumer.
func LogSubscriber(sub *Subscription) {
	go func() {
		for event := range sub.C {
			log.Printf("event %s from %s (correlation %s)", event.Topic, event.Source, event.CorrelationId)
		}
	}()
}
