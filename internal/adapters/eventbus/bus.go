package eventbus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
	"github.com/ZanzyTHEbar/maestro/internal/ports"
)

// AllTopics subscribes to every topic.
const AllTopics = "*"

const defaultBufferSize = 10

// ErrStopped is returned when subscribing to a stopped bus.
var ErrStopped = errors.New("eventbus is stopped")

// Subscriber is a channel that receives events for a specific topic.
// Use a buffered channel to avoid blocking the publisher.
type Subscriber chan domain.Event

// EventBus defines the interface for publishing and subscribing to events.
type EventBus interface {
	ports.Notifier
	Subscribe(topic string, bufferSize int) (Subscriber, error)
	Unsubscribe(topic string, sub Subscriber) error
	Stop()
}

var _ EventBus = (*SimpleEventBus)(nil)

// SimpleEventBus is a basic in-memory event bus implementation using channels.
type SimpleEventBus struct {
	subscribers map[string]map[Subscriber]bool // Map topic to a Set of subscriber channels for faster unsubscribe
	mu          sync.RWMutex                   // Protects subscribers map
	stopChan    chan struct{}                  // To signal shutdown
	isStopped   bool
	bufferSize  int
	dropped     int
	logger      zerolog.Logger
}

// NewSimpleEventBus creates a new SimpleEventBus.
func NewSimpleEventBus(logger zerolog.Logger) *SimpleEventBus {
	return &SimpleEventBus{
		subscribers: make(map[string]map[Subscriber]bool),
		stopChan:    make(chan struct{}),
		bufferSize:  defaultBufferSize,
		logger:      logger,
	}
}

// WithDefaultBufferSize sets the buffer used when Subscribe is given a
// non-positive size.
func (b *SimpleEventBus) WithDefaultBufferSize(n int) *SimpleEventBus {
	if n > 0 {
		b.bufferSize = n
	}
	return b
}

// Publish sends an event to all subscribers of the event's topic and to
// wildcard subscribers. Uses non-blocking sends to prevent slow
// subscribers from blocking the bus.
func (b *SimpleEventBus) Publish(event domain.Event) {
	b.mu.RLock()
	if b.isStopped {
		b.mu.RUnlock()
		b.logger.Debug().Str("topic", event.Topic).Msg("EventBus stopped, ignoring publish")
		return
	}

	subsList := make([]Subscriber, 0, len(b.subscribers[event.Topic])+len(b.subscribers[AllTopics]))
	for sub := range b.subscribers[event.Topic] {
		subsList = append(subsList, sub)
	}
	if event.Topic != AllTopics {
		for sub := range b.subscribers[AllTopics] {
			subsList = append(subsList, sub)
		}
	}
	b.mu.RUnlock()

	if len(subsList) == 0 {
		return
	}

	for _, sub := range subsList {
		select {
		case sub <- event:
		case <-b.stopChan:
			return
		default:
			// Subscriber channel buffer is full. Drop the event for this subscriber.
			b.mu.Lock()
			b.dropped++
			b.mu.Unlock()
			b.logger.Warn().Str("topic", event.Topic).Msg("EventBus subscriber buffer full, event dropped")
		}
	}
}

// Subscribe creates a new subscriber channel for a given topic.
// bufferSize determines the capacity of the subscriber channel.
func (b *SimpleEventBus) Subscribe(topic string, bufferSize int) (Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isStopped {
		return nil, ErrStopped
	}
	if bufferSize <= 0 {
		bufferSize = b.bufferSize
	}

	sub := make(Subscriber, bufferSize)
	if _, found := b.subscribers[topic]; !found {
		b.subscribers[topic] = make(map[Subscriber]bool)
	}
	b.subscribers[topic][sub] = true
	return sub, nil
}

// Unsubscribe removes a subscriber channel from a topic.
// It's the subscriber's responsibility to close their channel.
func (b *SimpleEventBus) Unsubscribe(topic string, sub Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	subsMap, found := b.subscribers[topic]
	if !found {
		return fmt.Errorf("topic %s not found", topic)
	}
	if _, exists := subsMap[sub]; !exists {
		return fmt.Errorf("subscriber not found for topic %s", topic)
	}
	delete(subsMap, sub)
	if len(subsMap) == 0 {
		delete(b.subscribers, topic)
	}
	return nil
}

// Dropped returns how many deliveries were dropped on full buffers.
func (b *SimpleEventBus) Dropped() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Stop signals the event bus to stop publishing and cleans up resources.
func (b *SimpleEventBus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isStopped {
		return
	}
	close(b.stopChan)
	b.isStopped = true
	b.subscribers = make(map[string]map[Subscriber]bool)
	b.logger.Debug().Msg("SimpleEventBus stopped")
}
