// Package events provides a lightweight in-process event bus used to
// decouple broker state mutation from observers such as notifiers.
package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system.
type EventType string

const (
	EventTradeFilled     EventType = "TRADE_FILLED"
	EventBracketPlaced   EventType = "BRACKET_PLACED"
	EventOrderRejected   EventType = "ORDER_REJECTED"
	EventSignalGenerated EventType = "SIGNAL_GENERATED"
	EventTradingToggled  EventType = "TRADING_TOGGLED"
)

// Event represents a system event.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]interface{}
}

// Subscriber is a function that handles events.
type Subscriber func(Event)

// Bus manages event publishing and subscriptions. Subscribers run on
// their own goroutines so a slow observer can never stall a publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe registers a subscriber for a specific event type.
func (b *Bus) Subscribe(eventType EventType, subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events.
func (b *Bus) SubscribeAll(subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allSubs = append(b.allSubs, subscriber)
}

// Publish sends an event to all matching subscribers.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, sub := range b.subscribers[event.Type] {
		go sub(event)
	}
	for _, sub := range b.allSubs {
		go sub(event)
	}
}

// PublishTradeFilled publishes a fill event.
func (b *Bus) PublishTradeFilled(symbol, side, kind string, size, price float64) {
	b.Publish(Event{
		Type: EventTradeFilled,
		Data: map[string]interface{}{
			"symbol": symbol,
			"side":   side,
			"type":   kind,
			"size":   size,
			"price":  price,
		},
	})
}

// PublishBracketPlaced publishes a bracket registration event.
func (b *Bus) PublishBracketPlaced(symbol, side string, size, stopLoss, takeProfit float64) {
	b.Publish(Event{
		Type: EventBracketPlaced,
		Data: map[string]interface{}{
			"symbol":      symbol,
			"side":        side,
			"size":        size,
			"stop_loss":   stopLoss,
			"take_profit": takeProfit,
		},
	})
}

// PublishOrderRejected publishes a risk rejection event.
func (b *Bus) PublishOrderRejected(symbol, side, reason string, size float64) {
	b.Publish(Event{
		Type: EventOrderRejected,
		Data: map[string]interface{}{
			"symbol": symbol,
			"side":   side,
			"reason": reason,
			"size":   size,
		},
	})
}
