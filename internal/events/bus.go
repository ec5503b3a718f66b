// Package events is the in-process pub/sub bus carrying batch progress to
// the streaming endpoints. Subscribers that fall behind lose events rather
// than blocking publishers.
package events

import (
	"sync"
	"time"
)

// Event types published by the batch orchestrator.
const (
	TypeBatchStarted   = "batch_started"
	TypeAssetCompleted = "asset_completed"
	TypeAssetFailed    = "asset_failed"
	TypeBatchFinished  = "batch_finished"
)

// Event is one bus message.
type Event struct {
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// BatchStarted announces a batch fan-out.
type BatchStarted struct {
	BatchID string `json:"batch_id"`
	Assets  int    `json:"assets"`
	Workers int    `json:"workers"`
}

// AssetProgress reports one finished asset slot.
type AssetProgress struct {
	BatchID   string `json:"batch_id"`
	AssetID   string `json:"asset_id"`
	Index     int    `json:"index"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
}

// BatchFinished closes out a batch.
type BatchFinished struct {
	BatchID    string  `json:"batch_id"`
	Successful int     `json:"successful"`
	Failed     int     `json:"failed"`
	DurationMS float64 `json:"duration_ms"`
}

const subscriberBuffer = 64

// Bus fans events out to subscribers. The zero value is not usable; call
// NewBus.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Publish delivers an event to every subscriber. Full subscriber buffers
// drop the event for that subscriber.
func (b *Bus) Publish(eventType string, payload any) {
	ev := Event{Type: eventType, At: time.Now().UTC(), Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a listener. The returned cancel function must be
// called to release the subscription.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Subscribers reports the current listener count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
