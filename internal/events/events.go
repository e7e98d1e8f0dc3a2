// Package events is the in-process bus the history and notification
// collaborators subscribe to.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	LessonRescheduled      = "lesson.rescheduled"
	LessonRescheduleFailed = "lesson.reschedule_failed"
	WorkplanBulkCreated    = "workplan.bulk_created"
)

// Event is a published domain event.
type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// RescheduledPayload accompanies LessonRescheduled and LessonRescheduleFailed.
type RescheduledPayload struct {
	LessonID string `json:"lesson_id"`
	ClassID  string `json:"class_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Period   *int   `json:"period"`
	Error    string `json:"error,omitempty"`
}

// BulkCreatedPayload accompanies WorkplanBulkCreated.
type BulkCreatedPayload struct {
	ClassID string `json:"class_id"`
	Title   string `json:"title"`
	Count   int    `json:"count"`
	First   string `json:"first"`
	Last    string `json:"last"`
}

// Handler reacts to an event.
type Handler func(event Event) error

// Publisher is the side of the bus producers depend on.
type Publisher interface {
	Publish(event Event)
}

// Bus provides in-process pub/sub.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for eventType.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handlers run synchronously
// and their errors are dropped.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// New builds an event with a JSON payload.
func New(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: data}, nil
}
