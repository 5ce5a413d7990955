// Package events dispatches domain events to handlers registered at startup.
//
// Publishing is synchronous. Handlers receive the *gorm.DB passed to Publish, so an event
// published inside a transaction is handled inside that transaction and a handler error
// rolls the whole transaction back.
package events

import (
	"sync"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	OrderPaidEvent          = "order.paid"
	ExamResponseGradedEvent = "exam_response.graded"
)

type Event interface {
	Name() string
}

// OrderPaid is published once when an order moves from pending to paid.
type OrderPaid struct {
	OrderID  uint
	UserID   uint
	CourseID uint
}

func (OrderPaid) Name() string { return OrderPaidEvent }

// ExamResponseGraded is published after a response is committed with status graded.
type ExamResponseGraded struct {
	ResponseID uint
}

func (ExamResponseGraded) Name() string { return ExamResponseGradedEvent }

type Handler func(db *gorm.DB, event Event) error

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func New() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Default is the bus wired in main.
var Default = New()

func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Publish runs every handler of every event in order and stops at the first error.
func (b *Bus) Publish(db *gorm.DB, evts ...Event) error {
	for _, evt := range evts {
		b.mu.RLock()
		handlers := append([]Handler(nil), b.handlers[evt.Name()]...)
		b.mu.RUnlock()

		for _, handle := range handlers {
			if err := handle(db, evt); err != nil {
				return errors.Wrapf(err, "handling %s", evt.Name())
			}
		}
	}
	return nil
}
