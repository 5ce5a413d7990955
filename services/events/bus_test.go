package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPublishRunsHandlersInOrder(t *testing.T) {
	bus := New()
	var calls []string

	bus.Subscribe(OrderPaidEvent, func(_ *gorm.DB, e Event) error {
		calls = append(calls, "first:"+e.Name())
		return nil
	})
	bus.Subscribe(OrderPaidEvent, func(_ *gorm.DB, e Event) error {
		paid := e.(OrderPaid)
		assert.Equal(t, uint(9), paid.OrderID)
		calls = append(calls, "second")
		return nil
	})

	require.NoError(t, bus.Publish(nil, OrderPaid{OrderID: 9}))
	assert.Equal(t, []string{"first:order.paid", "second"}, calls)
}

func TestPublishStopsAtFirstError(t *testing.T) {
	bus := New()
	ran := false

	bus.Subscribe(ExamResponseGradedEvent, func(*gorm.DB, Event) error {
		return errors.New("render failed")
	})
	bus.Subscribe(ExamResponseGradedEvent, func(*gorm.DB, Event) error {
		ran = true
		return nil
	})

	err := bus.Publish(nil, ExamResponseGraded{ResponseID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render failed")
	assert.Contains(t, err.Error(), ExamResponseGradedEvent)
	assert.False(t, ran)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	assert.NoError(t, New().Publish(nil, OrderPaid{}))
}
