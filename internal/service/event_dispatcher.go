package service

import (
	"context"

	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/core/ports"
)

// EventDispatcher fans one published event out to an external sink and
// any in-process subscribers (the portfolio refresher). Sink errors
// propagate to the caller for logging; subscriber handlers run inline and
// absorb their own failures.
type EventDispatcher struct {
	sink        ports.EventPublisher
	subscribers []func(ctx context.Context, event domain.Event)
}

// NewEventDispatcher creates a dispatcher around an external sink. A nil
// sink means in-process delivery only.
func NewEventDispatcher(sink ports.EventPublisher) *EventDispatcher {
	return &EventDispatcher{sink: sink}
}

// Subscribe registers an in-process handler. Not safe to call after
// publishing starts; wire all subscribers during startup.
func (d *EventDispatcher) Subscribe(handler func(ctx context.Context, event domain.Event)) {
	d.subscribers = append(d.subscribers, handler)
}

// Publish delivers the event to subscribers, then the sink.
func (d *EventDispatcher) Publish(ctx context.Context, event domain.Event) error {
	for _, handler := range d.subscribers {
		handler(ctx, event)
	}
	if d.sink == nil {
		return nil
	}
	return d.sink.Publish(ctx, event)
}
