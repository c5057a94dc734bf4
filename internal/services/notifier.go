package services

import (
	"context"

	"fretus-backend/internal/models"
)

// Notifier receives events after the transaction that produced them committed.
// Implementations must not block the caller for long and report their own failures.
type Notifier interface {
	Notify(ctx context.Context, event models.Event)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, models.Event) {}

// MultiNotifier fans an event out to every notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, event models.Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event models.Event)

func (f NotifierFunc) Notify(ctx context.Context, event models.Event) {
	f(ctx, event)
}
