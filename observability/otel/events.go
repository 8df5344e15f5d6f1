package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"hashmelody/core/events"
)

const instrumentationName = "hashmelody/ledger"

// EventMeter counts committed ledger events through the global meter
// provider. It is registered as an event subscriber.
type EventMeter struct {
	counter metric.Int64Counter
}

// NewEventMeter creates the counter on the current global meter provider, so
// it must be built after Init.
func NewEventMeter() (*EventMeter, error) {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"hashmelody.ledger.events",
		metric.WithDescription("Committed ledger events by type."),
	)
	if err != nil {
		return nil, err
	}
	return &EventMeter{counter: counter}, nil
}

// Emit implements events.Emitter.
func (m *EventMeter) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	m.counter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", evt.EventType())))
}
