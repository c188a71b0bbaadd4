// Package events publishes domain events (ticket lifecycle, survey intake) to
// a RabbitMQ topic exchange so other hospital systems can follow the queue.
// Publishing is best-effort: the HTTP request that caused an event never fails
// because the broker is unavailable.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const DefaultExchange = "er.events"

// Routing keys.
const (
	TicketIssued        = "ticket.issued"
	TicketStatusChanged = "ticket.status_changed"
	SurveySubmitted     = "survey.submitted"
)

// Event is the envelope written to the exchange.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id.
func NewEvent(typ string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

// Publisher sends an event under routingKey.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, data interface{}) error
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
