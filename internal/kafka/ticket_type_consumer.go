package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/iliyamo/seating-core/internal/model"
)

// TicketTypeEvent carries the full ticket type list of a seating after the
// event service changed it.
type TicketTypeEvent struct {
	EventSeatingID string             `json:"event_seating_id"`
	TicketTypes    []model.TicketType `json:"ticket_types"`
}

// TicketTypeReplacer swaps the ticket types of a seating.
type TicketTypeReplacer interface {
	ReplaceTicketTypes(ctx context.Context, seatingID string, types []model.TicketType) error
}

// TicketTypeConsumer keeps ticket types and section bindings in step with
// the event service.
type TicketTypeConsumer struct {
	*BaseConsumer
	Layout TicketTypeReplacer
}

func NewTicketTypeConsumer(base *BaseConsumer, layout TicketTypeReplacer) *TicketTypeConsumer {
	return &TicketTypeConsumer{BaseConsumer: base, Layout: layout}
}

// StartConsuming blocks until ctx is cancelled.
func (c *TicketTypeConsumer) StartConsuming(ctx context.Context) {
	log.Printf("kafka: starting ticket type consumer for topic %s", c.Topic)
	c.ConsumeMessages(ctx, c.processTicketTypes)
}

func (c *TicketTypeConsumer) processTicketTypes(ctx context.Context, value []byte) error {
	var ev TicketTypeEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return fmt.Errorf("unmarshal ticket type event: %w", err)
	}
	if ev.EventSeatingID == "" {
		return fmt.Errorf("ticket type event without event_seating_id")
	}
	if err := c.Layout.ReplaceTicketTypes(ctx, ev.EventSeatingID, ev.TicketTypes); err != nil {
		return fmt.Errorf("replace ticket types of %s: %w", ev.EventSeatingID, err)
	}
	log.Printf("kafka: seating %s now has %d ticket types", ev.EventSeatingID, len(ev.TicketTypes))
	return nil
}
