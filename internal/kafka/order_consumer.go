package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/iliyamo/seating-core/internal/apperr"
	"github.com/iliyamo/seating-core/internal/model"
)

// OrderEvent is the checkout service's order status change.
type OrderEvent struct {
	OrderID        string `json:"order_id"`
	HoldID         string `json:"hold_id"`
	UserID         string `json:"user_id"`
	EventSeatingID string `json:"event_seating_id"`
	Status         string `json:"status"`
}

// HoldService is what order events drive.
type HoldService interface {
	Confirm(ctx context.Context, holdID, holderID string) (model.SeatHold, error)
	ReleaseHold(ctx context.Context, holdID, holderID string) (int, error)
}

// OrderConsumer sells held seats when an order is paid and releases them
// when the order fails or is abandoned.
type OrderConsumer struct {
	*BaseConsumer
	Holds HoldService
}

// NewOrderConsumer creates a new consumer for order events
func NewOrderConsumer(base *BaseConsumer, holds HoldService) *OrderConsumer {
	return &OrderConsumer{BaseConsumer: base, Holds: holds}
}

// StartConsuming blocks until ctx is cancelled.
func (c *OrderConsumer) StartConsuming(ctx context.Context) {
	log.Printf("kafka: starting order consumer for topic %s", c.Topic)
	c.ConsumeMessages(ctx, c.processOrder)
}

func (c *OrderConsumer) processOrder(ctx context.Context, value []byte) error {
	var order OrderEvent
	if err := json.Unmarshal(value, &order); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}
	if order.HoldID == "" {
		return nil // non-seated order
	}

	switch strings.ToLower(order.Status) {
	case "completed", "paid":
		h, err := c.Holds.Confirm(ctx, order.HoldID, order.UserID)
		// A swept hold is gone entirely; either way the seats were not sold.
		if errors.Is(err, apperr.ErrHoldExpired) || errors.Is(err, apperr.ErrNotFound) {
			log.Printf("kafka: order %s paid after hold %s expired; needs refund", order.OrderID, order.HoldID)
			return err
		}
		if err != nil {
			return fmt.Errorf("confirm hold %s for order %s: %w", order.HoldID, order.OrderID, err)
		}
		log.Printf("kafka: order %s sold seats %s", order.OrderID, apperr.Join(h.SeatUIDs()))
	case "failed", "cancelled", "canceled", "expired":
		n, err := c.Holds.ReleaseHold(ctx, order.HoldID, order.UserID)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil // already expired or released
		}
		if err != nil {
			return fmt.Errorf("release hold %s for order %s: %w", order.HoldID, order.OrderID, err)
		}
		log.Printf("kafka: order %s %s, released %d seats", order.OrderID, order.Status, n)
	default:
		// pending and friends: the hold keeps running
	}
	return nil
}
