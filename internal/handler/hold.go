package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seating-core/internal/hold"
    "github.com/iliyamo/seating-core/internal/middleware"
    "github.com/iliyamo/seating-core/internal/model"
)

// HoldService is the hold manager as the HTTP layer uses it.
type HoldService interface {
    Hold(ctx context.Context, req hold.Request) (model.SeatHold, error)
    Release(ctx context.Context, holderID, seatingID string, seatUIDs []string) (int, error)
    ReleaseHold(ctx context.Context, holdID, holderID string) (int, error)
    Validate(ctx context.Context, holdID, holderID string) (model.SeatHold, error)
    Extend(ctx context.Context, holdID, holderID string, d time.Duration) (model.SeatHold, error)
    Confirm(ctx context.Context, holdID, holderID string) (model.SeatHold, error)
}

// HoldHandler serves buyer holds and the checkout service's hold
// lifecycle calls.  Customer routes take the holder from the JWT subject;
// service routes may pass holder_id to have ownership checked.
type HoldHandler struct {
    Holds HoldService
}

func NewHoldHandler(holds HoldService) *HoldHandler {
    if holds == nil {
        panic("nil hold service passed to NewHoldHandler")
    }
    return &HoldHandler{Holds: holds}
}

type holdRequest struct {
    TicketTypeID string           `json:"ticket_type_id"`
    SeatUIDs     []string         `json:"seat_uids"`
    Seats        []model.HeldSeat `json:"seats"`
    TTLSeconds   int              `json:"ttl_seconds"`
}

// seats merges both request shapes.  seat_uids take ticket_type_id (or
// automatic assignment when it is empty); seats carry their own type.
func (r holdRequest) seats() []model.HeldSeat {
    out := make([]model.HeldSeat, 0, len(r.SeatUIDs)+len(r.Seats))
    for _, uid := range r.SeatUIDs {
        out = append(out, model.HeldSeat{SeatUID: uid, TicketTypeID: r.TicketTypeID})
    }
    for _, s := range r.Seats {
        if s.TicketTypeID == "" {
            s.TicketTypeID = r.TicketTypeID
        }
        out = append(out, s)
    }
    return out
}

func holdView(h model.SeatHold) echo.Map {
    return echo.Map{
        "hold_id":          h.ID,
        "event_seating_id": h.EventSeatingID,
        "expires_at":       h.ExpiresAt.UTC().Format(time.RFC3339),
        "seat_uids":        h.SeatUIDs(),
        "seats":            h.Seats,
    }
}

// CreateHold handles POST /v1/seatings/:id/holds.  The batch is
// all-or-nothing: on 409 nothing was held and the body names the
// conflicting seat plus every seat seen unavailable.  Resubmitting the
// same seats extends the existing hold.
func (h *HoldHandler) CreateHold(c echo.Context) error {
    var body holdRequest
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if body.TTLSeconds < 0 {
        return badRequest(c, "ttl_seconds must not be negative")
    }
    held, err := h.Holds.Hold(c.Request().Context(), hold.Request{
        HolderID:       middleware.UserID(c),
        EventSeatingID: c.Param("id"),
        Seats:          body.seats(),
        TTL:            time.Duration(body.TTLSeconds) * time.Second,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, holdView(held))
}

// ReleaseHolds handles DELETE /v1/seatings/:id/holds.  An optional
// seat_uids body releases part of the hold; otherwise everything goes.
func (h *HoldHandler) ReleaseHolds(c echo.Context) error {
    var body struct {
        SeatUIDs []string `json:"seat_uids"`
    }
    if c.Request().ContentLength > 0 {
        if err := c.Bind(&body); err != nil {
            return badRequest(c, "invalid request body")
        }
    }
    n, err := h.Holds.Release(c.Request().Context(), middleware.UserID(c), c.Param("id"), body.SeatUIDs)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"released": n})
}

type serviceRequest struct {
    HolderID      string `json:"holder_id"`
    ExtendSeconds int    `json:"extend_seconds"`
}

func (h *HoldHandler) bindService(c echo.Context) (serviceRequest, error) {
    var body serviceRequest
    if c.Request().ContentLength > 0 {
        if err := c.Bind(&body); err != nil {
            return body, err
        }
    }
    if body.HolderID == "" {
        body.HolderID = c.QueryParam("holder_id")
    }
    return body, nil
}

// ValidateHold handles POST /v1/holds/:id/validate.  The checkout service
// calls it before taking payment; 410 means the buyer must reselect.
func (h *HoldHandler) ValidateHold(c echo.Context) error {
    body, err := h.bindService(c)
    if err != nil {
        return badRequest(c, "invalid request body")
    }
    held, err := h.Holds.Validate(c.Request().Context(), c.Param("id"), body.HolderID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, holdView(held))
}

// ExtendHold handles POST /v1/holds/:id/extend with {"extend_seconds": n}.
// The new expiry is capped by the maximum hold lifetime.
func (h *HoldHandler) ExtendHold(c echo.Context) error {
    body, err := h.bindService(c)
    if err != nil {
        return badRequest(c, "invalid request body")
    }
    if body.ExtendSeconds <= 0 {
        return badRequest(c, "extend_seconds must be positive")
    }
    held, err := h.Holds.Extend(c.Request().Context(), c.Param("id"), body.HolderID, time.Duration(body.ExtendSeconds)*time.Second)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, holdView(held))
}

// ConfirmHold handles POST /v1/holds/:id/confirm after payment succeeded.
// Every seat of the hold becomes sold.
func (h *HoldHandler) ConfirmHold(c echo.Context) error {
    body, err := h.bindService(c)
    if err != nil {
        return badRequest(c, "invalid request body")
    }
    held, err := h.Holds.Confirm(c.Request().Context(), c.Param("id"), body.HolderID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"hold_id": held.ID, "sold": held.SeatUIDs()})
}

// DeleteHold handles DELETE /v1/holds/:id, used when checkout is abandoned.
func (h *HoldHandler) DeleteHold(c echo.Context) error {
    body, err := h.bindService(c)
    if err != nil {
        return badRequest(c, "invalid request body")
    }
    n, err := h.Holds.ReleaseHold(c.Request().Context(), c.Param("id"), body.HolderID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"released": n})
}
