package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seating-core/internal/cart"
    "github.com/iliyamo/seating-core/internal/middleware"
)

// CartService is the cart synchronizer.
type CartService interface {
    Sync(ctx context.Context, holderID, seatingID string, sel cart.Selection) (cart.Snapshot, error)
    Toggle(ctx context.Context, holderID, seatingID, seatUID string) (cart.Snapshot, error)
    SetQuantity(ctx context.Context, holderID, seatingID, ticketTypeID string, qty int) (cart.Snapshot, error)
    Snapshot(ctx context.Context, holderID, seatingID string) (cart.Snapshot, error)
    Clear(ctx context.Context, holderID, seatingID string) error
}

// CartHandler serves the buyer's cart for one seating.  Every write goes
// through one hold batch; on failure the previous cart is untouched and
// the error says why.
type CartHandler struct {
    Cart CartService
}

func NewCartHandler(svc CartService) *CartHandler {
    if svc == nil {
        panic("nil cart service passed to NewCartHandler")
    }
    return &CartHandler{Cart: svc}
}

// GetCart handles GET /v1/seatings/:id/cart.  An empty cart is a 200 with
// no items.
func (h *CartHandler) GetCart(c echo.Context) error {
    snap, err := h.Cart.Snapshot(c.Request().Context(), middleware.UserID(c), c.Param("id"))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, snap)
}

// PutCart handles PUT /v1/seatings/:id/cart with a full selection:
// {"seats": {"A1": "", "A2": "vip"}, "quantities": {"ga": 2}}.
func (h *CartHandler) PutCart(c echo.Context) error {
    var sel cart.Selection
    if err := c.Bind(&sel); err != nil {
        return badRequest(c, "invalid request body")
    }
    snap, err := h.Cart.Sync(c.Request().Context(), middleware.UserID(c), c.Param("id"), sel)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, snap)
}

// ClearCart handles DELETE /v1/seatings/:id/cart and releases its seats.
func (h *CartHandler) ClearCart(c echo.Context) error {
    if err := h.Cart.Clear(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ToggleSeat handles POST /v1/seatings/:id/cart/toggle with {"seat_uid"}.
func (h *CartHandler) ToggleSeat(c echo.Context) error {
    var body struct {
        SeatUID string `json:"seat_uid"`
    }
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if body.SeatUID == "" {
        return badRequest(c, "seat_uid is required")
    }
    snap, err := h.Cart.Toggle(c.Request().Context(), middleware.UserID(c), c.Param("id"), body.SeatUID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, snap)
}

// SetQuantity handles POST /v1/seatings/:id/cart/quantity with
// {"ticket_type_id", "quantity"}.  Zero removes the line.
func (h *CartHandler) SetQuantity(c echo.Context) error {
    var body struct {
        TicketTypeID string `json:"ticket_type_id"`
        Quantity     int    `json:"quantity"`
    }
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if body.TicketTypeID == "" {
        return badRequest(c, "ticket_type_id is required")
    }
    snap, err := h.Cart.SetQuantity(c.Request().Context(), middleware.UserID(c), c.Param("id"), body.TicketTypeID, body.Quantity)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, snap)
}
