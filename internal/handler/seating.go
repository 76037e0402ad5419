package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seating-core/internal/binding"
    "github.com/iliyamo/seating-core/internal/inventory"
    "github.com/iliyamo/seating-core/internal/model"
)

// Publisher stores layouts and their ticket types.
type Publisher interface {
    Publish(ctx context.Context, seating *model.EventSeating, types []model.TicketType) error
    ReplaceTicketTypes(ctx context.Context, seatingID string, types []model.TicketType) error
    Seating(ctx context.Context, id string) (*model.EventSeating, error)
}

// BindingSource resolves section bindings of a seating.
type BindingSource interface {
    Get(ctx context.Context, seatingID string) (*binding.Resolver, error)
}

// SeatingHandler serves layouts, the live seat map and the owner's
// inventory tools.
type SeatingHandler struct {
    Layout    Publisher
    Inventory inventory.Store
    Admin     *inventory.Admin
    Bindings  BindingSource
}

// NewSeatingHandler panics on nil dependencies, like the other handler
// constructors.
func NewSeatingHandler(layout Publisher, inv inventory.Store, bindings BindingSource) *SeatingHandler {
    if layout == nil || inv == nil || bindings == nil {
        panic("nil dependency passed to NewSeatingHandler")
    }
    return &SeatingHandler{Layout: layout, Inventory: inv, Admin: inventory.NewAdmin(inv), Bindings: bindings}
}

type publishRequest struct {
    Seating     model.EventSeating `json:"seating"`
    TicketTypes []model.TicketType `json:"ticket_types"`
}

// Publish handles PUT /v1/seatings/:id.  The path id wins over any id in
// the body.  Returns 201 with the stored layout.
func (h *SeatingHandler) Publish(c echo.Context) error {
    var body publishRequest
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    seating := body.Seating
    seating.ID = c.Param("id")
    if err := h.Layout.Publish(c.Request().Context(), &seating, body.TicketTypes); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, seating)
}

// Seating handles GET /v1/seatings/:id.  The published layout never changes,
// so this route sits behind the response cache.
func (h *SeatingHandler) Seating(c echo.Context) error {
    seating, err := h.Layout.Seating(c.Request().Context(), c.Param("id"))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, seating)
}

// ReplaceTicketTypes handles PUT /v1/seatings/:id/ticket-types with a JSON
// array of ticket types.
func (h *SeatingHandler) ReplaceTicketTypes(c echo.Context) error {
    var types []model.TicketType
    if err := c.Bind(&types); err != nil {
        return badRequest(c, "invalid request body")
    }
    if err := h.Layout.ReplaceTicketTypes(c.Request().Context(), c.Param("id"), types); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"ticket_types": len(types)})
}

// seatView is a seat as the public seat map shows it; hold ids stay
// private.
type seatView struct {
    SeatUID   string           `json:"seat_uid"`
    SectionID string           `json:"section_id"`
    RowLabel  string           `json:"row_label"`
    SeatLabel string           `json:"seat_label"`
    Status    model.SeatStatus `json:"status"`
}

// SeatMap handles GET /v1/seatings/:id/seats and returns every seat with
// its current status.  Never cached.
func (h *SeatingHandler) SeatMap(c echo.Context) error {
    seats, err := h.Inventory.List(c.Request().Context(), c.Param("id"))
    if err != nil {
        return respondError(c, err)
    }
    out := make([]seatView, len(seats))
    for i, s := range seats {
        out[i] = seatView{SeatUID: s.SeatUID, SectionID: s.SectionID, RowLabel: s.RowLabel, SeatLabel: s.SeatLabel, Status: s.Status}
    }
    return c.JSON(http.StatusOK, echo.Map{"event_seating_id": c.Param("id"), "seats": out})
}

// SectionTicketTypes handles GET /v1/seatings/:id/sections/:section/ticket-types.
// The first entry is the type a seat click in that section resolves to.
func (h *SeatingHandler) SectionTicketTypes(c echo.Context) error {
    resolver, err := h.Bindings.Get(c.Request().Context(), c.Param("id"))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"section_id": c.Param("section"), "ticket_types": resolver.ForSection(c.Param("section"))})
}

type blockRequest struct {
    SeatUIDs   []string `json:"seat_uids"`
    SectionID  string   `json:"section_id"`
    RowLabel   string   `json:"row_label"`
    SeatLabels []string `json:"seat_labels"`
}

// Block handles POST /v1/seatings/:id/seats/block.  Seats are named by uid
// or by section (and optionally row and labels).  Only available seats
// move; the response counts them.
func (h *SeatingHandler) Block(c echo.Context) error {
    var body blockRequest
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    ctx := c.Request().Context()
    var (
        n   int
        err error
    )
    switch {
    case len(body.SeatUIDs) > 0:
        n, err = h.Admin.Block(ctx, c.Param("id"), body.SeatUIDs)
    case body.SectionID != "":
        n, err = h.Admin.BlockByLocation(ctx, c.Param("id"), body.SectionID, body.RowLabel, body.SeatLabels)
    default:
        return badRequest(c, "seat_uids or section_id is required")
    }
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"blocked": n})
}

// Unblock handles POST /v1/seatings/:id/seats/unblock.
func (h *SeatingHandler) Unblock(c echo.Context) error {
    var body blockRequest
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if len(body.SeatUIDs) == 0 {
        return badRequest(c, "seat_uids is required")
    }
    n, err := h.Admin.Unblock(c.Request().Context(), c.Param("id"), body.SeatUIDs)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"unblocked": n})
}

// Blocked handles GET /v1/seatings/:id/seats/blocked.
func (h *SeatingHandler) Blocked(c echo.Context) error {
    seats, err := h.Admin.Blocked(c.Request().Context(), c.Param("id"))
    if err != nil {
        return respondError(c, err)
    }
    if seats == nil {
        seats = []model.Seat{}
    }
    return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}
