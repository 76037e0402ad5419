package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seating-core/internal/pricing"
)

// PricingHandler exposes the pricing engine.  Reads are public; repricing
// is for owners.
type PricingHandler struct {
    Engine pricing.Engine
}

func NewPricingHandler(engine pricing.Engine) *PricingHandler {
    if engine == nil {
        panic("nil engine passed to NewPricingHandler")
    }
    return &PricingHandler{Engine: engine}
}

// SeatPrice handles GET /v1/seatings/:id/seats/:uid/price.  The optional
// ticket_type query parameter prices the seat as that type instead of the
// one a click would assign.
func (h *PricingHandler) SeatPrice(c echo.Context) error {
    ctx := c.Request().Context()
    seatingID, uid := c.Param("id"), c.Param("uid")
    if tt := c.QueryParam("ticket_type"); tt != "" {
        d, err := h.Engine.ComputeSeatPrice(ctx, seatingID, uid, tt)
        if err != nil {
            return respondError(c, err)
        }
        return c.JSON(http.StatusOK, d)
    }
    d, err := h.Engine.ComputeEffectivePrice(ctx, seatingID, uid)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, d)
}

// BulkPrices handles POST /v1/seatings/:id/prices with {"seat_uids": [...]}.
func (h *PricingHandler) BulkPrices(c echo.Context) error {
    var body struct {
        SeatUIDs []string `json:"seat_uids"`
    }
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if len(body.SeatUIDs) == 0 {
        return badRequest(c, "seat_uids is required")
    }
    prices, err := h.Engine.ComputeBulkPrices(c.Request().Context(), c.Param("id"), body.SeatUIDs)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"prices": prices})
}

// TicketTypePrice handles GET /v1/seatings/:id/ticket-types/:tt/price.
func (h *PricingHandler) TicketTypePrice(c echo.Context) error {
    d, err := h.Engine.ComputeTicketTypePrice(c.Request().Context(), c.Param("id"), c.Param("tt"))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, d)
}

type repriceRequest struct {
    Scope    pricing.Scope `json:"scope"`
    ScopeRef string        `json:"scope_ref"`
    Rule     pricing.Rule  `json:"rule"`
}

// PreviewReprice handles POST /v1/seatings/:id/reprice/preview and lists
// every seat in scope with its old and new price.  Nothing is stored.
func (h *PricingHandler) PreviewReprice(c echo.Context) error {
    var body repriceRequest
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    changes, err := h.Engine.PreviewRepricing(c.Request().Context(), c.Param("id"), body.Scope, body.ScopeRef, body.Rule)
    if err != nil {
        return respondError(c, err)
    }
    changed := 0
    for _, ch := range changes {
        if ch.Changed() {
            changed++
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"changes": changes, "changed": changed})
}

// ApplyReprice handles POST /v1/seatings/:id/reprice.
func (h *PricingHandler) ApplyReprice(c echo.Context) error {
    var body repriceRequest
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    n, err := h.Engine.BulkReprice(c.Request().Context(), c.Param("id"), body.Scope, body.ScopeRef, body.Rule)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"changed": n})
}
