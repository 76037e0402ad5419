package handler

import (
    "errors"
    "log"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seating-core/internal/apperr"
)

// respondError maps service errors onto HTTP responses.  Unknown errors are
// logged and reported as 500 without detail.
func respondError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, apperr.ErrValidation):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "field": apperr.Field(err)})
    case errors.Is(err, apperr.ErrHoldExpired):
        return c.JSON(http.StatusGone, echo.Map{"error": apperr.ErrHoldExpired.Error()})
    case errors.Is(err, apperr.ErrConflict):
        body := echo.Map{"error": err.Error()}
        if seats := apperr.Seats(err); len(seats) > 0 {
            body["conflict_seat"] = seats[0]
            body["unavailable"] = seats
        }
        return c.JSON(http.StatusConflict, body)
    case errors.Is(err, apperr.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, apperr.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    }
    log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
