package middleware

import "github.com/labstack/echo/v4"

// UserID returns the subject stored by JWTAuth, or "" on public routes.
// Customer routes use it as the seat holder id.
func UserID(c echo.Context) string {
    if s, ok := c.Get("user_id").(string); ok {
        return s
    }
    return ""
}

// rateSubject keys anonymous callers by address.
func rateSubject(c echo.Context) string {
    if id := UserID(c); id != "" {
        return "user:" + id
    }
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    return "ip:" + ip
}
