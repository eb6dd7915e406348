package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo"
)

// HeartBeat is the liveness probe.
func HeartBeat(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
