package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"snatch/internal/activity"
)

// Gate rejects protected requests while the server is sleeping. A
// rejected request is not served, so it does not count as activity.
// Served requests touch the activity tracker before the handler runs.
func (a *API) Gate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !a.avail.Awake() {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"error":   "server is sleeping",
				"state":   activity.StateSleeping,
				"message": "call /api/wakeup to resume",
			})
		}
		a.tracker.Touch()
		return next(c)
	}
}
