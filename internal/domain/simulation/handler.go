package simulation

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meridian/er/pkg/validation"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the simulation under the prediction group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/wait_time_simulation", h.Simulate)
}

func (h *Handler) Simulate(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return validation.FromBind(err)
	}
	out, err := h.svc.Run(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
