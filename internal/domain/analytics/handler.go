package analytics

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/kpis", h.KPIs)
	g.GET("/triage_distribution", h.TriageDistribution)
	g.GET("/hourly_arrivals", h.HourlyArrivals)
	g.GET("/shift_staffing", h.ShiftStaffing)
}

func (h *Handler) KPIs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.KPIs(c.Request().Context()))
}

func (h *Handler) TriageDistribution(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.TriageDistribution(c.Request().Context()))
}

func (h *Handler) HourlyArrivals(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.HourlyArrivals(c.Request().Context()))
}

func (h *Handler) ShiftStaffing(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.ShiftStaffing(c.Request().Context()))
}
