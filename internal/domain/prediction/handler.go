package prediction

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

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/triage", h.SuggestTriage)
	g.POST("/volume_forecast", h.ForecastVolume)
	g.POST("/wait_time", h.PredictWaitTime)
}

func (h *Handler) SuggestTriage(c echo.Context) error {
	var p PatientInfo
	if err := c.Bind(&p); err != nil {
		return validation.FromBind(err)
	}
	out, err := h.svc.SuggestTriage(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ForecastVolume(c echo.Context) error {
	var req ForecastRequest
	if err := c.Bind(&req); err != nil {
		return validation.FromBind(err)
	}
	out, err := h.svc.ForecastVolume(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) PredictWaitTime(c echo.Context) error {
	var req WaitTimeRequest
	if err := c.Bind(&req); err != nil {
		return validation.FromBind(err)
	}
	out, err := h.svc.PredictWaitTime(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
