package ticket

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/meridian/er/pkg/validation"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the queue. Status changes pass through the given
// middleware (authentication and role checks); listing and issuing stay open
// to the patient kiosk.
func (h *Handler) RegisterRoutes(g *echo.Group, staff ...echo.MiddlewareFunc) {
	g.GET("", h.ListActive)
	g.POST("", h.Issue)
	g.PUT("/:id/status", h.UpdateStatus, staff...)
}

func (h *Handler) ListActive(c echo.Context) error {
	items, err := h.svc.ListActive(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Issue(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return validation.FromBind(err)
	}
	t, err := h.svc.Issue(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		v := validation.NewCollector("path")
		v.Fail("id", "Input should be a valid integer")
		return v.Err()
	}

	status, source := c.QueryParam("status"), "query"
	if status == "" && c.Request().ContentLength != 0 {
		var body statusBody
		if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
			return validation.FromBind(err)
		}
		status, source = body.Status, "body"
	}

	t, err := h.svc.UpdateStatus(c.Request().Context(), id, status, source)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Ticket with ID %d not found", id))
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}
