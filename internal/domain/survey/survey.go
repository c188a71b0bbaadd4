// Package survey accepts patient feedback. Submissions are logged and
// published as events; nothing is stored.
package survey

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/meridian/er/internal/platform/events"
	"github.com/meridian/er/pkg/validation"
)

const ThankYou = "Thank you for your feedback!"

// Submission is one feedback form. Ratings must be an object but its values
// are taken as sent; the form posts 0 for categories left unrated.
type Submission struct {
	Ratings        map[string]interface{} `json:"ratings"`
	WouldRecommend *bool                  `json:"wouldRecommend"`
	Comments       *string                `json:"comments"`
}

func (s Submission) Validate() error {
	c := validation.NewCollector("body")
	c.Required("ratings", s.Ratings != nil)
	return c.Err()
}

type Service struct {
	events events.Publisher
	logger zerolog.Logger
}

func NewService(pub events.Publisher, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{events: pub, logger: logger}
}

func (s *Service) Submit(ctx context.Context, sub Submission) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	ev := s.logger.Info().Interface("ratings", sub.Ratings)
	if sub.WouldRecommend != nil {
		ev = ev.Bool("would_recommend", *sub.WouldRecommend)
	}
	if sub.Comments != nil {
		ev = ev.Str("comments", *sub.Comments)
	}
	ev.Msg("survey submitted")

	if err := s.events.Publish(ctx, events.SurveySubmitted, sub); err != nil {
		s.logger.Warn().Err(err).Msg("event publish failed")
	}
	return nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Submit)
}

func (h *Handler) Submit(c echo.Context) error {
	var sub Submission
	if err := c.Bind(&sub); err != nil {
		return validation.FromBind(err)
	}
	if err := h.svc.Submit(c.Request().Context(), sub); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": ThankYou})
}
