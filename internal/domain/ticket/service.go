package ticket

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian/er/internal/platform/events"
	"github.com/meridian/er/pkg/validation"
)

type Service struct {
	repo     Repository
	events   events.Publisher
	logger   zerolog.Logger
	now      func() time.Time
	estimate func() int
}

func NewService(repo Repository, pub events.Publisher, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{
		repo:   repo,
		events: pub,
		logger: logger,
		now:    time.Now,
		estimate: func() int {
			return MinEstimatedWait + rand.Intn(MaxEstimatedWait-MinEstimatedWait+1)
		},
	}
}

// SetClock replaces the clock used for issue times.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetEstimator replaces the source of estimated wait minutes.
func (s *Service) SetEstimator(f func() int) { s.estimate = f }

func (s *Service) ListActive(ctx context.Context) ([]Ticket, error) {
	return s.repo.ListActive(ctx)
}

// Issue creates a waiting ticket at the back of the queue.
func (s *Service) Issue(ctx context.Context, req CreateRequest) (*Ticket, error) {
	c := validation.NewCollector("body")
	c.Required("patientName", req.PatientName != nil)
	c.Required("triageLevel", req.TriageLevel != nil)
	if err := c.Err(); err != nil {
		return nil, err
	}
	t := &Ticket{
		PatientName:       *req.PatientName,
		Department:        DefaultDepartment,
		TriageLevel:       *req.TriageLevel,
		Status:            StatusWaiting,
		IssueTime:         s.now().Format(IssueTimeLayout),
		EstimatedWaitTime: s.estimate(),
	}
	if req.Department != nil {
		t.Department = *req.Department
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info().Int("ticket_id", t.ID).Int("queue_number", t.QueueNumber).Msg("ticket issued")
	s.publish(ctx, events.TicketIssued, t)
	return t, nil
}

// UpdateStatus moves ticket id to status. source names where the status came
// from ("query" or "body") for validation errors.
func (s *Service) UpdateStatus(ctx context.Context, id int, status, source string) (*Ticket, error) {
	c := validation.NewCollector(source)
	if c.Required("status", status != "") {
		c.OneOf("status", status, Statuses...)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	t, prev, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("ticket_id", t.ID).Str("from", prev).Str("to", t.Status).Msg("ticket status changed")
	s.publish(ctx, events.TicketStatusChanged, StatusChange{Ticket: *t, From: prev})
	return t, nil
}

func (s *Service) publish(ctx context.Context, key string, data interface{}) {
	if err := s.events.Publish(ctx, key, data); err != nil {
		s.logger.Warn().Err(err).Str("routing_key", key).Msg("event publish failed")
	}
}
