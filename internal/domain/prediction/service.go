package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/meridian/er/internal/domain/reference"
	"github.com/meridian/er/internal/platform/ml"
	"github.com/meridian/er/internal/platform/resources"
)

var ErrNoStaffing = errors.New("no staffing data for shift")

type Service struct {
	store *resources.Store
	now   func() time.Time
}

func NewService(store *resources.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock replaces the clock used to find today's staffing row.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) SuggestTriage(_ context.Context, p PatientInfo) (*TriageSuggestion, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	probs, err := s.store.Triage.PredictProba([]ml.Row{p.row()})
	if err != nil {
		return nil, fmt.Errorf("triage model: %w", err)
	}
	if len(probs) != 1 || len(probs[0]) == 0 {
		return nil, fmt.Errorf("triage model: %w: empty probability vector", ml.ErrInvalidArtifact)
	}
	classes := s.store.Triage.Classes()
	best := ml.Argmax(probs[0])
	if best >= len(classes) {
		return nil, fmt.Errorf("triage model: %w: %d probabilities for %d classes", ml.ErrInvalidArtifact, len(probs[0]), len(classes))
	}
	level := classes[best]
	return &TriageSuggestion{
		Level:      level,
		Name:       reference.TriageName(level),
		Confidence: fmt.Sprintf("%.2f%%", probs[0][best]*100),
	}, nil
}

func (s *Service) ForecastVolume(_ context.Context, req ForecastRequest) ([]VolumePoint, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	points, err := s.store.Volume.Forecast(req.steps())
	if err != nil {
		return nil, fmt.Errorf("volume model: %w", err)
	}
	out := make([]VolumePoint, 0, len(points))
	for _, p := range points {
		out = append(out, VolumePoint{
			Time:     p.Time.Format("15:04"),
			Patients: max(0, roundInt(p.Mean)),
		})
	}
	return out, nil
}

func (s *Service) PredictWaitTime(_ context.Context, req WaitTimeRequest) (*WaitTimePrediction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	nurses, doctors, err := s.Staffing(req.Shift)
	if err != nil {
		return nil, err
	}
	preds, err := s.store.WaitTime.Predict([]ml.Row{
		WaitTimeRow(req.VisitDay, req.Shift, req.TriageLevel, nurses, doctors),
	})
	if err != nil {
		return nil, fmt.Errorf("wait-time model: %w", err)
	}
	if len(preds) != 1 {
		return nil, fmt.Errorf("wait-time model: %w: %d predictions for 1 row", ml.ErrInvalidArtifact, len(preds))
	}
	p := roundInt(preds[0])
	return &WaitTimePrediction{
		Minutes: p,
		Range:   fmt.Sprintf("%d - %d min", max(0, p-RangeOffsetMinutes), p+RangeOffsetMinutes),
	}, nil
}

// Staffing returns the nurse and doctor counts for shift: today's scheduled
// row when there is one, otherwise the shift's historical mean.
func (s *Service) Staffing(shift string) (nurses, doctors float64, err error) {
	today := s.now()
	var n, sumNurses, sumDoctors int
	for _, r := range s.store.Staffing {
		if r.Shift != shift {
			continue
		}
		if r.SameDay(today) {
			return float64(r.NursesOnDuty), float64(r.DoctorsOnDuty), nil
		}
		n++
		sumNurses += r.NursesOnDuty
		sumDoctors += r.DoctorsOnDuty
	}
	if n == 0 {
		return 0, 0, fmt.Errorf("%w %q", ErrNoStaffing, shift)
	}
	return float64(sumNurses) / float64(n), float64(sumDoctors) / float64(n), nil
}

// roundInt rounds half to even, matching how the dashboard figures were
// produced historically.
func roundInt(v float64) int {
	return int(math.RoundToEven(v))
}
