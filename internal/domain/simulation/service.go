// Package simulation sweeps one staffing resource across a range and predicts
// the wait time at each count, holding the other resource fixed.
package simulation

import (
	"context"
	"fmt"
	"math"

	"github.com/meridian/er/internal/domain/prediction"
	"github.com/meridian/er/internal/platform/ml"
	"github.com/meridian/er/pkg/validation"
)

const (
	ResourceDoctors = "doctors"
	ResourceNurses  = "nurses"

	DefaultMaxSteps = 500
)

type Request struct {
	VisitDay         string `json:"Visit_Day"`
	Shift            string `json:"Shift"`
	TriageLevel      string `json:"Triage_Level"`
	PatientVolume    *int   `json:"patient_volume"`
	MinDoctors       *int   `json:"min_doctors"`
	MaxDoctors       *int   `json:"max_doctors"`
	MinNurses        *int   `json:"min_nurses"`
	MaxNurses        *int   `json:"max_nurses"`
	VariableResource string `json:"variable_resource"`
}

// Point is the predicted wait at one resource count.
type Point struct {
	ResourceCount int `json:"resource_count"`
	PredictedWait int `json:"predicted_wait"`
}

type Service struct {
	model    ml.Regressor
	maxSteps int
}

// NewService returns a simulator over the wait-time model. maxSteps bounds
// the sweep length; zero or less means DefaultMaxSteps.
func NewService(model ml.Regressor, maxSteps int) *Service {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Service{model: model, maxSteps: maxSteps}
}

func (s *Service) validate(r Request) error {
	c := validation.NewCollector("body")
	prediction.ValidateVisit(c, r.VisitDay, r.Shift, r.TriageLevel)
	c.Required("patient_volume", r.PatientVolume != nil)
	c.Required("min_doctors", r.MinDoctors != nil)
	c.Required("max_doctors", r.MaxDoctors != nil)
	c.Required("min_nurses", r.MinNurses != nil)
	c.Required("max_nurses", r.MaxNurses != nil)
	c.OneOf("variable_resource", r.VariableResource, ResourceDoctors, ResourceNurses)
	if err := c.Err(); err != nil {
		return err
	}
	if lo, hi := r.sweep(); hi >= lo && span(lo, hi) >= uint64(s.maxSteps) {
		c.Fail("max_"+r.VariableResource, fmt.Sprintf("sweep of more than %d values", s.maxSteps))
	}
	return c.Err()
}

// span is hi-lo computed without overflow; hi must not be below lo.
func span(lo, hi int) uint64 {
	return uint64(hi) - uint64(lo)
}

func (r Request) sweep() (lo, hi int) {
	if r.VariableResource == ResourceDoctors {
		return *r.MinDoctors, *r.MaxDoctors
	}
	return *r.MinNurses, *r.MaxNurses
}

// fixed is the count held constant for the other resource: the midpoint of
// its bounds, rounded half to even.
func (r Request) fixed() int {
	lo, hi := *r.MinNurses, *r.MaxNurses
	if r.VariableResource == ResourceNurses {
		lo, hi = *r.MinDoctors, *r.MaxDoctors
	}
	return midpoint(lo, hi)
}

// midpoint returns (lo+hi)/2 rounded half to even without forming lo+hi.
func midpoint(lo, hi int) int {
	q, rem := lo/2+hi/2, lo%2+hi%2
	switch rem {
	case 2:
		return q + 1
	case -2:
		return q - 1
	case 1:
		if q%2 != 0 {
			return q + 1
		}
	case -1:
		if q%2 != 0 {
			return q - 1
		}
	}
	return q
}

// Run predicts the wait time for every count in the inclusive sweep range
// with a single batch call to the model. An empty range returns an empty
// result without invoking the model.
func (s *Service) Run(_ context.Context, r Request) ([]Point, error) {
	if err := s.validate(r); err != nil {
		return nil, err
	}
	lo, hi := r.sweep()
	if lo > hi {
		return []Point{}, nil
	}
	fixed := float64(r.fixed())
	steps := int(span(lo, hi)) + 1
	rows := make([]ml.Row, 0, steps)
	for i := 0; i < steps; i++ {
		n := lo + i
		nurses, doctors := fixed, float64(n)
		if r.VariableResource == ResourceNurses {
			nurses, doctors = float64(n), fixed
		}
		row := prediction.WaitTimeRow(r.VisitDay, r.Shift, r.TriageLevel, nurses, doctors)
		row[prediction.ColPatientVolume] = *r.PatientVolume
		rows = append(rows, row)
	}
	preds, err := s.model.Predict(rows)
	if err != nil {
		return nil, fmt.Errorf("wait-time model: %w", err)
	}
	if len(preds) != len(rows) {
		return nil, fmt.Errorf("wait-time model: %w: %d predictions for %d rows", ml.ErrInvalidArtifact, len(preds), len(rows))
	}
	out := make([]Point, len(rows))
	for i := range rows {
		out[i] = Point{ResourceCount: lo + i, PredictedWait: int(math.RoundToEven(preds[i]))}
	}
	return out, nil
}
