// Package analytics computes the dashboard aggregates over the visit history
// and staffing schedule.
package analytics

import (
	"context"
	"math"

	"github.com/meridian/er/internal/domain/reference"
)

// Placeholder figures shown on the admin dashboard until bed and survey
// feeds exist.
const (
	BedOccupancy   = 85
	ApprovalRating = 78
)

type KPIs struct {
	TotalPatients   int     `json:"totalPatients"`
	AvgWaitTime     int     `json:"avgWaitTime"`
	BedOccupancy    int     `json:"bedOccupancy"`
	ApprovalRating  int     `json:"approvalRating"`
	AvgLengthOfStay float64 `json:"avgLengthOfStay"`
}

type TriageShare struct {
	Level      string `json:"level"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

type HourlyArrivals struct {
	Hour            int     `json:"hour"`
	AveragePatients float64 `json:"averagePatients"`
}

type ShiftStaffing struct {
	Shift      string  `json:"shift"`
	AvgNurses  float64 `json:"avgNurses"`
	AvgDoctors float64 `json:"avgDoctors"`
}

type Service struct {
	visits   []reference.VisitRecord
	staffing []reference.StaffingRecord
}

func NewService(visits []reference.VisitRecord, staffing []reference.StaffingRecord) *Service {
	return &Service{visits: visits, staffing: staffing}
}

// KPIs summarizes the visit history. Missing cells are skipped; with no data
// every figure except the placeholders is zero.
func (s *Service) KPIs(_ context.Context) KPIs {
	patients := make(map[string]struct{}, len(s.visits))
	var wait, stay mean
	for _, v := range s.visits {
		patients[v.PatientID] = struct{}{}
		wait.add(v.WaitToDoctorMin)
		stay.add(v.TotalERTimeMin)
	}
	return KPIs{
		TotalPatients:   len(patients),
		AvgWaitTime:     int(math.RoundToEven(wait.value())),
		BedOccupancy:    BedOccupancy,
		ApprovalRating:  ApprovalRating,
		AvgLengthOfStay: round1(stay.value() / 60),
	}
}

// TriageDistribution counts visits per triage level in acuity order.
// Percentages are of all visits, so levels outside the four known names
// lower the total share.
func (s *Service) TriageDistribution(_ context.Context) []TriageShare {
	counts := make(map[string]int, len(reference.TriageLevels))
	for _, v := range s.visits {
		counts[v.TriageLevel]++
	}
	out := make([]TriageShare, 0, len(reference.TriageLevels))
	for _, level := range reference.TriageLevels {
		share := TriageShare{Level: level, Count: counts[level]}
		if total := len(s.visits); total > 0 {
			share.Percentage = int(math.RoundToEven(float64(share.Count) / float64(total) * 100))
		}
		out = append(out, share)
	}
	return out
}

// HourlyArrivals averages arrivals per clock hour over the calendar days the
// history covers.
func (s *Service) HourlyArrivals(_ context.Context) []HourlyArrivals {
	var perHour [24]int
	days := make(map[string]struct{})
	for _, v := range s.visits {
		perHour[v.ArrivalTime.Hour()]++
		days[v.ArrivalTime.Format("2006-01-02")] = struct{}{}
	}
	out := make([]HourlyArrivals, 24)
	for h := range out {
		out[h].Hour = h
		if len(days) > 0 {
			out[h].AveragePatients = round1(float64(perHour[h]) / float64(len(days)))
		}
	}
	return out
}

// ShiftStaffing averages the scheduled staff per shift.
func (s *Service) ShiftStaffing(_ context.Context) []ShiftStaffing {
	out := make([]ShiftStaffing, 0, len(reference.Shifts))
	for _, shift := range reference.Shifts {
		var n, nurses, doctors int
		for _, r := range s.staffing {
			if r.Shift == shift {
				n++
				nurses += r.NursesOnDuty
				doctors += r.DoctorsOnDuty
			}
		}
		row := ShiftStaffing{Shift: shift}
		if n > 0 {
			row.AvgNurses = round1(float64(nurses) / float64(n))
			row.AvgDoctors = round1(float64(doctors) / float64(n))
		}
		out = append(out, row)
	}
	return out
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil || math.IsNaN(*v) {
		return
	}
	m.sum += *v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

func round1(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}
