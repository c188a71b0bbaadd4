package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meridian/er/internal/domain/reference"
)

func f(v float64) *float64 { return &v }

func at(d, h, m int) time.Time { return time.Date(2024, 1, d, h, m, 0, 0, time.UTC) }

func testVisits() []reference.VisitRecord {
	return []reference.VisitRecord{
		{PatientID: "P1", ArrivalTime: at(1, 7, 5), TriageLevel: "Urgent", WaitToDoctorMin: f(10), TotalERTimeMin: f(120)},
		{PatientID: "P1", ArrivalTime: at(1, 7, 40), TriageLevel: "Emergency", WaitToDoctorMin: f(20), TotalERTimeMin: f(180)},
		{PatientID: "P2", ArrivalTime: at(2, 13, 0), TriageLevel: "Urgent", TotalERTimeMin: f(90)},
		{PatientID: "P3", ArrivalTime: at(2, 7, 10), TriageLevel: "Unclassified", WaitToDoctorMin: f(35)},
	}
}

func testStaffing() []reference.StaffingRecord {
	return []reference.StaffingRecord{
		{Shift: "Day", NursesOnDuty: 8, DoctorsOnDuty: 3},
		{Shift: "Day", NursesOnDuty: 7, DoctorsOnDuty: 2},
		{Shift: "Night", NursesOnDuty: 4, DoctorsOnDuty: 1},
	}
}

func TestKPIs(t *testing.T) {
	svc := NewService(testVisits(), testStaffing())
	k := svc.KPIs(context.Background())

	if k.TotalPatients != 3 {
		t.Errorf("totalPatients = %d, want 3", k.TotalPatients)
	}
	if k.AvgWaitTime != 22 {
		t.Errorf("avgWaitTime = %d, want 22", k.AvgWaitTime)
	}
	if k.AvgLengthOfStay != 2.2 {
		t.Errorf("avgLengthOfStay = %v, want 2.2", k.AvgLengthOfStay)
	}
	if k.BedOccupancy != 85 || k.ApprovalRating != 78 {
		t.Errorf("placeholders = %d/%d", k.BedOccupancy, k.ApprovalRating)
	}
}

func TestKPIs_Empty(t *testing.T) {
	k := NewService(nil, nil).KPIs(context.Background())
	if k.TotalPatients != 0 || k.AvgWaitTime != 0 || k.AvgLengthOfStay != 0 {
		t.Errorf("expected zeros, got %+v", k)
	}
}

func TestTriageDistribution(t *testing.T) {
	got := NewService(testVisits(), nil).TriageDistribution(context.Background())
	want := []TriageShare{
		{Level: "Immediate", Count: 0, Percentage: 0},
		{Level: "Emergency", Count: 1, Percentage: 25},
		{Level: "Urgent", Count: 2, Percentage: 50},
		{Level: "Semi-Urgent", Count: 0, Percentage: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d levels, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("level %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTriageDistribution_PercentagesSumToHundred(t *testing.T) {
	var visits []reference.VisitRecord
	for i, level := range []string{"Immediate", "Emergency", "Emergency", "Urgent", "Urgent", "Urgent", "Semi-Urgent"} {
		visits = append(visits, reference.VisitRecord{PatientID: string(rune('A' + i)), TriageLevel: level})
	}
	sum := 0
	for _, s := range NewService(visits, nil).TriageDistribution(context.Background()) {
		sum += s.Percentage
	}
	if sum < 99 || sum > 101 {
		t.Errorf("percentages sum to %d", sum)
	}
}

func TestTriageDistribution_HalfEven(t *testing.T) {
	visits := make([]reference.VisitRecord, 8)
	visits[0].TriageLevel = "Immediate"
	got := NewService(visits, nil).TriageDistribution(context.Background())
	if got[0].Percentage != 12 {
		t.Errorf("12.5%% should round to 12, got %d", got[0].Percentage)
	}
}

func TestTriageDistribution_Empty(t *testing.T) {
	for _, s := range NewService(nil, nil).TriageDistribution(context.Background()) {
		if s.Count != 0 || s.Percentage != 0 {
			t.Errorf("expected zeros, got %+v", s)
		}
	}
}

func TestHourlyArrivals(t *testing.T) {
	got := NewService(testVisits(), nil).HourlyArrivals(context.Background())
	if len(got) != 24 {
		t.Fatalf("expected 24 hours, got %d", len(got))
	}
	if got[7].AveragePatients != 1.5 {
		t.Errorf("hour 7 = %v, want 1.5", got[7].AveragePatients)
	}
	if got[13].AveragePatients != 0.5 {
		t.Errorf("hour 13 = %v, want 0.5", got[13].AveragePatients)
	}
	if got[0].AveragePatients != 0 {
		t.Errorf("hour 0 = %v, want 0", got[0].AveragePatients)
	}
}

func TestShiftStaffing(t *testing.T) {
	got := NewService(nil, testStaffing()).ShiftStaffing(context.Background())
	if len(got) != 3 {
		t.Fatalf("expected 3 shifts, got %d", len(got))
	}
	if got[0].Shift != "Day" || got[0].AvgNurses != 7.5 || got[0].AvgDoctors != 2.5 {
		t.Errorf("day = %+v", got[0])
	}
	if got[1].Shift != "Evening" || got[1].AvgNurses != 0 {
		t.Errorf("evening = %+v", got[1])
	}
}

func TestHandler_KPIs(t *testing.T) {
	h := NewHandler(NewService(testVisits(), nil))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.KPIs(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"totalPatients", "avgWaitTime", "bedOccupancy", "approvalRating", "avgLengthOfStay"} {
		if _, ok := out[key]; !ok {
			t.Errorf("missing key %s in %s", key, rec.Body.String())
		}
	}
}
