package reference

import (
	"time"
)

// Timestamp layouts of the source datasets. Single-digit month, day and hour
// are accepted as well as zero-padded ones.
const (
	VisitTimeLayout    = "1/2/06 15:04"
	StaffingDateLayout = "1/2/2006"
)

// VisitRecord maps to one row of the visit history dataset and the
// visit_history table.
type VisitRecord struct {
	VisitID             string    `db:"visit_id" json:"visit_id"`
	PatientID           string    `db:"patient_id" json:"patient_id"`
	ArrivalTime         time.Time `db:"arrival_time" json:"arrival_time"`
	Age                 *int      `db:"age" json:"age,omitempty"`
	Gender              string    `db:"gender" json:"gender,omitempty"`
	Insurance           string    `db:"insurance" json:"insurance,omitempty"`
	ArrivalHour         *int      `db:"arrival_hour" json:"arrival_hour,omitempty"`
	ArrivalShift        string    `db:"arrival_shift" json:"arrival_shift,omitempty"`
	VisitDay            string    `db:"visit_day" json:"visit_day,omitempty"`
	TriageLevel         string    `db:"triage_level" json:"triage_level"`
	TriageLevelStandard *int      `db:"triage_level_standard" json:"triage_level_standard,omitempty"`
	WaitToDoctorMin     *float64  `db:"wait_to_doctor_min" json:"wait_to_doctor_min,omitempty"`
	TotalERTimeMin      *float64  `db:"total_er_time_min" json:"total_er_time_min,omitempty"`
}

// StaffingRecord maps to one (date, shift) row of the staffing schedule.
type StaffingRecord struct {
	Date          time.Time `db:"date" json:"date"`
	Shift         string    `db:"shift" json:"shift"`
	NursesOnDuty  int       `db:"nurses_on_duty" json:"nurses_on_duty"`
	DoctorsOnDuty int       `db:"doctors_on_duty" json:"doctors_on_duty"`
}

// SameDay reports whether the record's date falls on t's calendar day.
func (s StaffingRecord) SameDay(t time.Time) bool {
	y1, m1, d1 := s.Date.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
