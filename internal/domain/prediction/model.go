package prediction

import (
	"github.com/meridian/er/internal/domain/reference"
	"github.com/meridian/er/internal/platform/ml"
	"github.com/meridian/er/pkg/validation"
)

// Model input column names, as the artifacts were trained on them.
const (
	ColAge           = "Age"
	ColGender        = "Gender"
	ColInsurance     = "Insurance"
	ColArrivalHour   = "Arrival_Hour"
	ColVisitDay      = "Visit_Day"
	ColShift         = "Shift"
	ColTriageLevel   = "Triage Level"
	ColNurses        = "Nurses_On_Duty_Int"
	ColDoctors       = "Doctors_On_Duty_Int"
	ColPatientVolume = "Patient_Volume_Per_Shift"
)

const (
	DefaultForecastHours = 24
	RangeOffsetMinutes   = 10
)

// PatientInfo is the triage request. Numeric fields are pointers so an
// absent field can be told apart from zero.
type PatientInfo struct {
	Age         *int   `json:"Age"`
	Gender      string `json:"Gender"`
	Insurance   string `json:"Insurance"`
	ArrivalHour *int   `json:"Arrival_Hour"`
	VisitDay    string `json:"Visit_Day"`
}

func (p PatientInfo) Validate() error {
	c := validation.NewCollector("body")
	c.Required(ColAge, p.Age != nil)
	c.OneOf(ColGender, p.Gender, reference.Genders...)
	c.OneOf(ColInsurance, p.Insurance, reference.Insurances...)
	c.Required(ColArrivalHour, p.ArrivalHour != nil)
	c.OneOf(ColVisitDay, p.VisitDay, reference.Days...)
	return c.Err()
}

func (p PatientInfo) row() ml.Row {
	return ml.Row{
		ColAge:         *p.Age,
		ColGender:      p.Gender,
		ColInsurance:   p.Insurance,
		ColArrivalHour: *p.ArrivalHour,
		ColVisitDay:    p.VisitDay,
	}
}

type TriageSuggestion struct {
	Level      int    `json:"suggested_triage_level_standard"`
	Name       string `json:"suggested_triage_level_name"`
	Confidence string `json:"confidence"`
}

// ForecastRequest asks for an hourly volume forecast. A nil Hours means the
// default horizon.
type ForecastRequest struct {
	Hours *int `json:"hours_to_forecast"`
}

func (r ForecastRequest) steps() int {
	if r.Hours == nil {
		return DefaultForecastHours
	}
	return *r.Hours
}

func (r ForecastRequest) Validate() error {
	c := validation.NewCollector("body")
	c.Min("hours_to_forecast", r.steps(), 0)
	c.Max("hours_to_forecast", r.steps(), ml.MaxForecastSteps)
	return c.Err()
}

// VolumePoint is one forecast hour. Time carries only the clock time, so
// horizons over a day repeat labels.
type VolumePoint struct {
	Time     string `json:"time"`
	Patients int    `json:"patients"`
}

type WaitTimeRequest struct {
	VisitDay    string `json:"Visit_Day"`
	Shift       string `json:"Shift"`
	TriageLevel string `json:"Triage_Level"`
}

func (r WaitTimeRequest) Validate() error {
	c := validation.NewCollector("body")
	ValidateVisit(c, r.VisitDay, r.Shift, r.TriageLevel)
	return c.Err()
}

// ValidateVisit checks the categorical fields shared by the wait-time and
// simulation requests.
func ValidateVisit(c *validation.Collector, day, shift, level string) {
	c.OneOf(ColVisitDay, day, reference.Days...)
	c.OneOf(ColShift, shift, reference.Shifts...)
	c.OneOf("Triage_Level", level, reference.TriageLevels...)
}

type WaitTimePrediction struct {
	Minutes int    `json:"predicted_wait_time_min"`
	Range   string `json:"prediction_range"`
}

// WaitTimeRow builds one wait-time model input. Columns the model declares
// but the row omits fall back to the artifact defaults.
func WaitTimeRow(day, shift, level string, nurses, doctors float64) ml.Row {
	return ml.Row{
		ColVisitDay:    day,
		ColShift:       shift,
		ColTriageLevel: level,
		ColNurses:      nurses,
		ColDoctors:     doctors,
	}
}
