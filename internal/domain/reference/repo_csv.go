package reference

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Column names of the visit history and staffing datasets.
const (
	colVisitID        = "Visit ID"
	colPatientID      = "Patient ID"
	colArrivalTime    = "Arrival TimeDT"
	colAge            = "Age"
	colGender         = "Gender"
	colInsurance      = "Insurance"
	colArrivalHour    = "Arrival_Hour"
	colArrivalShift   = "Arrival_Shift"
	colVisitDay       = "Visit_Day"
	colTriageLevel    = "Triage Level"
	colTriageStandard = "Triage_Level_Standard"
	colWaitToDoctor   = "Arrival_To_DoctorSeen"
	colTotalERTime    = "Total_ER_Time_Min"

	colDate    = "Date"
	colShift   = "Shift"
	colNurses  = "Nurses_On_Duty_Int"
	colDoctors = "Doctors_On_Duty_Int"
)

// CSVSource reads the reference tables from the exported CSV datasets.
type CSVSource struct {
	VisitsPath   string
	StaffingPath string
	// Location is used to interpret the naive timestamps; nil means time.Local.
	Location *time.Location
}

func NewCSVSource(visitsPath, staffingPath string) *CSVSource {
	return &CSVSource{VisitsPath: visitsPath, StaffingPath: staffingPath}
}

func (s *CSVSource) loc() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

// Visits implements Source.
func (s *CSVSource) Visits(_ context.Context) ([]VisitRecord, error) {
	f, err := os.Open(s.VisitsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseVisits(f, s.VisitsPath, s.loc())
}

// Staffing implements Source.
func (s *CSVSource) Staffing(_ context.Context) ([]StaffingRecord, error) {
	f, err := os.Open(s.StaffingPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseStaffing(f, s.StaffingPath, s.loc())
}

// table wraps a csv.Reader with header lookup.
type table struct {
	r    *csv.Reader
	name string
	cols map[string]int
	row  []string
}

func newTable(r io.Reader, name string, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cols[strings.TrimSpace(h)] = i
	}
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%s: %w %q", name, ErrMissingColumn, c)
		}
	}
	return &table{r: cr, name: name, cols: cols}, nil
}

func (t *table) next() (bool, error) {
	row, err := t.r.Read()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", t.name, err)
	}
	t.row = row
	return true, nil
}

func (t *table) line() int {
	line, _ := t.r.FieldPos(0)
	return line
}

func (t *table) str(col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(t.row) {
		return ""
	}
	return strings.TrimSpace(t.row[i])
}

func (t *table) errorf(col, format string, args ...interface{}) error {
	return fmt.Errorf("%s line %d column %q: %s", t.name, t.line(), col, fmt.Sprintf(format, args...))
}

func (t *table) timestamp(col, layout string, loc *time.Location) (time.Time, error) {
	v := t.str(col)
	ts, err := time.ParseInLocation(layout, v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s line %d column %q: %w: %q", t.name, t.line(), col, ErrBadTimestamp, v)
	}
	return ts, nil
}

// optFloat returns nil for an empty cell.
func (t *table) optFloat(col string) (*float64, error) {
	v := t.str(col)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, t.errorf(col, "not a number %q", v)
	}
	return &f, nil
}

// optInt accepts integral floats such as "3.0" the way a numeric dataframe
// column would hold them.
func (t *table) optInt(col string) (*int, error) {
	f, err := t.optFloat(col)
	if err != nil || f == nil {
		return nil, err
	}
	n := int(*f)
	if float64(n) != *f {
		return nil, t.errorf(col, "not an integer %v", *f)
	}
	return &n, nil
}

func (t *table) requiredInt(col string) (int, error) {
	n, err := t.optInt(col)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, t.errorf(col, "value is required")
	}
	return *n, nil
}

// ParseVisits decodes the visit history dataset. A row whose arrival time
// does not match VisitTimeLayout aborts the whole parse.
func ParseVisits(r io.Reader, name string, loc *time.Location) ([]VisitRecord, error) {
	t, err := newTable(r, name, colPatientID, colArrivalTime, colTriageLevel, colWaitToDoctor, colTotalERTime)
	if err != nil {
		return nil, err
	}
	var out []VisitRecord
	for {
		ok, err := t.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		v := VisitRecord{
			VisitID:      t.str(colVisitID),
			PatientID:    t.str(colPatientID),
			Gender:       t.str(colGender),
			Insurance:    t.str(colInsurance),
			ArrivalShift: t.str(colArrivalShift),
			VisitDay:     t.str(colVisitDay),
			TriageLevel:  t.str(colTriageLevel),
		}
		if v.ArrivalTime, err = t.timestamp(colArrivalTime, VisitTimeLayout, loc); err != nil {
			return nil, err
		}
		if v.Age, err = t.optInt(colAge); err != nil {
			return nil, err
		}
		if v.ArrivalHour, err = t.optInt(colArrivalHour); err != nil {
			return nil, err
		}
		if v.TriageLevelStandard, err = t.optInt(colTriageStandard); err != nil {
			return nil, err
		}
		if v.WaitToDoctorMin, err = t.optFloat(colWaitToDoctor); err != nil {
			return nil, err
		}
		if v.TotalERTimeMin, err = t.optFloat(colTotalERTime); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// ParseStaffing decodes the staffing schedule dataset.
func ParseStaffing(r io.Reader, name string, loc *time.Location) ([]StaffingRecord, error) {
	t, err := newTable(r, name, colDate, colShift, colNurses, colDoctors)
	if err != nil {
		return nil, err
	}
	var out []StaffingRecord
	for {
		ok, err := t.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		s := StaffingRecord{Shift: t.str(colShift)}
		if s.Date, err = t.timestamp(colDate, StaffingDateLayout, loc); err != nil {
			return nil, err
		}
		if s.NursesOnDuty, err = t.requiredInt(colNurses); err != nil {
			return nil, err
		}
		if s.DoctorsOnDuty, err = t.requiredInt(colDoctors); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
}
