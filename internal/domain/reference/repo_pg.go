package reference

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxDB is the part of *pgxpool.Pool the source uses.
type pgxDB interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGSource reads the reference tables from Postgres (visit_history and
// staffing_schedule, see migrations/).
type PGSource struct {
	db pgxDB
}

func NewPGSource(pool *pgxpool.Pool) *PGSource { return &PGSource{db: pool} }

var visitCols = []string{
	"visit_id", "patient_id", "arrival_time", "age", "gender", "insurance",
	"arrival_hour", "arrival_shift", "visit_day", "triage_level",
	"triage_level_standard", "wait_to_doctor_min", "total_er_time_min",
}

var staffingCols = []string{"date", "shift", "nurses_on_duty", "doctors_on_duty"}

// The scan targets and copy values below follow visitCols / staffingCols
// position by position.

func visitTargets(v *VisitRecord) []interface{} {
	return []interface{}{&v.VisitID, &v.PatientID, &v.ArrivalTime, &v.Age, &v.Gender, &v.Insurance,
		&v.ArrivalHour, &v.ArrivalShift, &v.VisitDay, &v.TriageLevel,
		&v.TriageLevelStandard, &v.WaitToDoctorMin, &v.TotalERTimeMin}
}

func visitValues(v VisitRecord) []interface{} {
	return []interface{}{v.VisitID, v.PatientID, v.ArrivalTime, v.Age, v.Gender, v.Insurance,
		v.ArrivalHour, v.ArrivalShift, v.VisitDay, v.TriageLevel,
		v.TriageLevelStandard, v.WaitToDoctorMin, v.TotalERTimeMin}
}

func staffingTargets(r *StaffingRecord) []interface{} {
	return []interface{}{&r.Date, &r.Shift, &r.NursesOnDuty, &r.DoctorsOnDuty}
}

func staffingValues(r StaffingRecord) []interface{} {
	return []interface{}{r.Date, r.Shift, r.NursesOnDuty, r.DoctorsOnDuty}
}

var (
	visitsQuery = "SELECT " + strings.Join(visitCols, ", ") +
		" FROM visit_history ORDER BY arrival_time, visit_id"
	staffingQuery = "SELECT " + strings.Join(staffingCols, ", ") +
		" FROM staffing_schedule ORDER BY date, shift"
)

// Visits implements Source. Rows come back in arrival order.
func (s *PGSource) Visits(ctx context.Context) ([]VisitRecord, error) {
	rows, err := s.db.Query(ctx, visitsQuery)
	if err != nil {
		return nil, fmt.Errorf("query visit_history: %w", err)
	}
	defer rows.Close()

	var out []VisitRecord
	for rows.Next() {
		var v VisitRecord
		if err := rows.Scan(visitTargets(&v)...); err != nil {
			return nil, fmt.Errorf("scan visit_history: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Staffing implements Source.
func (s *PGSource) Staffing(ctx context.Context) ([]StaffingRecord, error) {
	rows, err := s.db.Query(ctx, staffingQuery)
	if err != nil {
		return nil, fmt.Errorf("query staffing_schedule: %w", err)
	}
	defer rows.Close()

	var out []StaffingRecord
	for rows.Next() {
		var r StaffingRecord
		if err := rows.Scan(staffingTargets(&r)...); err != nil {
			return nil, fmt.Errorf("scan staffing_schedule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Replace truncates both tables and bulk-loads the given records in one
// transaction.
func (s *PGSource) Replace(ctx context.Context, visits []VisitRecord, staffing []StaffingRecord) (int64, int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE visit_history, staffing_schedule`); err != nil {
		return 0, 0, fmt.Errorf("truncate reference tables: %w", err)
	}
	nv, err := tx.CopyFrom(ctx, pgx.Identifier{"visit_history"}, visitCols,
		pgx.CopyFromSlice(len(visits), func(i int) ([]interface{}, error) {
			return visitValues(visits[i]), nil
		}))
	if err != nil {
		return 0, 0, fmt.Errorf("copy visit_history: %w", err)
	}
	ns, err := tx.CopyFrom(ctx, pgx.Identifier{"staffing_schedule"}, staffingCols,
		pgx.CopyFromSlice(len(staffing), func(i int) ([]interface{}, error) {
			return staffingValues(staffing[i]), nil
		}))
	if err != nil {
		return 0, 0, fmt.Errorf("copy staffing_schedule: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}
	return nv, ns, nil
}
