// Package resources holds the process-wide models and reference tables the
// API serves from. Everything is loaded once before the HTTP server starts
// and is read-only afterwards, so concurrent handlers share it without
// locking.
package resources

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/meridian/er/internal/domain/reference"
	"github.com/meridian/er/internal/platform/ml"
)

var ErrMissingFile = errors.New("required file not found")

// Paths locates the model artifacts and, for the CSV source, the datasets.
type Paths struct {
	TriageModel   string
	VolumeModel   string
	WaitTimeModel string
	Visits        string
	Staffing      string
}

// required lists every file that must exist. Dataset paths left empty are
// not checked; the tables then come from another Source.
func (p Paths) required() []string {
	out := []string{p.TriageModel, p.VolumeModel, p.WaitTimeModel}
	if p.Visits != "" {
		out = append(out, p.Visits)
	}
	if p.Staffing != "" {
		out = append(out, p.Staffing)
	}
	return out
}

// Store is the loaded, immutable resource set.
type Store struct {
	Triage   ml.Classifier
	Volume   ml.Forecaster
	WaitTime ml.Regressor
	Visits   []reference.VisitRecord
	Staffing []reference.StaffingRecord
}

// Load verifies every required file exists, then reads the three models and
// both reference tables. If src is nil the tables are read from the CSV
// paths. Any failure aborts the whole load.
func Load(ctx context.Context, paths Paths, src reference.Source, logger zerolog.Logger) (*Store, error) {
	for _, p := range paths.required() {
		if p == "" {
			return nil, fmt.Errorf("%w: empty path", ErrMissingFile)
		}
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrMissingFile, p)
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
	}
	if src == nil {
		if paths.Visits == "" || paths.Staffing == "" {
			return nil, fmt.Errorf("%w: dataset paths are required without a reference source", ErrMissingFile)
		}
		src = reference.NewCSVSource(paths.Visits, paths.Staffing)
	}

	triage, err := ml.LoadClassifier(paths.TriageModel)
	if err != nil {
		return nil, fmt.Errorf("load triage model: %w", err)
	}
	volume, err := ml.LoadForecaster(paths.VolumeModel)
	if err != nil {
		return nil, fmt.Errorf("load volume model: %w", err)
	}
	wait, err := ml.LoadRegressor(paths.WaitTimeModel)
	if err != nil {
		return nil, fmt.Errorf("load wait-time model: %w", err)
	}

	visits, err := src.Visits(ctx)
	if err != nil {
		return nil, fmt.Errorf("load visit history: %w", err)
	}
	staffing, err := src.Staffing(ctx)
	if err != nil {
		return nil, fmt.Errorf("load staffing schedule: %w", err)
	}

	s := &Store{
		Triage:   triage,
		Volume:   volume,
		WaitTime: wait,
		Visits:   visits,
		Staffing: staffing,
	}
	logger.Info().
		Int("visits", len(visits)).
		Int("staffing_rows", len(staffing)).
		Ints("triage_classes", triage.Classes()).
		Msg("resources loaded")
	return s, nil
}

// Summary describes the loaded resources for health and CLI output.
type Summary struct {
	Visits        int   `json:"visits"`
	StaffingRows  int   `json:"staffing_rows"`
	TriageClasses []int `json:"triage_classes"`
}

func (s *Store) Summary() Summary {
	sum := Summary{Visits: len(s.Visits), StaffingRows: len(s.Staffing)}
	if s.Triage != nil {
		sum.TriageClasses = s.Triage.Classes()
	}
	return sum
}
