package reference

import (
	"context"
	"errors"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrBadTimestamp  = errors.New("timestamp does not match expected format")
)

// Source yields the two read-only reference tables.
type Source interface {
	Visits(ctx context.Context) ([]VisitRecord, error)
	Staffing(ctx context.Context) ([]StaffingRecord, error)
}
