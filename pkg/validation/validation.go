// Package validation collects field-level request errors and renders them in
// the {"detail": [...]} shape the dashboard already understands.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// Error is returned when one or more fields fail validation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, strings.Join(f.Loc, ".")+": "+f.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// As extracts a validation error from err.
func As(err error) (*Error, bool) {
	var ve *Error
	ok := errors.As(err, &ve)
	return ve, ok
}

// Collector accumulates field errors for a single request. The zero value is
// ready to use.
type Collector struct {
	source string
	fields []FieldError
}

// NewCollector returns a collector whose locations start with source, e.g.
// "body" or "query".
func NewCollector(source string) *Collector {
	return &Collector{source: source}
}

func (c *Collector) add(field, msg, typ string) {
	loc := []string{field}
	if c.source != "" {
		loc = []string{c.source, field}
	}
	c.fields = append(c.fields, FieldError{Loc: loc, Msg: msg, Type: typ})
}

// Required records a missing field when present is false.
func (c *Collector) Required(field string, present bool) bool {
	if !present {
		c.add(field, "field required", "missing")
	}
	return present
}

// OneOf checks value against the allowed literals.
func (c *Collector) OneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	quoted := make([]string, len(allowed))
	for i, a := range allowed {
		quoted[i] = "'" + a + "'"
	}
	c.add(field, "Input should be "+strings.Join(quoted, ", "), "literal_error")
}

// Min checks value >= min.
func (c *Collector) Min(field string, value, min int) {
	if value < min {
		c.add(field, fmt.Sprintf("Input should be greater than or equal to %d", min), "greater_than_equal")
	}
}

// Max checks value <= max.
func (c *Collector) Max(field string, value, max int) {
	if value > max {
		c.add(field, fmt.Sprintf("Input should be less than or equal to %d", max), "less_than_equal")
	}
}

// Range checks min <= value <= max.
func (c *Collector) Range(field string, value, min, max int) {
	if value < min || value > max {
		c.add(field, fmt.Sprintf("Input should be between %d and %d", min, max), "range_error")
	}
}

// Fail records an arbitrary field error.
func (c *Collector) Fail(field, msg string) {
	c.add(field, msg, "value_error")
}

// Err returns nil when no field failed.
func (c *Collector) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &Error{Fields: c.fields}
}

// FromBind converts an echo binding failure into a field error when the
// failure is a JSON type mismatch, and otherwise returns it unchanged.
func FromBind(err error) error {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var ute *json.UnmarshalTypeError
	if errors.As(he.Internal, &ute) {
		c := NewCollector("body")
		c.add(ute.Field, "Input should be a valid "+ute.Type.String(), "type_error")
		return c.Err()
	}
	return he
}
