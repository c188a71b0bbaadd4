// Package ml evaluates the trained models served by the ER API. Models are
// fitted offline and exported as JSON artifacts; this package only loads and
// evaluates them. Each model kind is exposed through a small capability
// interface so handlers never depend on a concrete algorithm.
package ml

import (
	"errors"
	"time"
)

var (
	ErrInvalidArtifact = errors.New("invalid model artifact")
	ErrMissingFeature  = errors.New("missing feature")
	ErrHorizon         = errors.New("forecast horizon out of range")
)

// MaxForecastSteps bounds a single forecast. Larger horizons would need
// buffers sized beyond what one response can carry.
const MaxForecastSteps = 100_000

// Row is a single model input keyed by column name, the same shape as one
// dataframe row in the training pipeline. Values are strings for categorical
// columns and numbers for numeric columns.
type Row map[string]interface{}

// Classifier predicts class membership probabilities.
type Classifier interface {
	// Classes returns the class labels in probability-vector order.
	Classes() []int
	PredictProba(rows []Row) ([][]float64, error)
}

// Regressor predicts one continuous value per row.
type Regressor interface {
	Predict(rows []Row) ([]float64, error)
}

// ForecastPoint is one step of a time-series forecast.
type ForecastPoint struct {
	Time time.Time
	Mean float64
}

// Forecaster projects a series forward from the end of its training data.
type Forecaster interface {
	Forecast(steps int) ([]ForecastPoint, error)
}

// Argmax returns the index of the largest probability. Ties resolve to the
// lowest index.
func Argmax(probs []float64) int {
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return best
}
