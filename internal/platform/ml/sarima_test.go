package ml

import (
	"errors"
	"math"
	"testing"
	"time"
)

var lastTS = time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC)

func TestSARIMA_AR1(t *testing.T) {
	m := &SARIMA{
		Order:         [3]int{1, 0, 0},
		AR:            []float64{0.5},
		History:       []float64{3, 10},
		LastTimestamp: lastTS,
		Frequency:     "1h",
	}
	if err := m.prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	out, err := m.Forecast(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{5, 2.5, 1.25}
	for i, p := range out {
		if math.Abs(p.Mean-want[i]) > 1e-9 {
			t.Errorf("step %d: got %v, want %v", i, p.Mean, want[i])
		}
	}
	if !out[0].Time.Equal(lastTS.Add(time.Hour)) {
		t.Errorf("first step time = %v", out[0].Time)
	}
	if !out[2].Time.Equal(lastTS.Add(3 * time.Hour)) {
		t.Errorf("third step time = %v", out[2].Time)
	}
}

func TestSARIMA_RandomWalkHoldsLastValue(t *testing.T) {
	m := &SARIMA{
		Order:         [3]int{0, 1, 0},
		History:       []float64{4, 7},
		LastTimestamp: lastTS,
		Frequency:     "1h",
	}
	if err := m.prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	out, _ := m.Forecast(5)
	for i, p := range out {
		if p.Mean != 7 {
			t.Errorf("step %d: got %v, want 7", i, p.Mean)
		}
	}
}

func TestSARIMA_SeasonalDifferencingRepeatsLastSeason(t *testing.T) {
	hist := make([]float64, 8)
	for i := range hist {
		hist[i] = float64(i % 4 * 10)
	}
	m := &SARIMA{
		SeasonalOrder: [4]int{0, 1, 0, 4},
		History:       hist,
		LastTimestamp: lastTS,
		Frequency:     "1h",
	}
	if err := m.prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	out, _ := m.Forecast(6)
	want := []float64{0, 10, 20, 30, 0, 10}
	for i, p := range out {
		if math.Abs(p.Mean-want[i]) > 1e-9 {
			t.Errorf("step %d: got %v, want %v", i, p.Mean, want[i])
		}
	}
}

func TestSARIMA_MAUsesResiduals(t *testing.T) {
	m := &SARIMA{
		Order:         [3]int{0, 0, 1},
		MA:            []float64{0.4},
		Intercept:     10,
		History:       []float64{12},
		Residuals:     []float64{2},
		LastTimestamp: lastTS,
		Frequency:     "30m",
	}
	if err := m.prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	out, _ := m.Forecast(2)
	if math.Abs(out[0].Mean-10.8) > 1e-9 {
		t.Errorf("step 0: got %v, want 10.8", out[0].Mean)
	}
	if out[1].Mean != 10 {
		t.Errorf("step 1: got %v, want 10", out[1].Mean)
	}
	if !out[1].Time.Equal(lastTS.Add(time.Hour)) {
		t.Errorf("step 1 time = %v", out[1].Time)
	}
}

func TestSARIMA_ZeroSteps(t *testing.T) {
	m := &SARIMA{History: []float64{1}, Frequency: "1h"}
	if err := m.prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	out, err := m.Forecast(0)
	if err != nil || len(out) != 0 {
		t.Fatalf("got %v, %v", out, err)
	}
}

func TestSARIMA_HorizonOutOfRange(t *testing.T) {
	m := &SARIMA{History: []float64{1}, Frequency: "1h"}
	if err := m.prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	for _, steps := range []int{-1, MaxForecastSteps + 1, math.MaxInt} {
		if _, err := m.Forecast(steps); !errors.Is(err, ErrHorizon) {
			t.Errorf("Forecast(%d): expected ErrHorizon, got %v", steps, err)
		}
	}
}

func TestSARIMA_PrepareErrors(t *testing.T) {
	tests := []struct {
		name string
		m    SARIMA
	}{
		{"coef mismatch", SARIMA{Order: [3]int{2, 0, 0}, AR: []float64{0.1}, Frequency: "1h"}},
		{"short history", SARIMA{SeasonalOrder: [4]int{0, 1, 0, 24}, History: []float64{1, 2}, Frequency: "1h"}},
		{"bad frequency", SARIMA{Frequency: "hourly"}},
		{"seasonal without period", SARIMA{SeasonalOrder: [4]int{1, 0, 0, 0}, SeasonalAR: []float64{0.2}, Frequency: "1h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.m.prepare(); !errors.Is(err, ErrInvalidArtifact) {
				t.Errorf("expected ErrInvalidArtifact, got %v", err)
			}
		})
	}
}

func TestPolyMul(t *testing.T) {
	// (1 - 0.5B)(1 - B) = 1 - 1.5B + 0.5B^2
	got := polyMul([]float64{1, -0.5}, []float64{1, -1})
	want := []float64{1, -1.5, 0.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
