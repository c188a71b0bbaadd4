package ml

import (
	"fmt"
	"time"
)

// SARIMA is a fitted seasonal ARIMA(p,d,q)(P,D,Q,s) model together with the
// tail of the series it was fitted on. AR coefficients follow the
// (1 - φ1 B - ...) convention and MA coefficients the (1 + θ1 B + ...)
// convention.
type SARIMA struct {
	Order         [3]int    `json:"order"`
	SeasonalOrder [4]int    `json:"seasonal_order"`
	AR            []float64 `json:"ar"`
	MA            []float64 `json:"ma"`
	SeasonalAR    []float64 `json:"seasonal_ar"`
	SeasonalMA    []float64 `json:"seasonal_ma"`
	Intercept     float64   `json:"intercept"`
	// History holds the most recent observations, oldest first.
	History []float64 `json:"history"`
	// Residuals holds in-sample one-step errors aligned with the end of History.
	Residuals     []float64 `json:"residuals"`
	LastTimestamp time.Time `json:"last_timestamp"`
	Frequency     string    `json:"frequency"`

	step time.Duration
	ar   []float64 // full autoregressive polynomial on y, ar[0] == 1
	ma   []float64 // full moving-average polynomial on e, ma[0] == 1
}

func (m *SARIMA) prepare() error {
	p, d, q := m.Order[0], m.Order[1], m.Order[2]
	sp, sd, sq, s := m.SeasonalOrder[0], m.SeasonalOrder[1], m.SeasonalOrder[2], m.SeasonalOrder[3]
	if p < 0 || d < 0 || q < 0 || sp < 0 || sd < 0 || sq < 0 || s < 0 {
		return fmt.Errorf("%w: negative order", ErrInvalidArtifact)
	}
	if len(m.AR) != p || len(m.MA) != q || len(m.SeasonalAR) != sp || len(m.SeasonalMA) != sq {
		return fmt.Errorf("%w: coefficient counts do not match order", ErrInvalidArtifact)
	}
	if (sp > 0 || sd > 0 || sq > 0) && s < 2 {
		return fmt.Errorf("%w: seasonal terms need a period of at least 2", ErrInvalidArtifact)
	}

	step, err := time.ParseDuration(m.Frequency)
	if err != nil || step <= 0 {
		return fmt.Errorf("%w: frequency %q", ErrInvalidArtifact, m.Frequency)
	}
	m.step = step

	ar := lagPolynomial(m.AR, 1, -1)
	ar = polyMul(ar, lagPolynomial(m.SeasonalAR, s, -1))
	for i := 0; i < d; i++ {
		ar = polyMul(ar, []float64{1, -1})
	}
	for i := 0; i < sd; i++ {
		ar = polyMul(ar, differencing(s))
	}
	ma := lagPolynomial(m.MA, 1, 1)
	ma = polyMul(ma, lagPolynomial(m.SeasonalMA, s, 1))
	m.ar, m.ma = ar, ma

	if len(m.History) < len(ar)-1 {
		return fmt.Errorf("%w: need %d history points, have %d", ErrInvalidArtifact, len(ar)-1, len(m.History))
	}
	if len(m.Residuals) > len(m.History) {
		return fmt.Errorf("%w: more residuals than history", ErrInvalidArtifact)
	}
	return nil
}

// Forecast implements Forecaster. Future shocks are taken as zero, giving the
// conditional mean at each step.
func (m *SARIMA) Forecast(steps int) ([]ForecastPoint, error) {
	if steps < 0 || steps > MaxForecastSteps {
		return nil, fmt.Errorf("%w: %d steps, want 0..%d", ErrHorizon, steps, MaxForecastSteps)
	}
	n := len(m.History)
	y := make([]float64, n, n+steps)
	copy(y, m.History)
	e := make([]float64, n+steps)
	copy(e[n-len(m.Residuals):], m.Residuals)

	out := make([]ForecastPoint, 0, steps)
	for h := 0; h < steps; h++ {
		t := n + h
		v := m.Intercept
		for k := 1; k < len(m.ar); k++ {
			v -= m.ar[k] * y[t-k]
		}
		for k := 1; k < len(m.ma); k++ {
			if t-k >= 0 {
				v += m.ma[k] * e[t-k]
			}
		}
		y = append(y, v)
		out = append(out, ForecastPoint{
			Time: m.LastTimestamp.Add(time.Duration(h+1) * m.step),
			Mean: v,
		})
	}
	return out, nil
}

// lagPolynomial builds 1 + sign*(c1 B^lag + c2 B^(2 lag) + ...).
func lagPolynomial(coefs []float64, lag int, sign float64) []float64 {
	poly := make([]float64, len(coefs)*lag+1)
	poly[0] = 1
	for i, c := range coefs {
		poly[(i+1)*lag] = sign * c
	}
	return poly
}

func differencing(s int) []float64 {
	poly := make([]float64, s+1)
	poly[0] = 1
	poly[s] = -1
	return poly
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}
