package artifacts

import (
	"fmt"
	"math"
)

// Forecaster is a serialized ARIMA(1,1,1)-order model over daily aggregate
// abandonment counts, exported by the offline time-series training script.
// It carries the fitted coefficients plus the tail state needed to roll the
// recursion forward from the end of the training series.
type Forecaster struct {
	header
	AR           float64   `json:"ar"`            // autoregressive coefficient on the differenced series
	MA           float64   `json:"ma"`            // moving-average coefficient
	LastLevel    float64   `json:"last_level"`    // last observed count
	LastDiff     float64   `json:"last_diff"`     // last observed first difference
	LastResidual float64   `json:"last_residual"` // final in-sample residual
	History      []float64 `json:"history"`       // recent observed counts, for context endpoints
}

func loadForecaster(path string) (*Forecaster, error) {
	var f Forecaster
	if err := readArtifact(path, "forecaster", &f); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	return &f, nil
}

func (f *Forecaster) validate() error {
	for _, v := range []float64{f.AR, f.MA, f.LastLevel, f.LastDiff, f.LastResidual} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite coefficient in forecaster state")
		}
	}
	// |AR| >= 1 means the differenced recursion diverges
	if math.Abs(f.AR) >= 1 {
		return fmt.Errorf("non-stationary AR coefficient %v", f.AR)
	}
	return nil
}

// Forecast rolls the model forward steps days and returns the predicted
// counts. Counts are floored at zero; a negative abandonment count is not
// meaningful.
func (f *Forecaster) Forecast(steps int) ([]float64, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d", steps)
	}

	out := make([]float64, 0, steps)
	level := f.LastLevel
	diff := f.LastDiff
	resid := f.LastResidual

	for i := 0; i < steps; i++ {
		diff = f.AR*diff + f.MA*resid
		resid = 0 // future shocks have zero expectation
		level += diff
		if level < 0 {
			level = 0
		}
		out = append(out, math.Round(level*100)/100)
	}
	return out, nil
}
