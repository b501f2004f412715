// Package forecast adapts the trained time-series model to an N-day
// abandonment forecast, with an explicit unavailable signal when no model
// is loaded. It never fabricates a sequence.
package forecast

import (
	"context"
	"errors"
	"fmt"

	"github.com/cartguard/cartguard/internal/artifacts"
	"github.com/cartguard/cartguard/internal/logging"
)

// ErrUnavailable signals that no forecast can be produced. Callers surface
// this as an explicit "unavailable" state, never as a fabricated result.
var ErrUnavailable = errors.New("forecaster unavailable")

// Result is an N-step-ahead forecast of daily abandonment counts.
type Result struct {
	HorizonDays int       `json:"horizonDays"`
	Values      []float64 `json:"values"`
}

// Adapter wraps the forecaster capability from the loaded artifacts.
type Adapter struct {
	artifacts *artifacts.Artifacts
}

// NewAdapter creates a forecast adapter over the loaded artifacts.
func NewAdapter(a *artifacts.Artifacts) *Adapter {
	return &Adapter{artifacts: a}
}

// Available reports whether the forecaster artifact is loaded.
func (a *Adapter) Available() bool {
	return a.artifacts.Forecaster != nil
}

// Forecast produces a horizonDays-step forecast, or ErrUnavailable when the
// forecaster is absent or misbehaves. The returned values always have
// length == horizonDays; a model returning any other length is an internal
// error, not something to pad or truncate.
func (a *Adapter) Forecast(ctx context.Context, horizonDays int) (*Result, error) {
	if horizonDays <= 0 {
		return nil, fmt.Errorf("horizonDays must be positive, got %d", horizonDays)
	}

	f := a.artifacts.Forecaster
	if f == nil {
		return nil, ErrUnavailable
	}

	values, err := f.Forecast(horizonDays)
	if err != nil {
		logging.L(ctx).Warn("forecaster failed", "horizon_days", horizonDays, "error", err)
		return nil, ErrUnavailable
	}
	if len(values) != horizonDays {
		logging.L(ctx).Error("forecaster returned wrong length",
			"want", horizonDays,
			"got", len(values),
		)
		return nil, ErrUnavailable
	}

	return &Result{HorizonDays: horizonDays, Values: values}, nil
}
