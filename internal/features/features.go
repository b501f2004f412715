// Package features defines the session telemetry model and the fixed-width
// numeric vector the abandonment classifier was trained on.
package features

import (
	"errors"
	"fmt"
	"strings"
)

// Input bounds for a single checkout session scan.
const (
	MinItemCount = 1
	MaxItemCount = 100
)

// VectorWidth is the width of the classifier's input vector. The trained
// model consumes four live signals plus six reserved zero-filled slots;
// the width is part of the artifact contract and must never change without
// retraining.
const VectorWidth = 10

// Platform identifies the client device class.
type Platform string

const (
	PlatformDesktop Platform = "desktop"
	PlatformMobile  Platform = "mobile"
)

// FunnelStage identifies where in the checkout funnel the session sits.
type FunnelStage string

const (
	StageCart     FunnelStage = "cart"
	StageShipping FunnelStage = "shipping"
	StagePayment  FunnelStage = "payment"
	StageReview   FunnelStage = "review"
)

// Stages lists all funnel stages in checkout order.
var Stages = []FunnelStage{StageCart, StageShipping, StagePayment, StageReview}

var (
	ErrInvalidPlatform = errors.New("invalid platform")
	ErrInvalidStage    = errors.New("invalid funnel stage")
)

// ParsePlatform parses a platform string (case-insensitive).
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformDesktop:
		return PlatformDesktop, nil
	case PlatformMobile:
		return PlatformMobile, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, s)
}

// ParseStage parses a funnel stage string (case-insensitive).
func ParseStage(s string) (FunnelStage, error) {
	switch FunnelStage(strings.ToLower(strings.TrimSpace(s))) {
	case StageCart:
		return StageCart, nil
	case StageShipping:
		return StageShipping, nil
	case StagePayment:
		return StagePayment, nil
	case StageReview:
		return StageReview, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
}

// SessionFeatures is the fixed set of signals describing one checkout
// attempt. Immutable once constructed for a given scan.
type SessionFeatures struct {
	ItemCount    int         `json:"itemCount"`
	CartValue    float64     `json:"cartValue"`
	DwellMinutes float64     `json:"dwellMinutes"`
	Platform     Platform    `json:"platform"`
	FunnelStage  FunnelStage `json:"funnelStage"`
}

// Validate checks the inference input bounds.
func (f SessionFeatures) Validate() error {
	if f.ItemCount < MinItemCount || f.ItemCount > MaxItemCount {
		return fmt.Errorf("itemCount must be in [%d,%d], got %d", MinItemCount, MaxItemCount, f.ItemCount)
	}
	if f.CartValue <= 0 {
		return fmt.Errorf("cartValue must be positive, got %v", f.CartValue)
	}
	if f.DwellMinutes <= 0 {
		return fmt.Errorf("dwellMinutes must be positive, got %v", f.DwellMinutes)
	}
	if _, err := ParsePlatform(string(f.Platform)); err != nil {
		return err
	}
	if _, err := ParseStage(string(f.FunnelStage)); err != nil {
		return err
	}
	return nil
}

// platformCode maps the platform enum to the numeric code used at training
// time: desktop=0, mobile=1.
func platformCode(p Platform) float64 {
	if p == PlatformMobile {
		return 1
	}
	return 0
}

// Vector builds the fixed-width numeric feature vector in the order the
// classifier expects: item count, cart value, dwell minutes, platform code,
// then reserved zero slots.
func (f SessionFeatures) Vector() []float64 {
	v := make([]float64, VectorWidth)
	v[0] = float64(f.ItemCount)
	v[1] = f.CartValue
	v[2] = f.DwellMinutes
	v[3] = platformCode(f.Platform)
	// v[4:] stay zero: reserved slots from the training schema
	return v
}
