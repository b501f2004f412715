package scan

import "github.com/cartguard/cartguard/internal/features"

// Override rules exist because sparse training data cannot be trusted at
// the extremes. The unambiguous signatures below bypass the model entirely
// and pin the score, regardless of model quality. Evaluation is ordered,
// first match wins.

// Override rule thresholds.
const (
	panicCheckoutValue = 1000.0 // cart value at or above this
	panicCheckoutDwell = 1.0    // with dwell at or below this
	panicCheckoutRisk  = 92

	mobileHighValue = 600.0 // mobile carts above this
	mobileMaxDwell  = 2.0   // with dwell below this
	mobileHighRisk  = 82
)

// Bot predicate thresholds.
const (
	botItemCount  = 25
	botMaxDwell   = 0.5
	botCartValue  = 5000.0
	botBulkItems  = 40
)

type overrideRule struct {
	Name    string
	RiskPct int
	Match   func(features.SessionFeatures) bool
}

var overrideRules = []overrideRule{
	{
		Name:    "panic_checkout",
		RiskPct: panicCheckoutRisk,
		Match: func(f features.SessionFeatures) bool {
			return f.CartValue >= panicCheckoutValue && f.DwellMinutes <= panicCheckoutDwell
		},
	},
	{
		Name:    "mobile_high_value",
		RiskPct: mobileHighRisk,
		Match: func(f features.SessionFeatures) bool {
			return f.Platform == features.PlatformMobile &&
				f.CartValue > mobileHighValue &&
				f.DwellMinutes < mobileMaxDwell
		},
	},
}

// matchOverride returns the first matching override rule, if any.
func matchOverride(f features.SessionFeatures) (overrideRule, bool) {
	for _, r := range overrideRules {
		if r.Match(f) {
			return r, true
		}
	}
	return overrideRule{}, false
}

// IsBot evaluates the bot predicate. It is independent of the override
// rules: a session can match an override and still be a bot.
func IsBot(f features.SessionFeatures) bool {
	if f.ItemCount > botItemCount && f.DwellMinutes < botMaxDwell {
		return true
	}
	return f.CartValue > botCartValue && f.ItemCount > botBulkItems
}
