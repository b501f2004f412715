package scan

// Decision policy thresholds. These are tuned policy constants, not model
// parameters: risk strictly above each threshold selects the tier.
const (
	CriticalRiskPct = 80 // above: discount offer, critical hesitation
	ModerateRiskPct = 50 // above: free shipping, moderate hesitation
	WatchRiskPct    = 35 // above: no monetary action, moderate hesitation
)

// Decide maps an assessment to a recovery decision. Pure and total over all
// valid assessments: identical input always yields identical output.
//
// Bot handling pre-empts the discount ladder: a detected bot is challenged,
// never offered money.
func Decide(a *RiskAssessment) RecoveryDecision {
	if a.IsBot {
		return RecoveryDecision{Action: ActionCaptcha, Hesitation: HesitationCritical}
	}

	switch {
	case a.RiskPct > CriticalRiskPct:
		return RecoveryDecision{Action: ActionDiscount20, Hesitation: HesitationCritical}
	case a.RiskPct > ModerateRiskPct:
		return RecoveryDecision{Action: ActionFreeShipping, Hesitation: HesitationModerate}
	case a.RiskPct > WatchRiskPct:
		// Informational threshold only: flag hesitation, hold the budget
		return RecoveryDecision{Action: ActionNone, Hesitation: HesitationModerate}
	default:
		return RecoveryDecision{Action: ActionNone, Hesitation: HesitationLow}
	}
}
