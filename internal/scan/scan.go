// Package scan implements the risk inference and decision pipeline.
//
// Every session scan runs through three tiers: deterministic override rules
// for unambiguous extremes, the trained classifier for the ambiguous middle,
// and a constant fallback when no model is available or inference fails.
// A scan always produces a usable score; failures inside the pipeline are
// absorbed, never surfaced to the caller.
package scan

import (
	"context"
	"time"

	"github.com/cartguard/cartguard/internal/features"
)

// Source identifies which tier produced a risk score.
type Source string

const (
	SourceOverride Source = "override"
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Action is the recovery intervention chosen for a scanned session.
type Action string

const (
	ActionNone         Action = "none"
	ActionFreeShipping Action = "free_shipping"
	ActionDiscount20   Action = "discount20"
	ActionDiscount25   Action = "discount25"
	ActionCaptcha      Action = "captcha"
)

// Hesitation is the qualitative label attached to a risk level.
type Hesitation string

const (
	HesitationLow      Hesitation = "low"
	HesitationModerate Hesitation = "moderate"
	HesitationCritical Hesitation = "critical"
)

// RiskAssessment is the result of scoring a single session.
// Produced fresh per scan; never mutated after creation.
type RiskAssessment struct {
	ID          string    `json:"id"`
	RiskPct     int       `json:"riskPct"` // 0-100
	IsBot       bool      `json:"isBot"`
	Source      Source    `json:"source"`
	Rule        string    `json:"rule,omitempty"` // override rule name when Source == override
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// RecoveryDecision maps an assessment to an intervention.
type RecoveryDecision struct {
	Action     Action     `json:"action"`
	Hesitation Hesitation `json:"hesitation"`
}

// Record is the stored audit form of one scan: the inputs, the assessment,
// and the decision taken.
type Record struct {
	Assessment RiskAssessment           `json:"assessment"`
	Features   features.SessionFeatures `json:"features"`
	Decision   RecoveryDecision         `json:"decision"`
}

// StageStats aggregates recorded scans for one funnel stage.
type StageStats struct {
	Stage       features.FunnelStage `json:"stage"`
	Scans       int                  `json:"scans"`
	MeanRiskPct float64              `json:"meanRiskPct"`
	Bots        int                  `json:"bots"`
}

// Store persists scan records for the audit trail and journey analytics.
type Store interface {
	Record(ctx context.Context, rec *Record) error
	ListRecent(ctx context.Context, limit int) ([]*Record, error)
	StageSummary(ctx context.Context) ([]StageStats, error)
}
