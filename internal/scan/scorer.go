package scan

import (
	"context"
	"time"

	"github.com/cartguard/cartguard/internal/artifacts"
	"github.com/cartguard/cartguard/internal/features"
	"github.com/cartguard/cartguard/internal/idgen"
	"github.com/cartguard/cartguard/internal/logging"
	"github.com/cartguard/cartguard/internal/metrics"
)

// DefaultFallbackRiskPct is the score returned when no classifier is
// available and no override matched.
const DefaultFallbackRiskPct = 15

// Scorer turns session features into a risk assessment via the three-tier
// cascade: override rules, then the classifier, then the fallback constant.
// Stateless given its inputs and the shared read-only artifacts; safe for
// concurrent use.
type Scorer struct {
	artifacts   *artifacts.Artifacts
	fallbackPct int
	store       Store
}

// NewScorer creates a scorer over the loaded artifacts. The store receives
// a best-effort audit record per scan and may be nil.
func NewScorer(a *artifacts.Artifacts, store Store) *Scorer {
	return &Scorer{
		artifacts:   a,
		fallbackPct: DefaultFallbackRiskPct,
		store:       store,
	}
}

// WithFallbackRiskPct overrides the default fallback score.
func (s *Scorer) WithFallbackRiskPct(pct int) *Scorer {
	s.fallbackPct = pct
	return s
}

// Score evaluates one session. It is total: for any valid features and any
// artifact state it returns an assessment with RiskPct in [0,100] and never
// returns an error.
func (s *Scorer) Score(ctx context.Context, f features.SessionFeatures) *RiskAssessment {
	a := &RiskAssessment{
		ID:          idgen.WithPrefix("scan_"),
		IsBot:       IsBot(f),
		EvaluatedAt: time.Now(),
	}

	if rule, ok := matchOverride(f); ok {
		a.RiskPct = rule.RiskPct
		a.Source = SourceOverride
		a.Rule = rule.Name
		metrics.OverrideHitsTotal.WithLabelValues(rule.Name).Inc()
	} else {
		a.RiskPct, a.Source = s.modelOrFallback(ctx, f)
	}

	metrics.ScansTotal.WithLabelValues(string(a.Source)).Inc()
	metrics.ScanRiskPct.Observe(float64(a.RiskPct))
	if a.IsBot {
		metrics.BotDetectionsTotal.Inc()
	}

	return a
}

// modelOrFallback runs the classifier tier, falling through to the constant
// fallback when the classifier is absent or misbehaves.
func (s *Scorer) modelOrFallback(ctx context.Context, f features.SessionFeatures) (int, Source) {
	c := s.artifacts.Classifier
	if c == nil {
		return s.fallbackPct, SourceFallback
	}

	p, err := c.PredictProba(f.Vector())
	if err != nil {
		// InferenceFailure: absorbed, logged, never surfaced
		logging.L(ctx).Warn("classifier inference failed, using fallback tier", "error", err)
		return s.fallbackPct, SourceFallback
	}

	pct := int(p * 100) // truncate, matching the trained calibration
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct, SourceModel
}

// RecordScan persists the full audit record asynchronously (best effort).
func (s *Scorer) RecordScan(rec *Record) {
	if s.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.Record(ctx, rec); err != nil {
			logging.L(ctx).Warn("failed to record scan", "scan_id", rec.Assessment.ID, "error", err)
		}
	}()
}
