package scan

import (
	"context"
	"sync"

	"github.com/cartguard/cartguard/internal/features"
)

// maxMemoryRecords caps the in-memory audit trail.
const maxMemoryRecords = 10000

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
}

// NewMemoryStore creates an in-memory scan store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *rec
	s.records = append(s.records, &r)
	if len(s.records) > maxMemoryRecords {
		s.records = s.records[len(s.records)-maxMemoryRecords:]
	}
	return nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	start := len(s.records) - limit
	if start < 0 {
		start = 0
	}

	// Most recent first
	result := make([]*Record, 0, len(s.records)-start)
	for i := len(s.records) - 1; i >= start; i-- {
		r := *s.records[i]
		result = append(result, &r)
	}
	return result, nil
}

func (s *MemoryStore) StageSummary(ctx context.Context) ([]StageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byStage := make(map[features.FunnelStage]*StageStats)
	riskSums := make(map[features.FunnelStage]int)
	for _, rec := range s.records {
		st, ok := byStage[rec.Features.FunnelStage]
		if !ok {
			st = &StageStats{Stage: rec.Features.FunnelStage}
			byStage[rec.Features.FunnelStage] = st
		}
		st.Scans++
		riskSums[rec.Features.FunnelStage] += rec.Assessment.RiskPct
		if rec.Assessment.IsBot {
			st.Bots++
		}
	}

	// Stable checkout order, stages with no scans included
	result := make([]StageStats, 0, len(features.Stages))
	for _, stage := range features.Stages {
		st, ok := byStage[stage]
		if !ok {
			result = append(result, StageStats{Stage: stage})
			continue
		}
		st.MeanRiskPct = float64(riskSums[stage]) / float64(st.Scans)
		result = append(result, *st)
	}
	return result, nil
}
