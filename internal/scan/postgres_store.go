package scan

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cartguard/cartguard/internal/features"
)

// PostgresStore persists scan records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed scan store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the scans table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scans (
			id            VARCHAR(36) PRIMARY KEY,
			risk_pct      SMALLINT NOT NULL CHECK (risk_pct >= 0 AND risk_pct <= 100),
			is_bot        BOOLEAN NOT NULL,
			source        VARCHAR(10) NOT NULL CHECK (source IN ('override', 'model', 'fallback')),
			rule          VARCHAR(40),
			item_count    INTEGER NOT NULL,
			cart_value    NUMERIC(12,2) NOT NULL,
			dwell_minutes NUMERIC(8,2) NOT NULL,
			platform      VARCHAR(10) NOT NULL,
			funnel_stage  VARCHAR(10) NOT NULL,
			action        VARCHAR(20) NOT NULL,
			hesitation    VARCHAR(10) NOT NULL,
			evaluated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_scans_evaluated_at
			ON scans (evaluated_at DESC);

		CREATE INDEX IF NOT EXISTS idx_scans_stage
			ON scans (funnel_stage);
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, rec *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (
			id, risk_pct, is_bot, source, rule,
			item_count, cart_value, dwell_minutes, platform, funnel_stage,
			action, hesitation, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		rec.Assessment.ID,
		rec.Assessment.RiskPct,
		rec.Assessment.IsBot,
		string(rec.Assessment.Source),
		nullIfEmpty(rec.Assessment.Rule),
		rec.Features.ItemCount,
		rec.Features.CartValue,
		rec.Features.DwellMinutes,
		string(rec.Features.Platform),
		string(rec.Features.FunnelStage),
		string(rec.Decision.Action),
		string(rec.Decision.Hesitation),
		rec.Assessment.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, risk_pct, is_bot, source, rule,
		       item_count, cart_value, dwell_minutes, platform, funnel_stage,
		       action, hesitation, evaluated_at
		FROM scans
		ORDER BY evaluated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Record
	for rows.Next() {
		var rec Record
		var rule sql.NullString
		if err := rows.Scan(
			&rec.Assessment.ID,
			&rec.Assessment.RiskPct,
			&rec.Assessment.IsBot,
			&rec.Assessment.Source,
			&rule,
			&rec.Features.ItemCount,
			&rec.Features.CartValue,
			&rec.Features.DwellMinutes,
			&rec.Features.Platform,
			&rec.Features.FunnelStage,
			&rec.Decision.Action,
			&rec.Decision.Hesitation,
			&rec.Assessment.EvaluatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Assessment.Rule = rule.String
		result = append(result, &rec)
	}
	return result, rows.Err()
}

func (s *PostgresStore) StageSummary(ctx context.Context) ([]StageStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT funnel_stage,
		       COUNT(*),
		       AVG(risk_pct),
		       COUNT(*) FILTER (WHERE is_bot)
		FROM scans
		GROUP BY funnel_stage
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize stages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byStage := make(map[features.FunnelStage]StageStats)
	for rows.Next() {
		var st StageStats
		if err := rows.Scan(&st.Stage, &st.Scans, &st.MeanRiskPct, &st.Bots); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		byStage[st.Stage] = st
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stable checkout order, stages with no scans included
	result := make([]StageStats, 0, len(features.Stages))
	for _, stage := range features.Stages {
		st, ok := byStage[stage]
		if !ok {
			st = StageStats{Stage: stage}
		}
		result = append(result, st)
	}
	return result, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
