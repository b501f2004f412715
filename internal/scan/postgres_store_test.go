package scan

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartguard/cartguard/internal/features"
)

func TestPostgresStoreRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	rec := testRecord("scan_abc", 92, false, features.StagePayment)
	rec.Assessment.Source = SourceOverride
	rec.Assessment.Rule = "panic_checkout"

	mock.ExpectExec("INSERT INTO scans").
		WithArgs(
			"scan_abc", 92, false, "override", "panic_checkout",
			rec.Features.ItemCount, rec.Features.CartValue, rec.Features.DwellMinutes,
			"desktop", "payment", "none", "low", rec.Assessment.EvaluatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Record(context.Background(), rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreRecordNullRule(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	rec := testRecord("scan_def", 15, false, features.StageCart)
	rec.Assessment.Source = SourceFallback

	// Empty rule is stored as NULL, not empty string
	mock.ExpectExec("INSERT INTO scans").
		WithArgs(
			"scan_def", 15, false, "fallback", nil,
			rec.Features.ItemCount, rec.Features.CartValue, rec.Features.DwellMinutes,
			"desktop", "cart", "none", "low", rec.Assessment.EvaluatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Record(context.Background(), rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "risk_pct", "is_bot", "source", "rule",
		"item_count", "cart_value", "dwell_minutes", "platform", "funnel_stage",
		"action", "hesitation", "evaluated_at",
	}).
		AddRow("scan_2", 82, false, "override", "mobile_high_value",
			3, 750.0, 1.5, "mobile", "payment", "discount20", "critical", now).
		AddRow("scan_1", 15, true, "fallback", nil,
			30, 300.0, 0.4, "desktop", "cart", "captcha", "critical", now.Add(-time.Minute))

	mock.ExpectQuery("SELECT (.+) FROM scans").
		WithArgs(10).
		WillReturnRows(rows)

	recs, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "scan_2", recs[0].Assessment.ID)
	assert.Equal(t, "mobile_high_value", recs[0].Assessment.Rule)
	assert.Equal(t, SourceOverride, recs[0].Assessment.Source)
	assert.Equal(t, "", recs[1].Assessment.Rule)
	assert.True(t, recs[1].Assessment.IsBot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreStageSummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	rows := sqlmock.NewRows([]string{"funnel_stage", "count", "avg", "bots"}).
		AddRow("payment", 3, 71.5, 1).
		AddRow("cart", 5, 22.0, 0)

	mock.ExpectQuery("SELECT funnel_stage").WillReturnRows(rows)

	stats, err := store.StageSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, len(features.Stages))

	// Checkout order regardless of query result order, gaps zero-filled
	assert.Equal(t, features.StageCart, stats[0].Stage)
	assert.Equal(t, 5, stats[0].Scans)
	assert.Equal(t, features.StageShipping, stats[1].Stage)
	assert.Equal(t, 0, stats[1].Scans)
	assert.Equal(t, features.StagePayment, stats[2].Stage)
	assert.Equal(t, 71.5, stats[2].MeanRiskPct)
	assert.Equal(t, 1, stats[2].Bots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreListRecentQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	mock.ExpectQuery("SELECT (.+) FROM scans").WillReturnError(assert.AnError)

	_, err = store.ListRecent(context.Background(), 10)
	assert.Error(t, err)
}
