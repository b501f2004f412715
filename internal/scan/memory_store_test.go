package scan

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cartguard/cartguard/internal/features"
)

func testRecord(id string, riskPct int, isBot bool, stage features.FunnelStage) *Record {
	return &Record{
		Assessment: RiskAssessment{
			ID:          id,
			RiskPct:     riskPct,
			IsBot:       isBot,
			Source:      SourceModel,
			EvaluatedAt: time.Now(),
		},
		Features: features.SessionFeatures{
			ItemCount:    2,
			CartValue:    50,
			DwellMinutes: 3,
			Platform:     features.PlatformDesktop,
			FunnelStage:  stage,
		},
		Decision: RecoveryDecision{Action: ActionNone, Hesitation: HesitationLow},
	}
}

func TestMemoryStoreListRecentOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Record(ctx, testRecord(fmt.Sprintf("scan_%d", i), 20, false, features.StageCart)); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := store.ListRecent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	// Newest first
	if recs[0].Assessment.ID != "scan_4" || recs[2].Assessment.ID != "scan_2" {
		t.Errorf("wrong order: %s ... %s", recs[0].Assessment.ID, recs[2].Assessment.ID)
	}
}

func TestMemoryStoreDefaultLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		_ = store.Record(ctx, testRecord(fmt.Sprintf("scan_%d", i), 20, false, features.StageCart))
	}

	recs, err := store.ListRecent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 50 {
		t.Errorf("default limit should cap at 50, got %d", len(recs))
	}
}

func TestMemoryStoreStageSummary(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Record(ctx, testRecord("a", 40, false, features.StageCart))
	_ = store.Record(ctx, testRecord("b", 60, true, features.StageCart))
	_ = store.Record(ctx, testRecord("c", 90, false, features.StagePayment))

	stats, err := store.StageSummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != len(features.Stages) {
		t.Fatalf("got %d stages, want %d", len(stats), len(features.Stages))
	}

	// Checkout order with empty stages included
	for i, stage := range features.Stages {
		if stats[i].Stage != stage {
			t.Errorf("position %d = %s, want %s", i, stats[i].Stage, stage)
		}
	}

	cart := stats[0]
	if cart.Scans != 2 || cart.Bots != 1 || cart.MeanRiskPct != 50 {
		t.Errorf("cart stats = %+v, want 2 scans / 1 bot / mean 50", cart)
	}
	shipping := stats[1]
	if shipping.Scans != 0 || shipping.MeanRiskPct != 0 {
		t.Errorf("empty stage should report zeros, got %+v", shipping)
	}
	payment := stats[2]
	if payment.Scans != 1 || payment.MeanRiskPct != 90 {
		t.Errorf("payment stats = %+v", payment)
	}
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := testRecord("a", 40, false, features.StageCart)
	_ = store.Record(ctx, rec)
	rec.Assessment.RiskPct = 99 // mutate the caller's copy

	recs, _ := store.ListRecent(ctx, 1)
	if recs[0].Assessment.RiskPct != 40 {
		t.Error("store should keep its own copy of the record")
	}
}
