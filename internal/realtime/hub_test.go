package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

func scanEvent(riskPct float64, isBot bool, stage string) *Event {
	return &Event{
		Type:      EventScan,
		Timestamp: time.Now(),
		Data: map[string]any{
			"riskPct":     riskPct,
			"isBot":       isBot,
			"funnelStage": stage,
		},
	}
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	if !h.shouldSend(client, scanEvent(10, false, "cart")) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventBotDetected, EventCriticalRisk},
	}}

	if !h.shouldSend(client, &Event{Type: EventBotDetected}) {
		t.Error("Should receive bot_detected events")
	}
	if !h.shouldSend(client, &Event{Type: EventCriticalRisk}) {
		t.Error("Should receive critical_risk events")
	}
	if h.shouldSend(client, &Event{Type: EventScan}) {
		t.Error("Should NOT receive plain scan events")
	}
}

func TestShouldSend_MinRiskFilter(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{MinRiskPct: 80}}

	if h.shouldSend(client, scanEvent(50, false, "payment")) {
		t.Error("Should NOT receive scans below the risk floor")
	}
	if !h.shouldSend(client, scanEvent(92, false, "payment")) {
		t.Error("Should receive high-risk scans")
	}
	if !h.shouldSend(client, scanEvent(80, false, "payment")) {
		t.Error("Floor is inclusive")
	}
}

func TestShouldSend_BotsOnly(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{BotsOnly: true}}

	if h.shouldSend(client, scanEvent(90, false, "cart")) {
		t.Error("Should NOT receive human scans")
	}
	if !h.shouldSend(client, scanEvent(15, true, "cart")) {
		t.Error("Should receive bot scans regardless of risk")
	}
}

func TestShouldSend_StageFilter(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{Stages: []string{"payment", "review"}}}

	if !h.shouldSend(client, scanEvent(40, false, "payment")) {
		t.Error("Should receive watched-stage scans")
	}
	if h.shouldSend(client, scanEvent(40, false, "cart")) {
		t.Error("Should NOT receive unwatched-stage scans")
	}
}

func TestShouldSend_CombinedFilters(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{MinRiskPct: 80, Stages: []string{"payment"}}}

	if !h.shouldSend(client, scanEvent(92, false, "payment")) {
		t.Error("Should receive events matching all filters")
	}
	if h.shouldSend(client, scanEvent(92, false, "cart")) {
		t.Error("Stage filter should still apply")
	}
	if h.shouldSend(client, scanEvent(40, false, "payment")) {
		t.Error("Risk filter should still apply")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHubBroadcastToRegisteredClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 8),
		sub:  Subscription{AllEvents: true},
	}
	h.register <- client

	h.BroadcastScan(map[string]any{"riskPct": 92.0, "isBot": false, "funnelStage": "payment"})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("empty broadcast payload")
		}
	case <-time.After(time.Second):
		t.Fatal("client never received the broadcast")
	}
}

func TestHubUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 8),
		sub:  Subscription{AllEvents: true},
	}
	h.register <- client
	h.unregister <- client

	// The send channel is closed on unregister
	select {
	case _, open := <-client.send:
		if open {
			t.Error("expected closed send channel after unregister")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHubStats(t *testing.T) {
	h := testHub()
	stats := h.Stats()
	if stats["connectedClients"] != 0 {
		t.Errorf("fresh hub reports %v clients", stats["connectedClients"])
	}
}
