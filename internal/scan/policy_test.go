package scan

import "testing"

func TestDecideThresholds(t *testing.T) {
	cases := []struct {
		riskPct        int
		wantAction     Action
		wantHesitation Hesitation
	}{
		{0, ActionNone, HesitationLow},
		{35, ActionNone, HesitationLow},
		{36, ActionNone, HesitationModerate},
		{50, ActionNone, HesitationModerate},
		{51, ActionFreeShipping, HesitationModerate},
		{80, ActionFreeShipping, HesitationModerate},
		{81, ActionDiscount20, HesitationCritical},
		{100, ActionDiscount20, HesitationCritical},
	}
	for _, tc := range cases {
		a := &RiskAssessment{RiskPct: tc.riskPct}
		d := Decide(a)
		if d.Action != tc.wantAction || d.Hesitation != tc.wantHesitation {
			t.Errorf("Decide(risk=%d) = %s/%s, want %s/%s",
				tc.riskPct, d.Action, d.Hesitation, tc.wantAction, tc.wantHesitation)
		}
	}
}

func TestDecideBotPreemptsDiscounts(t *testing.T) {
	// Even a low-risk bot gets challenged, never paid
	for _, risk := range []int{10, 55, 95} {
		d := Decide(&RiskAssessment{RiskPct: risk, IsBot: true})
		if d.Action != ActionCaptcha {
			t.Errorf("bot at risk %d got %s, want %s", risk, d.Action, ActionCaptcha)
		}
		if d.Hesitation != HesitationCritical {
			t.Errorf("bot at risk %d got hesitation %s, want critical", risk, d.Hesitation)
		}
	}
}

func TestDecideDeterministic(t *testing.T) {
	a := &RiskAssessment{RiskPct: 67}
	first := Decide(a)
	for i := 0; i < 10; i++ {
		if got := Decide(a); got != first {
			t.Fatalf("Decide not deterministic: %v vs %v", got, first)
		}
	}
}
