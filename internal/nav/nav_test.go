package nav

import (
	"errors"
	"testing"
)

func acceptAll(_, _ string) bool  { return true }
func rejectAll(_, _ string) bool { return false }

func TestHappyPathTransitions(t *testing.T) {
	s := NewState()
	if s.Page != PageLanding || s.Authenticated {
		t.Fatalf("entry state = %+v, want landing/unauthenticated", s)
	}

	s, err := Initialize(s)
	if err != nil || s.Page != PageLogin {
		t.Fatalf("Initialize: %+v, %v", s, err)
	}

	s, err = Authorize(s, acceptAll, "ops", "secret")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if s.Page != PageDashboard || !s.Authenticated {
		t.Fatalf("post-authorize state = %+v", s)
	}

	s, err = Logout(s)
	if err != nil || s.Page != PageLanding || s.Authenticated {
		t.Fatalf("Logout: %+v, %v", s, err)
	}
}

func TestAuthorizeRejectionKeepsState(t *testing.T) {
	s := State{Page: PageLogin}

	got, err := Authorize(s, rejectAll, "ops", "wrong")
	if !errors.Is(err, ErrAuthenticationRejected) {
		t.Fatalf("err = %v, want ErrAuthenticationRejected", err)
	}
	if got != s {
		t.Errorf("state changed on rejection: %+v", got)
	}
}

func TestInvalidTransitions(t *testing.T) {
	cases := []struct {
		name string
		from State
		do   func(State) (State, error)
	}{
		{"initialize from login", State{Page: PageLogin}, Initialize},
		{"initialize from dashboard", State{Page: PageDashboard, Authenticated: true}, Initialize},
		{"logout from landing", State{Page: PageLanding}, Logout},
		{"logout from login", State{Page: PageLogin}, Logout},
		{"authorize from landing", State{Page: PageLanding}, func(s State) (State, error) {
			return Authorize(s, acceptAll, "ops", "secret")
		}},
		{"authorize from dashboard", State{Page: PageDashboard, Authenticated: true}, func(s State) (State, error) {
			return Authorize(s, acceptAll, "ops", "secret")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.do(tc.from)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("err = %v, want ErrInvalidTransition", err)
			}
			if got != tc.from {
				t.Errorf("state changed on invalid transition: %+v", got)
			}
		})
	}
}

func TestDashboardImpliesAuthenticated(t *testing.T) {
	// Walk every reachable transition and check the invariant holds
	states := []State{NewState()}
	seen := map[State]bool{}

	for len(states) > 0 {
		s := states[0]
		states = states[1:]
		if seen[s] {
			continue
		}
		seen[s] = true

		if s.Page == PageDashboard && !s.Authenticated {
			t.Fatalf("invariant violated: %+v", s)
		}

		if next, err := Initialize(s); err == nil {
			states = append(states, next)
		}
		if next, err := Authorize(s, acceptAll, "ops", "secret"); err == nil {
			states = append(states, next)
		}
		if next, err := Logout(s); err == nil {
			states = append(states, next)
		}
	}
}

func TestStaticVerifier(t *testing.T) {
	verify := StaticVerifier("ops", "hunter2-long-key")

	if !verify("ops", "hunter2-long-key") {
		t.Error("correct credentials rejected")
	}
	if verify("ops", "wrong") {
		t.Error("wrong key accepted")
	}
	if verify("admin", "hunter2-long-key") {
		t.Error("wrong ID accepted")
	}
	if verify("", "") {
		t.Error("empty credentials accepted")
	}
}
