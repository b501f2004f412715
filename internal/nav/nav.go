// Package nav implements the landing → login → dashboard navigation state
// machine that gates access to the scan and forecast endpoints.
//
// Transitions are pure functions over a State value; there is no process-wide
// page singleton. The state machine is the sole gate: it knows nothing about
// risk computation.
package nav

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

// Page identifies where in the app a session is.
type Page string

const (
	PageLanding   Page = "landing"
	PageLogin     Page = "login"
	PageDashboard Page = "dashboard"
)

var (
	// ErrAuthenticationRejected is surfaced to the user as a visible,
	// non-fatal rejection; the session remains on the login page.
	ErrAuthenticationRejected = errors.New("access denied")

	// ErrInvalidTransition reports a transition not permitted from the
	// session's current page.
	ErrInvalidTransition = errors.New("transition not allowed from current page")
)

// State is one session's navigation position.
// Invariant: Page == PageDashboard implies Authenticated.
type State struct {
	Page          Page `json:"page"`
	Authenticated bool `json:"authenticated"`
}

// NewState returns the entry state: landing page, unauthenticated.
func NewState() State {
	return State{Page: PageLanding}
}

// Initialize advances landing → login.
func Initialize(s State) (State, error) {
	if s.Page != PageLanding {
		return s, ErrInvalidTransition
	}
	return State{Page: PageLogin}, nil
}

// Authorize advances login → dashboard when the verifier accepts the
// credentials. On rejection the state is returned unchanged alongside
// ErrAuthenticationRejected.
func Authorize(s State, verify CredentialVerifier, adminID, accessKey string) (State, error) {
	if s.Page != PageLogin {
		return s, ErrInvalidTransition
	}
	if !verify(adminID, accessKey) {
		return s, ErrAuthenticationRejected
	}
	return State{Page: PageDashboard, Authenticated: true}, nil
}

// Logout returns dashboard → landing, clearing authentication.
func Logout(s State) (State, error) {
	if s.Page != PageDashboard {
		return s, ErrInvalidTransition
	}
	return State{Page: PageLanding}, nil
}

// CredentialVerifier checks a credential pair. Injected so the gate itself
// stays independent of how credentials are stored.
type CredentialVerifier func(adminID, accessKey string) bool

// StaticVerifier verifies against a single configured admin identity using
// constant-time comparison of SHA-256 digests.
func StaticVerifier(adminID, accessKey string) CredentialVerifier {
	wantID := sha256.Sum256([]byte(adminID))
	wantKey := sha256.Sum256([]byte(accessKey))
	return func(id, key string) bool {
		gotID := sha256.Sum256([]byte(id))
		gotKey := sha256.Sum256([]byte(key))
		idOK := subtle.ConstantTimeCompare(wantID[:], gotID[:]) == 1
		keyOK := subtle.ConstantTimeCompare(wantKey[:], gotKey[:]) == 1
		return idOK && keyOK
	}
}
