package nav

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cartguard/cartguard/internal/idgen"
	"github.com/cartguard/cartguard/internal/metrics"
)

var (
	ErrNoSession      = errors.New("session token required")
	ErrInvalidSession = errors.New("invalid or expired session")
)

// Session pairs a navigation state with its bearer token. Only the SHA-256
// hash of the token is kept at rest.
type Session struct {
	ID        string    `json:"id"`
	hash      string    // token digest, lookup key
	State     State     `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Manager issues session tokens and applies navigation transitions to the
// session they identify.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session // by token hash
	verify   CredentialVerifier
	ttl      time.Duration
}

// NewManager creates a session manager with the given credential verifier
// and session lifetime.
func NewManager(verify CredentialVerifier, ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		verify:   verify,
		ttl:      ttl,
	}
}

// Create starts a new session on the landing page. Returns the raw bearer
// token (shown once) and the session.
func (m *Manager) Create() (string, *Session) {
	token := "cg_" + idgen.Hex(24)
	now := time.Now()

	sess := &Session{
		ID:        idgen.WithPrefix("sess_"),
		hash:      hashToken(token),
		State:     NewState(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[sess.hash] = sess
	m.mu.Unlock()

	return token, sess.snapshot()
}

// Get resolves a raw token to a snapshot of its session. Callers hold the
// snapshot across the whole request, so the live session stays private to
// the manager and concurrent transitions cannot race those reads.
func (m *Manager) Get(token string) (*Session, error) {
	token = cleanToken(token)
	if token == "" {
		return nil, ErrNoSession
	}

	m.mu.RLock()
	sess, ok := m.sessions[hashToken(token)]
	if ok {
		sess = sess.snapshot()
	}
	m.mu.RUnlock()

	if !ok || time.Now().After(sess.ExpiresAt) {
		return nil, ErrInvalidSession
	}
	return sess, nil
}

// Initialize applies the landing → login transition.
func (m *Manager) Initialize(token string) (*Session, error) {
	return m.transition(token, Initialize)
}

// Authorize applies the login → dashboard transition, verifying credentials.
func (m *Manager) Authorize(token, adminID, accessKey string) (*Session, error) {
	sess, err := m.transition(token, func(s State) (State, error) {
		return Authorize(s, m.verify, adminID, accessKey)
	})
	if err == nil {
		metrics.ActiveDashboardSessions.Inc()
	}
	return sess, err
}

// Logout applies the dashboard → landing transition.
func (m *Manager) Logout(token string) (*Session, error) {
	sess, err := m.transition(token, Logout)
	if err == nil {
		metrics.ActiveDashboardSessions.Dec()
	}
	return sess, err
}

// Sweep drops expired sessions. Called periodically by the server.
func (m *Manager) Sweep() int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for hash, sess := range m.sessions {
		if now.After(sess.ExpiresAt) {
			if sess.State.Page == PageDashboard {
				metrics.ActiveDashboardSessions.Dec()
			}
			delete(m.sessions, hash)
			removed++
		}
	}
	return removed
}

func (m *Manager) transition(token string, fn func(State) (State, error)) (*Session, error) {
	token = cleanToken(token)
	if token == "" {
		return nil, ErrNoSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[hashToken(token)]
	if !ok || time.Now().After(sess.ExpiresAt) {
		return nil, ErrInvalidSession
	}

	next, err := fn(sess.State)
	if err != nil {
		return sess.snapshot(), err
	}
	sess.State = next
	return sess.snapshot(), nil
}

// snapshot returns a detached copy safe to read outside the manager lock.
func (s *Session) snapshot() *Session {
	cp := *s
	return &cp
}

func cleanToken(token string) string {
	token = strings.TrimPrefix(token, "Bearer ")
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, "cg_") {
		return ""
	}
	return token
}

func hashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
