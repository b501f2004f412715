package nav

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testManager(ttl time.Duration) *Manager {
	return NewManager(StaticVerifier("ops", "test-access-key"), ttl)
}

func TestManagerLifecycle(t *testing.T) {
	m := testManager(time.Hour)

	token, sess := m.Create()
	if !strings.HasPrefix(token, "cg_") {
		t.Fatalf("token %q missing cg_ prefix", token)
	}
	if sess.State.Page != PageLanding {
		t.Fatalf("new session on %s, want landing", sess.State.Page)
	}

	if _, err := m.Initialize(token); err != nil {
		t.Fatal(err)
	}
	sess, err := m.Authorize(token, "ops", "test-access-key")
	if err != nil {
		t.Fatal(err)
	}
	if sess.State.Page != PageDashboard || !sess.State.Authenticated {
		t.Fatalf("post-authorize state = %+v", sess.State)
	}

	sess, err = m.Logout(token)
	if err != nil || sess.State.Page != PageLanding {
		t.Fatalf("Logout: %+v, %v", sess.State, err)
	}
}

func TestManagerRejectsBadCredentials(t *testing.T) {
	m := testManager(time.Hour)
	token, _ := m.Create()
	_, _ = m.Initialize(token)

	sess, err := m.Authorize(token, "ops", "wrong-key")
	if !errors.Is(err, ErrAuthenticationRejected) {
		t.Fatalf("err = %v, want ErrAuthenticationRejected", err)
	}
	if sess.State.Page != PageLogin {
		t.Errorf("session should stay on login, got %s", sess.State.Page)
	}

	// The session is still usable afterwards
	if _, err := m.Authorize(token, "ops", "test-access-key"); err != nil {
		t.Errorf("retry with correct key failed: %v", err)
	}
}

func TestManagerTokenHandling(t *testing.T) {
	m := testManager(time.Hour)
	token, _ := m.Create()

	// Bearer prefix is accepted
	if _, err := m.Get("Bearer " + token); err != nil {
		t.Errorf("bearer-prefixed token rejected: %v", err)
	}

	if _, err := m.Get(""); !errors.Is(err, ErrNoSession) {
		t.Errorf("empty token: %v, want ErrNoSession", err)
	}
	if _, err := m.Get("not-a-token"); !errors.Is(err, ErrNoSession) {
		t.Errorf("unprefixed garbage: %v, want ErrNoSession", err)
	}
	if _, err := m.Get("cg_0000000000000000000000000000000000000000000000"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("unknown token: %v, want ErrInvalidSession", err)
	}
}

func TestManagerExpiry(t *testing.T) {
	m := testManager(10 * time.Millisecond)
	token, _ := m.Create()

	time.Sleep(20 * time.Millisecond)

	if _, err := m.Get(token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("expired session: %v, want ErrInvalidSession", err)
	}
	if _, err := m.Initialize(token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("transition on expired session: %v, want ErrInvalidSession", err)
	}
}

func TestManagerSweep(t *testing.T) {
	m := testManager(10 * time.Millisecond)
	for i := 0; i < 3; i++ {
		m.Create()
	}
	longLived, _ := testManager(time.Hour).Create()
	_ = longLived

	time.Sleep(20 * time.Millisecond)

	if n := m.Sweep(); n != 3 {
		t.Errorf("swept %d sessions, want 3", n)
	}
	if n := m.Sweep(); n != 0 {
		t.Errorf("second sweep removed %d, want 0", n)
	}
}

func TestManagerSessionsIndependent(t *testing.T) {
	m := testManager(time.Hour)

	t1, _ := m.Create()
	t2, _ := m.Create()

	_, _ = m.Initialize(t1)
	if _, err := m.Authorize(t1, "ops", "test-access-key"); err != nil {
		t.Fatal(err)
	}

	// Second session is untouched by the first's progress
	s2, err := m.Get(t2)
	if err != nil {
		t.Fatal(err)
	}
	if s2.State.Page != PageLanding {
		t.Errorf("second session on %s, want landing", s2.State.Page)
	}
}

func TestGetReturnsDetachedSnapshot(t *testing.T) {
	m := testManager(time.Hour)
	token, _ := m.Create()

	before, err := m.Get(token)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Initialize(token); err != nil {
		t.Fatal(err)
	}
	if before.State.Page != PageLanding {
		t.Error("snapshot should not observe later transitions")
	}

	// Mutating the snapshot must not leak back into the manager
	before.State.Page = PageDashboard
	before.State.Authenticated = true

	after, err := m.Get(token)
	if err != nil {
		t.Fatal(err)
	}
	if after.State.Page != PageLogin || after.State.Authenticated {
		t.Errorf("manager state = %+v, want unauthenticated login", after.State)
	}
}

func TestConcurrentGetAndTransition(t *testing.T) {
	m := testManager(time.Hour)
	token, _ := m.Create()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if sess, err := m.Get(token); err == nil {
				_ = sess.State.Page
				_ = sess.State.Authenticated
			}
		}
	}()

	for i := 0; i < 200; i++ {
		_, _ = m.Initialize(token)
		_, _ = m.Authorize(token, "ops", "test-access-key")
		_, _ = m.Logout(token)
	}
	<-done
}
