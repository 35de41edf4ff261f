package lockgate

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/lockgate/lockgate/session"
)

const testTOTPSecret = "JBSWY3DPEHPK3PXP"

func bobUser() *User {
	return &User{
		Name:             "bob",
		Email:            "bob@example.com",
		EmailVerified:    true,
		PasswordHash:     "correct-password",
		TwoFactorEnabled: true,
		TwoFactorSecret:  testTOTPSecret,
	}
}

func pendingSession(t *testing.T, engine *Engine) *session.State {
	t.Helper()

	sess := &session.State{RedirectTarget: "/reports"}
	res, err := engine.Login(context.Background(), "bob", "correct-password", sess, Origin{})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Outcome != OutcomeTwoFactorRequired {
		t.Fatalf("expected OutcomeTwoFactorRequired, got %v", res.Outcome)
	}
	return sess
}

func TestLogin_TwoFactorRequired(t *testing.T) {
	engine := newTestEngine(t, newFakeAdapter(bobUser()), newTestClock())

	sess := pendingSession(t, engine)

	// Identity is on the session but it is not authenticated yet.
	if sess.LoggedIn {
		t.Fatal("session must not be logged in before the step-up")
	}
	if sess.Name != "bob" || sess.Email != "bob@example.com" {
		t.Fatalf("pending identity missing: %+v", sess)
	}
	if sess.RedirectTarget != "/reports" {
		t.Fatal("redirect target must survive into the pending state")
	}
	if got := engine.Metrics().Get(MetricTwoFactorRequired); got != 1 {
		t.Fatalf("pending counter: %d", got)
	}
}

func TestConfirmTwoFactor_ValidCode(t *testing.T) {
	clock := newTestClock()
	engine := newTestEngine(t, newFakeAdapter(bobUser()), clock)

	sess := pendingSession(t, engine)

	code, err := totp.GenerateCode(testTOTPSecret, clock.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}

	res, err := engine.ConfirmTwoFactor(context.Background(), code, sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected OutcomeSuccess, got %v", res.Outcome)
	}
	if res.Target != "/reports" {
		t.Fatalf("expected pending target, got %q", res.Target)
	}
	if !sess.LoggedIn || sess.RedirectTarget != "" {
		t.Fatalf("session not finalized: %+v", sess)
	}
}

func TestConfirmTwoFactor_WrongCode(t *testing.T) {
	engine := newTestEngine(t, newFakeAdapter(bobUser()), newTestClock())

	sess := pendingSession(t, engine)

	res, err := engine.ConfirmTwoFactor(context.Background(), "000000", sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeTwoFactorFailed {
		t.Fatalf("expected OutcomeTwoFactorFailed, got %v", res.Outcome)
	}
	if !res.DestroySession {
		t.Fatal("failed step-up must flag the session for destruction")
	}
	if res.Target != "/reports" {
		t.Fatalf("target should carry over for the retry redirect, got %q", res.Target)
	}
}

func TestConfirmTwoFactor_AnonymousSession(t *testing.T) {
	engine := newTestEngine(t, newFakeAdapter(bobUser()), newTestClock())

	res, err := engine.ConfirmTwoFactor(context.Background(), "123456", &session.State{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeTwoFactorFailed || !res.DestroySession {
		t.Fatalf("anonymous session must be rejected: %+v", res)
	}
}

func TestConfirmTwoFactor_AlreadyLoggedIn(t *testing.T) {
	engine := newTestEngine(t, newFakeAdapter(bobUser()), newTestClock())

	sess := &session.State{Name: "bob", Email: "bob@example.com", LoggedIn: true}
	res, err := engine.ConfirmTwoFactor(context.Background(), "123456", sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeTwoFactorFailed {
		t.Fatalf("replayed step-up must be rejected: %v", res.Outcome)
	}
}

func TestConfirmTwoFactor_SkewTolerance(t *testing.T) {
	clock := newTestClock()
	engine := newTestEngine(t, newFakeAdapter(bobUser()), clock)

	sess := pendingSession(t, engine)

	// A code from the previous 30-second step must still validate with the
	// default skew of one step.
	code, err := totp.GenerateCode(testTOTPSecret, clock.Now().Add(-30*time.Second))
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}

	res, err := engine.ConfirmTwoFactor(context.Background(), code, sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("previous-step code rejected: %v", res.Outcome)
	}
}

func TestProvisionTwoFactor(t *testing.T) {
	engine := newTestEngine(t, newFakeAdapter(), newTestClock())

	secret, uri, err := engine.ProvisionTwoFactor("carol@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret == "" {
		t.Fatal("empty secret")
	}
	if len(uri) < len("otpauth://") || uri[:10] != "otpauth://" {
		t.Fatalf("unexpected URI: %q", uri)
	}
}
