package lockgate

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/lockgate/lockgate/password"
	"github.com/lockgate/lockgate/session"
)

// Regexp borrowed from the angular.js input directive; classifies the
// submitted identifier as an email address or an account name.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,6}$`)

// Engine orchestrates the login, two-factor and logout flows. It holds no
// cross-request mutable state beyond the storage adapter; every method is
// safe for concurrent use. A known consistency gap: two concurrent failed
// attempts for the same identity race on the read-modify-write of the
// failure counter. The adapter serializes the writes, but one increment can
// be lost; at-most-approximate counting is acceptable for a login-attempt
// counter.
type Engine struct {
	config   Config
	policy   Policy
	adapter  Adapter
	verifier CredentialVerifier
	totp     *totpVerifier
	events   *eventDispatcher
	metrics  *Metrics
	logger   *log.Logger
	clock    func() time.Time
}

// Builder assembles an Engine. Obtain one via New, wire collaborators with
// the With* methods, then call Build.
type Builder struct {
	config      Config
	adapter     Adapter
	verifier    CredentialVerifier
	logger      *log.Logger
	clock       func() time.Time
	loginHooks  []LoginHook
	logoutHooks []LogoutHook
	built       bool
}

// New returns a Builder pre-loaded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the configuration. Start from DefaultConfig when
// populating a Config by hand.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithAdapter sets the storage adapter. Required.
func (b *Builder) WithAdapter(a Adapter) *Builder {
	b.adapter = a
	return b
}

// WithVerifier overrides the credential verifier. Defaults to the PBKDF2
// hasher from the password package.
func (b *Builder) WithVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithLogger sets the logger used for non-fatal warnings (storage write
// failures after a response was already committed, malformed stored
// hashes). Defaults to the standard logger.
func (b *Builder) WithLogger(l *log.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides the time source. Tests use this to exercise lazy
// lock expiry without sleeping.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// OnLogin registers a hook fired once per fully established session.
func (b *Builder) OnLogin(hook LoginHook) *Builder {
	b.loginHooks = append(b.loginHooks, hook)
	return b
}

// OnLogout registers a hook fired once per destroyed identified session.
func (b *Builder) OnLogout(hook LogoutHook) *Builder {
	b.logoutHooks = append(b.logoutHooks, hook)
	return b
}

// Build validates the wiring and returns the Engine. The builder is
// single-use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, fmt.Errorf("builder already used")
	}
	b.built = true

	if b.adapter == nil {
		return nil, ErrAdapterRequired
	}

	cfg := b.config.normalized()

	verifier := b.verifier
	if verifier == nil {
		hasher, err := password.New(password.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHashingFailure, err)
		}
		verifier = hasher
	}

	logger := b.logger
	if logger == nil {
		logger = log.Default()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	return &Engine{
		config:   cfg,
		policy:   Policy{WarnThreshold: cfg.FailedLoginsWarning, LockThreshold: cfg.FailedLoginAttempts, LockDuration: cfg.AccountLockedTime},
		adapter:  b.adapter,
		verifier: verifier,
		totp:     newTOTPVerifier(cfg.TOTP),
		events:   newEventDispatcher(cfg.Events, b.loginHooks, b.logoutHooks),
		metrics:  NewMetrics(),
		logger:   logger,
		clock:    clock,
	}, nil
}

// Config returns the normalized configuration the engine runs with.
func (e *Engine) Config() Config {
	return e.config
}

// Metrics exposes the in-process counters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// EventsDropped reports how many hook events were dropped because the
// dispatcher buffer was full.
func (e *Engine) EventsDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.events.Dropped()
}

// Close drains and stops the event dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.events.Close()
}

// Login runs one primary-credential attempt. It mutates sess in place; the
// caller persists the session afterwards. The returned error is reserved
// for infrastructure faults — every user-caused rejection is an Outcome.
func (e *Engine) Login(ctx context.Context, login, secret string, sess *session.State, origin Origin) (*Result, error) {
	if e == nil || e.adapter == nil {
		return nil, ErrEngineNotReady
	}
	if sess == nil {
		return nil, ErrSessionRequired
	}

	target := sess.RedirectTarget
	if target == "" {
		target = e.config.DefaultTarget
	}

	if login == "" || secret == "" {
		e.metrics.Inc(MetricLoginFailure)
		return &Result{Outcome: OutcomeInvalidInput, Message: MsgMissingCredentials}, nil
	}

	field := FieldName
	if emailPattern.MatchString(login) {
		field = FieldEmail
	}

	user, err := e.adapter.Find(ctx, field, login)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	// Unknown accounts and unverified emails get the same response as a
	// wrong password, and never reveal lock state.
	if user == nil || !user.EmailVerified {
		e.metrics.Inc(MetricLoginFailure)
		return &Result{Outcome: OutcomeInvalidCredentials, Message: MsgInvalidCredentials}, nil
	}

	now := e.clock()
	if e.policy.Locked(user, now) {
		// Short-circuit before any hashing work so a locked account neither
		// burns CPU nor touches the failure counter.
		e.metrics.Inc(MetricAccountLocked)
		return &Result{Outcome: OutcomeAccountLocked, Message: MsgAccountLocked}, nil
	}

	match, err := e.verifier.Verify(secret, user.PasswordHash)
	if err != nil {
		// A malformed stored hash must look exactly like a wrong password at
		// the response level. Logged so the fault is not swallowed silently.
		e.logger.Printf("lockgate: credential verification error for %q: %v", user.Name, err)
		match = false
	}

	if !match {
		sev := e.policy.RecordFailure(user, now)
		if err := e.adapter.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		if sev == FailureLocked {
			e.metrics.Inc(MetricAccountLocked)
		} else {
			e.metrics.Inc(MetricLoginFailure)
		}
		return &Result{Outcome: OutcomeInvalidCredentials, Message: e.policy.FailureMessage(sev)}, nil
	}

	e.policy.RecordSuccess(user)
	e.shiftTracking(user, now, origin)
	if err := e.adapter.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	sess.Name = user.Name
	sess.Email = user.Email

	if user.TwoFactorEnabled {
		// Identity is known but the session must not be fully authenticated
		// until the step-up succeeds. Keep the redirect target for it.
		sess.LoggedIn = false
		sess.RedirectTarget = target
		e.metrics.Inc(MetricTwoFactorRequired)
		return &Result{Outcome: OutcomeTwoFactorRequired, Target: target, User: user}, nil
	}

	sess.LoggedIn = true
	sess.RedirectTarget = ""
	e.metrics.Inc(MetricLoginSuccess)
	e.events.emitLogin(*user, target)
	return &Result{Outcome: OutcomeSuccess, Target: target, User: user}, nil
}

// ConfirmTwoFactor runs the time-based one-time code step-up. It is only
// valid while the session is pending from a prior Login that returned
// OutcomeTwoFactorRequired; fully authenticated and anonymous sessions are
// rejected. Any rejection flags the session for destruction.
func (e *Engine) ConfirmTwoFactor(ctx context.Context, token string, sess *session.State) (*Result, error) {
	if e == nil || e.adapter == nil {
		return nil, ErrEngineNotReady
	}
	if sess == nil {
		return nil, ErrSessionRequired
	}

	target := sess.RedirectTarget
	if target == "" {
		target = e.config.DefaultTarget
	}

	if sess.Email == "" || sess.LoggedIn {
		e.metrics.Inc(MetricTwoFactorFailure)
		return &Result{Outcome: OutcomeTwoFactorFailed, Target: target, DestroySession: true}, nil
	}

	user, err := e.adapter.Find(ctx, FieldEmail, sess.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if user == nil || user.TwoFactorSecret == "" || !e.totp.Verify(user.TwoFactorSecret, token, e.clock()) {
		e.metrics.Inc(MetricTwoFactorFailure)
		return &Result{Outcome: OutcomeTwoFactorFailed, Target: target, DestroySession: true}, nil
	}

	sess.LoggedIn = true
	sess.RedirectTarget = ""
	e.metrics.Inc(MetricTwoFactorSuccess)
	e.metrics.Inc(MetricLoginSuccess)
	e.events.emitLogin(*user, target)
	return &Result{Outcome: OutcomeSuccess, Target: target, User: user}, nil
}

// Logout captures the session identity, resets the state and returns the
// snapshot for the host's notification layer. The caller destroys the
// session through its store and must await that destruction. The logout
// hook fires only when the session actually carried an identity.
func (e *Engine) Logout(_ context.Context, sess *session.State) Snapshot {
	if e == nil || sess == nil {
		return Snapshot{}
	}

	snap := Snapshot{Name: sess.Name, Email: sess.Email, LoggedIn: sess.LoggedIn}
	sess.Reset()

	if snap.Name != "" || snap.Email != "" {
		e.metrics.Inc(MetricLogout)
		e.events.emitLogout(snap)
	}
	return snap
}

// ProvisionTwoFactor generates a fresh TOTP secret and otpauth:// URI for
// enrolling an account. The host stores the secret on the user record and
// sets TwoFactorEnabled once the user confirmed a first code.
func (e *Engine) ProvisionTwoFactor(account string) (secret, uri string, err error) {
	if e == nil {
		return "", "", ErrEngineNotReady
	}
	return e.totp.Provision(account)
}

// shiftTracking rotates the login-tracking fields: the previous attempt
// keeps what was current, and the current slots record this attempt. On a
// first-ever login both pairs point at this attempt.
func (e *Engine) shiftTracking(u *User, now time.Time, origin Origin) {
	if u.CurrentLoginTime.IsZero() {
		u.PreviousLoginTime = now
	} else {
		u.PreviousLoginTime = u.CurrentLoginTime
	}
	if u.CurrentLoginIP == "" {
		u.PreviousLoginIP = origin.IP
	} else {
		u.PreviousLoginIP = u.CurrentLoginIP
	}
	u.CurrentLoginTime = now
	u.CurrentLoginIP = origin.IP
}
