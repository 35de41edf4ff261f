package lockgate

import (
	"fmt"
	"strings"
	"time"
)

// User-facing message texts. The three causes behind MsgInvalidCredentials
// (unknown account, unverified email, wrong password) deliberately share one
// byte-identical string; only the lockout messages may reveal that an
// account exists, and only after enough failures that the distinction is
// already attacker-observable.
const (
	MsgMissingCredentials = "Please enter your email/username and password"
	MsgInvalidCredentials = "Invalid user or password"
	MsgLockWarning        = "Invalid user or password. Your account will be locked soon."
	MsgAccountLocked      = "The account is temporarily locked"
)

// Severity classifies a recorded login failure.
type Severity int

const (
	// FailureGeneric is a failure below the warning threshold.
	FailureGeneric Severity = iota
	// FailureWarning is a failure at or above the warning threshold; the
	// response should warn that the account will be locked soon.
	FailureWarning
	// FailureLocked is the failure that crossed the lock threshold and
	// locked the account.
	FailureLocked
)

// Policy is the stateless lockout decision engine. It operates purely on
// the user record passed in and the clock; it holds no per-account state of
// its own.
type Policy struct {
	WarnThreshold int
	LockThreshold int
	LockDuration  time.Duration
}

// Locked reports whether a lockout is still in effect at now. A lock whose
// expiry has passed is treated as released; expiry is lazy and happens on
// the next attempt, never via a background timer.
func (p Policy) Locked(u *User, now time.Time) bool {
	return u.AccountLocked && u.AccountLockedUntil != nil && now.Before(*u.AccountLockedUntil)
}

// RecordFailure increments the failure counter and applies the lock when
// the incremented count reaches the lock threshold. The attempt that
// crosses the threshold both locks the account and reports FailureLocked;
// the caller must have checked Locked before verifying credentials, so a
// still-locked record never reaches this method.
func (p Policy) RecordFailure(u *User, now time.Time) Severity {
	u.FailedLoginAttempts++

	if u.FailedLoginAttempts >= p.LockThreshold {
		until := now.Add(p.LockDuration)
		u.AccountLocked = true
		u.AccountLockedUntil = &until
		return FailureLocked
	}
	if u.FailedLoginAttempts >= p.WarnThreshold {
		return FailureWarning
	}
	return FailureGeneric
}

// RecordSuccess resets the failure state. It runs exactly on a successful
// primary-credential verification, regardless of the prior count.
func (p Policy) RecordSuccess(u *User) {
	u.FailedLoginAttempts = 0
	u.AccountLocked = false
	u.AccountLockedUntil = nil
}

// FailureMessage returns the user-facing text for a recorded failure.
func (p Policy) FailureMessage(sev Severity) string {
	switch sev {
	case FailureLocked:
		return fmt.Sprintf("Invalid user or password. Your account is now locked for %s.", formatDuration(p.LockDuration))
	case FailureWarning:
		return MsgLockWarning
	}
	return MsgInvalidCredentials
}

// formatDuration renders a duration the way it reads in a sentence:
// "20 minutes", "1 hour 30 minutes", "5 seconds".
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0 seconds"
	}

	var parts []string
	unit := func(n int64, name string) {
		if n == 0 {
			return
		}
		if n == 1 {
			parts = append(parts, fmt.Sprintf("1 %s", name))
			return
		}
		parts = append(parts, fmt.Sprintf("%d %ss", n, name))
	}

	d = d.Round(time.Second)
	unit(int64(d/time.Hour), "hour")
	unit(int64(d%time.Hour/time.Minute), "minute")
	unit(int64(d%time.Minute/time.Second), "second")

	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, " ")
}
