package lockgate

import (
	"context"
	"time"
)

// Field selects the user-record column an [Adapter.Find] call matches
// against. The login flow classifies the submitted identifier as an email
// address or a name and queries the corresponding field.
type Field string

const (
	// FieldName matches the unique account name.
	FieldName Field = "name"
	// FieldEmail matches the unique email address. Adapters should compare
	// case-insensitively.
	FieldEmail Field = "email"
)

// User is the credential record owned by the storage adapter. The login
// core reads and mutates the failure-tracking and login-tracking fields and
// writes the record back through [Adapter.Update].
type User struct {
	Name          string
	Email         string
	EmailVerified bool

	// PasswordHash is an encoded hash string carrying the algorithm, salt
	// and iteration parameters. Opaque to the core beyond passing it to the
	// credential verifier.
	PasswordHash string

	FailedLoginAttempts int
	AccountLocked       bool
	AccountLockedUntil  *time.Time

	PreviousLoginTime time.Time
	PreviousLoginIP   string
	CurrentLoginTime  time.Time
	CurrentLoginIP    string

	TwoFactorEnabled bool
	// TwoFactorSecret is the base32-encoded shared TOTP key, empty when
	// two-factor auth has never been provisioned.
	TwoFactorSecret string
}

// Adapter is the storage contract the host must implement to integrate
// lockgate with its user database. Find returns (nil, nil) when no record
// matches. Update must persist all mutated fields atomically per call; the
// core relies on it to serialize concurrent updates to the same record.
type Adapter interface {
	Find(ctx context.Context, field Field, value string) (*User, error)
	Update(ctx context.Context, user *User) error
	Save(ctx context.Context, name, email, password string) (*User, error)
	Remove(ctx context.Context, name string) error
}

// CredentialVerifier decides whether a submitted secret matches a stored
// hash. Implementations must use a constant-time comparison.
type CredentialVerifier interface {
	Verify(secret, encodedHash string) (bool, error)
}

// Outcome classifies the terminal branch a flow operation took.
type Outcome int

const (
	// OutcomeInvalidInput signals a missing login identifier or password.
	OutcomeInvalidInput Outcome = iota
	// OutcomeInvalidCredentials covers wrong password, unknown account and
	// unverified email. The three causes carry identical user-facing text so
	// the response cannot be used for account enumeration.
	OutcomeInvalidCredentials
	// OutcomeAccountLocked signals a time-bound lockout still in effect.
	OutcomeAccountLocked
	// OutcomeTwoFactorRequired is a flow state, not an error: primary
	// credentials matched and the session is pending the second factor.
	OutcomeTwoFactorRequired
	// OutcomeTwoFactorFailed signals a rejected step-up attempt. The session
	// must be destroyed.
	OutcomeTwoFactorFailed
	// OutcomeSuccess signals a fully authenticated session.
	OutcomeSuccess
)

// String returns a stable name for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeInvalidInput:
		return "invalid_input"
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	case OutcomeAccountLocked:
		return "account_locked"
	case OutcomeTwoFactorRequired:
		return "two_factor_required"
	case OutcomeTwoFactorFailed:
		return "two_factor_failed"
	case OutcomeSuccess:
		return "success"
	}
	return "unknown"
}

// Result is returned by [Engine.Login] and [Engine.ConfirmTwoFactor].
type Result struct {
	Outcome Outcome

	// Message is the user-facing error text for failure outcomes.
	Message string

	// Target is the post-login redirect target for OutcomeSuccess and
	// OutcomeTwoFactorRequired, resolved from the captured pre-login URL
	// with the configured default as fallback.
	Target string

	// DestroySession is set when the session must be torn down before
	// responding (failed two-factor attempts).
	DestroySession bool

	// User is the matched record on OutcomeSuccess and
	// OutcomeTwoFactorRequired, for hosts that handle responses manually.
	User *User
}

// Snapshot carries the identity captured from a session just before it is
// destroyed, for the benefit of logout notifications.
type Snapshot struct {
	Name     string
	Email    string
	LoggedIn bool
}

// Origin describes the request origin recorded in the login-tracking
// fields.
type Origin struct {
	IP string
}
