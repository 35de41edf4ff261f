package lockgate

import "time"

// Config holds all tunables for the login flow and its HTTP boundary.
// Config instances are intended to be set up during initialization and then
// treated as immutable.
type Config struct {
	// Route paths, mounted relative to the host router. The two-factor
	// route is only reachable while a session is pending the second factor.
	LoginRoute     string
	LogoutRoute    string
	TwoFactorRoute string

	// REST switches the boundary to JSON bodies and status-only semantics:
	// no rendered views, no redirects, and no GET login route. All paths are
	// prefixed with RESTBase.
	REST     bool
	RESTBase string

	// HandleResponse controls whether the web handlers write success
	// responses themselves. When false the host writes them through the
	// response hooks and the handlers only run the flow.
	HandleResponse bool

	// DefaultTarget is the post-login redirect used when no originally
	// requested URL was captured.
	DefaultTarget string

	// FailedLoginsWarning is the failure count at which responses start
	// warning that the account will be locked soon.
	FailedLoginsWarning int
	// FailedLoginAttempts is the failure count that locks the account.
	FailedLoginAttempts int
	// AccountLockedTime is how long a lockout lasts. Expiry is lazy: it is
	// checked on the next attempt, never by a background timer.
	AccountLockedTime time.Duration

	TOTP   TOTPConfig
	Events EventsConfig
}

// TOTPConfig holds the time-based one-time code parameters for the
// two-factor step-up. The defaults follow RFC 6238: 30-second steps, six
// digits, one step of skew either side.
type TOTPConfig struct {
	Issuer string
	Period int
	Digits int
	Skew   uint
}

// EventsConfig tunes the asynchronous hook dispatcher.
type EventsConfig struct {
	BufferSize int
	// DropIfFull drops events instead of blocking the flow when the buffer
	// is full. Dropped counts are observable via Engine.EventsDropped.
	DropIfFull bool
}

// DefaultConfig returns the production defaults: warn after 3 failed
// attempts, lock after 5 for 20 minutes.
func DefaultConfig() Config {
	return Config{
		LoginRoute:          "/login",
		LogoutRoute:         "/logout",
		TwoFactorRoute:      "/login/two-factor",
		RESTBase:            "/rest",
		HandleResponse:      true,
		DefaultTarget:       "/",
		FailedLoginsWarning: 3,
		FailedLoginAttempts: 5,
		AccountLockedTime:   20 * time.Minute,
		TOTP: TOTPConfig{
			Issuer: "lockgate",
			Period: 30,
			Digits: 6,
			Skew:   1,
		},
		Events: EventsConfig{
			BufferSize: 64,
		},
	}
}

// normalized fills zero values with defaults so a partially populated
// Config behaves sensibly.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.LoginRoute == "" {
		c.LoginRoute = def.LoginRoute
	}
	if c.LogoutRoute == "" {
		c.LogoutRoute = def.LogoutRoute
	}
	if c.TwoFactorRoute == "" {
		c.TwoFactorRoute = def.TwoFactorRoute
	}
	if c.RESTBase == "" {
		c.RESTBase = def.RESTBase
	}
	if c.DefaultTarget == "" {
		c.DefaultTarget = def.DefaultTarget
	}
	if c.FailedLoginsWarning <= 0 {
		c.FailedLoginsWarning = def.FailedLoginsWarning
	}
	if c.FailedLoginAttempts <= 0 {
		c.FailedLoginAttempts = def.FailedLoginAttempts
	}
	if c.AccountLockedTime <= 0 {
		c.AccountLockedTime = def.AccountLockedTime
	}
	if c.TOTP.Issuer == "" {
		c.TOTP.Issuer = def.TOTP.Issuer
	}
	if c.TOTP.Period <= 0 {
		c.TOTP.Period = def.TOTP.Period
	}
	if c.TOTP.Digits <= 0 {
		c.TOTP.Digits = def.TOTP.Digits
	}
	if c.Events.BufferSize <= 0 {
		c.Events.BufferSize = def.Events.BufferSize
	}
	return c
}
