package lockgate

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called before
	// the builder wired all required collaborators.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrSessionRequired is returned when a flow method is called without a
	// session state to mutate.
	ErrSessionRequired = errors.New("session state required")
	// ErrStorageFailure wraps infrastructure faults from the storage adapter.
	// It is propagated to the host's generic error handler, never mapped to a
	// user-facing outcome.
	ErrStorageFailure = errors.New("storage adapter failure")
	// ErrHashingFailure wraps infrastructure faults from the credential
	// hasher outside of verification (hashing a new secret, malformed
	// configuration). Verification-time faults are treated as a non-match so
	// the response cannot distinguish them.
	ErrHashingFailure = errors.New("credential hashing failure")
	// ErrAdapterRequired is returned by Build when no storage adapter was set.
	ErrAdapterRequired = errors.New("storage adapter required")
)
