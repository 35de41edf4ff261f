// Package lockgate implements a login/logout flow for web applications:
// credential verification, brute-force lockout, optional two-factor
// step-up, and session establishment.
//
// The package is transport-agnostic. An [Engine] operates on a
// [session.State] and a pluggable storage [Adapter]; the web subpackage
// mounts the flow into a gin router with HTML views or a REST/JSON
// surface. Hosts hook custom behavior through login/logout callbacks
// registered on the [Builder].
package lockgate
