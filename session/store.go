package session

import (
	"context"
	"net/http"
)

// Store persists session state across requests. Load never fails on
// absent, expired or tampered input — it returns a fresh anonymous state
// instead, so a broken cookie degrades to "not logged in" rather than an
// error page. Destroy must complete before the response is considered
// done: implementations backed by an external store report completion only
// after the backend acknowledged the delete.
type Store interface {
	Load(r *http.Request) (*State, error)
	Save(w http.ResponseWriter, state *State) error
	Destroy(ctx context.Context, w http.ResponseWriter, state *State) error
}
