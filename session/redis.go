package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps backend faults from the Redis session store.
var ErrRedisUnavailable = errors.New("session: redis unavailable")

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	CookieName string
	Prefix     string
	TTL        time.Duration
	Path       string
	Secure     bool
}

// RedisStore keeps session state server-side in Redis, with only an opaque
// session id in the cookie. Destroy blocks until Redis acknowledged the
// delete, satisfying the awaited-destruction contract.
type RedisStore struct {
	client redis.UniversalClient
	config RedisConfig
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient, cfg RedisConfig) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("session: redis client required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "lockgate:sess:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &RedisStore{client: client, config: cfg}, nil
}

func (s *RedisStore) key(id string) string {
	return s.config.Prefix + id
}

// Load resolves the session-id cookie against Redis. A missing or expired
// record yields a fresh anonymous state; a backend fault is surfaced so the
// host can fail the request rather than silently treat a logged-in user as
// anonymous.
func (s *RedisStore) Load(r *http.Request) (*State, error) {
	cookie, err := r.Cookie(s.config.CookieName)
	if err != nil || cookie.Value == "" {
		return &State{}, nil
	}

	blob, err := s.client.Get(r.Context(), s.key(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	state := &State{}
	if err := json.Unmarshal(blob, state); err != nil {
		return &State{}, nil
	}
	state.ID = cookie.Value
	return state, nil
}

// Save writes the state to Redis and sets the session-id cookie, assigning
// a fresh id on first save.
func (s *RedisStore) Save(w http.ResponseWriter, state *State) error {
	if state.ID == "" {
		state.ID = uuid.NewString()
	}

	blob, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(context.Background(), s.key(state.ID), blob, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    state.ID,
		Path:     s.config.Path,
		MaxAge:   int(s.config.TTL / time.Second),
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Destroy deletes the server-side record and expires the cookie. The
// delete is awaited: the method returns only after Redis confirmed it.
func (s *RedisStore) Destroy(ctx context.Context, w http.ResponseWriter, state *State) error {
	if state.ID != "" {
		if err := s.client.Del(ctx, s.key(state.ID)).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	state.Reset()
	state.ID = ""

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    "",
		Path:     s.config.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
