package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultCookieName = "lockgate.session"

// CookieConfig configures the signed-cookie store.
type CookieConfig struct {
	Name   string
	Secret []byte
	TTL    time.Duration
	Path   string
	Secure bool
}

// CookieStore keeps the whole session state inside an HMAC-signed token in
// a cookie. There is no server-side record: destruction means expiring the
// cookie, which completes synchronously.
type CookieStore struct {
	config CookieConfig
}

type cookieClaims struct {
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	LoggedIn       bool   `json:"logged_in,omitempty"`
	RedirectTarget string `json:"target,omitempty"`
	jwt.RegisteredClaims
}

// NewCookieStore creates a signed-cookie session store. The signing secret
// is required; everything else has defaults (24h TTL, "/" path).
func NewCookieStore(cfg CookieConfig) (*CookieStore, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("session: cookie signing secret required")
	}
	if cfg.Name == "" {
		cfg.Name = defaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &CookieStore{config: cfg}, nil
}

// Load parses the session cookie. Absent, expired or tampered cookies all
// yield a fresh anonymous state.
func (s *CookieStore) Load(r *http.Request) (*State, error) {
	cookie, err := r.Cookie(s.config.Name)
	if err != nil || cookie.Value == "" {
		return &State{}, nil
	}

	claims := &cookieClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return &State{}, nil
	}

	return &State{
		Name:           claims.Name,
		Email:          claims.Email,
		LoggedIn:       claims.LoggedIn,
		RedirectTarget: claims.RedirectTarget,
	}, nil
}

// Save signs the state and sets the cookie.
func (s *CookieStore) Save(w http.ResponseWriter, state *State) error {
	now := time.Now()
	claims := cookieClaims{
		Name:           state.Name,
		Email:          state.Email,
		LoggedIn:       state.LoggedIn,
		RedirectTarget: state.RedirectTarget,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.Name,
		Value:    signed,
		Path:     s.config.Path,
		MaxAge:   int(s.config.TTL / time.Second),
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Destroy expires the cookie. Completion is immediate — there is nothing
// server-side to wait for.
func (s *CookieStore) Destroy(_ context.Context, w http.ResponseWriter, state *State) error {
	state.Reset()
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.Name,
		Value:    "",
		Path:     s.config.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *CookieStore) keyFunc(*jwt.Token) (interface{}, error) {
	return s.config.Secret, nil
}
