package lockgate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeAdapter is an in-memory Adapter for engine tests. Failure injection
// via findErr/updateErr covers the storage-fault paths.
type fakeAdapter struct {
	mu        sync.Mutex
	users     map[string]*User
	findErr   error
	updateErr error
	updates   int
}

func newFakeAdapter(users ...*User) *fakeAdapter {
	a := &fakeAdapter{users: make(map[string]*User)}
	for _, u := range users {
		a.users[u.Name] = u
	}
	return a
}

func (a *fakeAdapter) Find(_ context.Context, field Field, value string) (*User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.findErr != nil {
		return nil, a.findErr
	}
	for _, u := range a.users {
		if field == FieldName && u.Name == value {
			return cloneUser(u), nil
		}
		if field == FieldEmail && strings.EqualFold(u.Email, value) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (a *fakeAdapter) Update(_ context.Context, user *User) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.updateErr != nil {
		return a.updateErr
	}
	if _, ok := a.users[user.Name]; !ok {
		return errors.New("not found")
	}
	a.users[user.Name] = cloneUser(user)
	a.updates++
	return nil
}

func (a *fakeAdapter) Save(_ context.Context, name, email, password string) (*User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	u := &User{Name: name, Email: email, PasswordHash: password}
	a.users[name] = u
	return cloneUser(u), nil
}

func (a *fakeAdapter) Remove(_ context.Context, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.users, name)
	return nil
}

func (a *fakeAdapter) get(name string) *User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneUser(a.users[name])
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.AccountLockedUntil != nil {
		t := *u.AccountLockedUntil
		clone.AccountLockedUntil = &t
	}
	return &clone
}

// plainVerifier matches when the secret equals the stored hash verbatim,
// so tests can skip real key derivation.
type plainVerifier struct{}

func (plainVerifier) Verify(secret, encodedHash string) (bool, error) {
	return secret == encodedHash, nil
}

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func aliceUser() *User {
	return &User{
		Name:          "alice",
		Email:         "alice@example.com",
		EmailVerified: true,
		PasswordHash:  "correct-password",
	}
}

func newTestEngine(t *testing.T, adapter Adapter, clock *testClock) *Engine {
	t.Helper()

	engine, err := New().
		WithAdapter(adapter).
		WithVerifier(plainVerifier{}).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func TestBuild_RequiresAdapter(t *testing.T) {
	_, err := New().Build()
	if !errors.Is(err, ErrAdapterRequired) {
		t.Fatalf("expected ErrAdapterRequired, got %v", err)
	}
}

func TestBuild_SingleUse(t *testing.T) {
	b := New().WithAdapter(newFakeAdapter()).WithVerifier(plainVerifier{})

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected error from second Build")
	}
}

func TestBuild_NormalizesConfig(t *testing.T) {
	engine, err := New().
		WithConfig(Config{FailedLoginAttempts: 7}).
		WithAdapter(newFakeAdapter()).
		WithVerifier(plainVerifier{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	cfg := engine.Config()
	if cfg.FailedLoginAttempts != 7 {
		t.Fatalf("explicit value overwritten: %d", cfg.FailedLoginAttempts)
	}
	if cfg.LoginRoute != "/login" || cfg.FailedLoginsWarning != 3 {
		t.Fatalf("zero values not defaulted: %+v", cfg)
	}
}
