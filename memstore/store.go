// Package memstore provides an in-memory storage adapter, intended for
// tests and demo apps rather than production use.
package memstore

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/lockgate/lockgate"
)

// ErrDuplicate is returned by Save when the name or email is already taken.
var ErrDuplicate = errors.New("memstore: duplicate user")

// Hasher derives a stored hash from a plaintext password. Satisfied by
// *password.Hasher.
type Hasher interface {
	Hash(password string) (string, error)
}

// Store keeps user records in a map guarded by a mutex. All methods hand
// out and accept copies, so callers can mutate returned records freely.
type Store struct {
	mu     sync.Mutex
	byName map[string]*lockgate.User
	hasher Hasher
}

// New creates an empty store. The hasher is used by Save to hash the
// plaintext password.
func New(hasher Hasher) *Store {
	return &Store{
		byName: make(map[string]*lockgate.User),
		hasher: hasher,
	}
}

// Find looks up a record by name or email. Email comparison is
// case-insensitive. Returns (nil, nil) when no record matches.
func (s *Store) Find(_ context.Context, field lockgate.Field, value string) (*lockgate.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch field {
	case lockgate.FieldName:
		if u, ok := s.byName[value]; ok {
			return copyUser(u), nil
		}
	case lockgate.FieldEmail:
		for _, u := range s.byName {
			if strings.EqualFold(u.Email, value) {
				return copyUser(u), nil
			}
		}
	}
	return nil, nil
}

// Update overwrites the stored record matching user.Name. Unknown names are
// an error; Update never creates records.
func (s *Store) Update(_ context.Context, user *lockgate.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[user.Name]; !ok {
		return errors.New("memstore: user not found")
	}
	s.byName[user.Name] = copyUser(user)
	return nil
}

// Save creates a new record with a hashed password. The record starts
// unverified; call Update after flipping EmailVerified to admit logins.
func (s *Store) Save(_ context.Context, name, email, password string) (*lockgate.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[name]; ok {
		return nil, ErrDuplicate
	}
	for _, u := range s.byName {
		if strings.EqualFold(u.Email, email) {
			return nil, ErrDuplicate
		}
	}

	user := &lockgate.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	s.byName[name] = user
	return copyUser(user), nil
}

// Remove deletes the record with the given name. Removing an unknown name
// is a no-op.
func (s *Store) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byName, name)
	return nil
}

func copyUser(u *lockgate.User) *lockgate.User {
	clone := *u
	if u.AccountLockedUntil != nil {
		t := *u.AccountLockedUntil
		clone.AccountLockedUntil = &t
	}
	return &clone
}
