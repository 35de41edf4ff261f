// Package gormstore implements the storage adapter on top of GORM, so any
// database GORM supports (SQLite, MySQL, Postgres) can back the login flow.
package gormstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lockgate/lockgate"
)

// Hasher derives a stored hash from a plaintext password. Satisfied by
// *password.Hasher.
type Hasher interface {
	Hash(password string) (string, error)
}

// userModel is the persisted shape of a user record.
type userModel struct {
	ID            uint   `gorm:"primarykey"`
	Name          string `gorm:"uniqueIndex;size:64"`
	Email         string `gorm:"uniqueIndex;size:255"`
	EmailVerified bool
	PasswordHash  string

	FailedLoginAttempts int
	AccountLocked       bool
	AccountLockedUntil  *time.Time

	PreviousLoginTime time.Time
	PreviousLoginIP   string
	CurrentLoginTime  time.Time
	CurrentLoginIP    string

	TwoFactorEnabled bool
	TwoFactorSecret  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userModel) TableName() string { return "lockgate_users" }

// Store is the GORM-backed adapter.
type Store struct {
	db     *gorm.DB
	hasher Hasher
}

// New migrates the user table and returns the adapter.
func New(db *gorm.DB, hasher Hasher) (*Store, error) {
	if db == nil {
		return nil, errors.New("gormstore: db required")
	}
	if err := db.AutoMigrate(&userModel{}); err != nil {
		return nil, err
	}
	return &Store{db: db, hasher: hasher}, nil
}

// Find looks up a record by name or email, (nil, nil) when absent. Email
// matching is case-insensitive.
func (s *Store) Find(ctx context.Context, field lockgate.Field, value string) (*lockgate.User, error) {
	var m userModel
	q := s.db.WithContext(ctx)

	switch field {
	case lockgate.FieldName:
		q = q.Where("name = ?", value)
	case lockgate.FieldEmail:
		q = q.Where("lower(email) = ?", strings.ToLower(value))
	default:
		return nil, errors.New("gormstore: unknown field")
	}

	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toUser(&m), nil
}

// Update persists the mutable fields of an existing record, keyed by name.
func (s *Store) Update(ctx context.Context, user *lockgate.User) error {
	res := s.db.WithContext(ctx).Model(&userModel{}).
		Where("name = ?", user.Name).
		Updates(map[string]interface{}{
			"email":                 user.Email,
			"email_verified":        user.EmailVerified,
			"password_hash":         user.PasswordHash,
			"failed_login_attempts": user.FailedLoginAttempts,
			"account_locked":        user.AccountLocked,
			"account_locked_until":  user.AccountLockedUntil,
			"previous_login_time":   user.PreviousLoginTime,
			"previous_login_ip":     user.PreviousLoginIP,
			"current_login_time":    user.CurrentLoginTime,
			"current_login_ip":      user.CurrentLoginIP,
			"two_factor_enabled":    user.TwoFactorEnabled,
			"two_factor_secret":     user.TwoFactorSecret,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("gormstore: user not found")
	}
	return nil
}

// Save creates a new record with a hashed password. The record starts
// unverified.
func (s *Store) Save(ctx context.Context, name, email, password string) (*lockgate.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	m := userModel{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, err
	}
	return toUser(&m), nil
}

// Remove deletes the record with the given name.
func (s *Store) Remove(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Where("name = ?", name).Delete(&userModel{}).Error
}

func toUser(m *userModel) *lockgate.User {
	u := &lockgate.User{
		Name:                m.Name,
		Email:               m.Email,
		EmailVerified:       m.EmailVerified,
		PasswordHash:        m.PasswordHash,
		FailedLoginAttempts: m.FailedLoginAttempts,
		AccountLocked:       m.AccountLocked,
		PreviousLoginTime:   m.PreviousLoginTime,
		PreviousLoginIP:     m.PreviousLoginIP,
		CurrentLoginTime:    m.CurrentLoginTime,
		CurrentLoginIP:      m.CurrentLoginIP,
		TwoFactorEnabled:    m.TwoFactorEnabled,
		TwoFactorSecret:     m.TwoFactorSecret,
	}
	if m.AccountLockedUntil != nil {
		t := *m.AccountLockedUntil
		u.AccountLockedUntil = &t
	}
	return u
}
