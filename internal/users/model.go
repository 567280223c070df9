package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotFound           = errors.New("user not found")
	ErrWrongPassword      = errors.New("wrong password")
)

// User is a journal account. Email is stored trimmed and lower-cased.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists accounts.
type Repository interface {
	// Create assigns u.ID and stores u. It returns ErrEmailTaken when the
	// email already exists.
	Create(ctx context.Context, u *User) error
	// GetByEmail returns ErrNotFound for an unknown email.
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// Credentials is the body for POST /api/register and /api/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EmailResponse is returned by register, login and me.
type EmailResponse struct {
	OK    bool    `json:"ok"`
	Email *string `json:"email"`
}
