package users

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"journal-service/pkg/validation"
)

// Service contains account business logic.
type Service struct {
	repo Repository
	cost int
	log  *zap.Logger
}

// NewService creates a user service. cost is the bcrypt cost; 0 means
// bcrypt.DefaultCost.
func NewService(repo Repository, cost int, log *zap.Logger) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, cost: cost, log: log}
}

// Register creates an account. The storage unique constraint settles races
// between concurrent registrations of the same email.
func (s *Service) Register(ctx context.Context, c Credentials) (*User, error) {
	email := validation.NormalizeEmail(c.Email)
	if !validation.Present(email, c.Password) {
		return nil, ErrMissingCredentials
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), s.cost)
	if err != nil {
		return nil, err
	}

	u := &User{Email: email, PasswordHash: string(hash), CreatedAt: time.Now().UTC()}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// Login checks the password and returns the stored account.
func (s *Service) Login(ctx context.Context, c Credentials) (*User, error) {
	email := validation.NormalizeEmail(c.Email)
	if !validation.Present(email, c.Password) {
		return nil, ErrMissingCredentials
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(c.Password)) != nil {
		return nil, ErrWrongPassword
	}
	return u, nil
}
