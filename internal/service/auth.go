// Package service provides the business logic of the development server:
// accounts with bearer tokens, and per-user categories with images.
// Persistence is delegated to repository interfaces.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/GophShelf/internal/models"
	"github.com/atinyakov/GophShelf/internal/repository"
)

// AuthRepository stores accounts.
type AuthRepository interface {
	CreateUser(ctx context.Context, u repository.User) error
	UserByEmail(ctx context.Context, email string) (repository.User, error)
	UserByID(ctx context.Context, id string) (repository.User, error)
}

const minPasswordLen = 6

// Service implements signup, login and token verification.
type Service struct {
	repo   AuthRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService returns a service signing tokens with secret, valid for
// ttl. An empty secret is replaced with a random one, so tokens do not
// survive a restart.
func NewAuthService(repo AuthRepository, secret []byte, ttl time.Duration) *Service {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
	}
	return &Service{repo: repo, secret: secret, ttl: ttl, now: time.Now}
}

// Signup creates an account and returns a token for it.
func (s *Service) Signup(ctx context.Context, name, email, password string) (string, models.UserProfile, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)

	fields := fieldErrors{}
	if name == "" {
		fields.add("name", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		fields.add("email", "must be a valid email address")
	}
	if len(password) < minPasswordLen {
		fields.add("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	if err := fields.err(); err != nil {
		return "", models.UserProfile{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", models.UserProfile{}, fmt.Errorf("hash password: %w", err)
	}
	u := repository.User{
		UserProfile:  models.UserProfile{ID: uuid.NewString(), Name: name, Email: email},
		PasswordHash: hash,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return "", models.UserProfile{}, ErrUserExists
		}
		return "", models.UserProfile{}, err
	}

	token, err := s.issue(u.ID)
	if err != nil {
		return "", models.UserProfile{}, err
	}
	return token, u.UserProfile, nil
}

// Login checks email and password and returns a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (string, models.UserProfile, error) {
	u, err := s.repo.UserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", models.UserProfile{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", models.UserProfile{}, err
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return "", models.UserProfile{}, ErrInvalidCredentials
	}

	token, err := s.issue(u.ID)
	if err != nil {
		return "", models.UserProfile{}, err
	}
	return token, u.UserProfile, nil
}

// Verify returns the user id a valid token was issued to.
func (s *Service) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Profile returns the account with id.
func (s *Service) Profile(ctx context.Context, userID string) (models.UserProfile, error) {
	u, err := s.repo.UserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		// token outlived its account (server restarted with a fixed secret)
		return models.UserProfile{}, ErrInvalidToken
	}
	if err != nil {
		return models.UserProfile{}, err
	}
	return u.UserProfile, nil
}

func (s *Service) issue(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
