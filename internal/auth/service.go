// Package auth registers users, checks their credentials and issues the
// application bearer tokens that protect the /rooms routes.
package auth

import (
	"callgate/backend/internal/apperr"
	"callgate/backend/internal/models"
	"callgate/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "callgate-backend"

// UserStore is the part of the store the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
}

// Claims is the payload of a bearer token.
type Claims struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Result is returned by Register and Login.
type Result struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Service issues and verifies bearer tokens.
type Service struct {
	store      UserStore
	secret     []byte
	ttl        time.Duration
	bcryptCost int
	now        func() time.Time

	// dummyHash is compared against when the username is unknown so that both
	// login failure paths spend one bcrypt comparison.
	dummyHash []byte
}

// NewService creates an auth service; secret, ttl and cost come from config.
func NewService(store UserStore, secret string, ttl time.Duration, bcryptCost int) *Service {
	dummy, err := bcrypt.GenerateFromPassword([]byte("callgate-dummy-password"), bcryptCost)
	if err != nil {
		panic(fmt.Sprintf("auth: invalid bcrypt cost %d: %v", bcryptCost, err))
	}
	return &Service{
		store:      store,
		secret:     []byte(secret),
		ttl:        ttl,
		bcryptCost: bcryptCost,
		now:        time.Now,
		dummyHash:  dummy,
	}
}

// SetClock replaces the time source used for issuing and validating tokens.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Register creates a user and returns a token for it.
func (s *Service) Register(ctx context.Context, username, email, password string) (*Result, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, apperr.BadRequest("Username, email and password are required")
	}
	if !strings.Contains(email, "@") {
		return nil, apperr.BadRequest("Invalid email address")
	}
	if utf8.RuneCountInString(username) > models.MaxUsernameLen {
		return nil, apperr.BadRequest(fmt.Sprintf("Username must be at most %d characters", models.MaxUsernameLen))
	}
	if utf8.RuneCountInString(email) > models.MaxEmailLen {
		return nil, apperr.BadRequest(fmt.Sprintf("Email must be at most %d characters", models.MaxEmailLen))
	}

	exists, err := s.store.UserExists(ctx, username, email)
	if err != nil {
		return nil, apperr.Internal("Registration failed", fmt.Errorf("check existing user: %w", err))
	}
	if exists {
		return nil, apperr.Conflict("Username or email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperr.BadRequest("Password is too long")
		}
		return nil, apperr.Internal("Registration failed", fmt.Errorf("hash password: %w", err))
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.Conflict("Username or email already exists")
		}
		return nil, apperr.Internal("Registration failed", fmt.Errorf("create user: %w", err))
	}

	return s.issue(user)
}

// Login checks the credentials and returns a fresh token.
func (s *Service) Login(ctx context.Context, username, password string) (*Result, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Internal("Login failed", fmt.Errorf("find user: %w", err))
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	return s.issue(user)
}

// Verify parses the token and returns the user it was issued to.
func (s *Service) Verify(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.ParseToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Unauthorized("Invalid token")
		}
		return nil, apperr.Internal("Failed to verify token", fmt.Errorf("find user %d: %w", claims.UserID, err))
	}
	return user, nil
}

// ParseToken validates signature, algorithm, issuer and expiry without touching the store.
func (s *Service) ParseToken(token string) (*Claims, error) {
	if token == "" {
		return nil, apperr.Unauthorized("No token provided")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized("Token expired")
		}
		return nil, apperr.Unauthorized("Invalid token")
	}
	if claims.UserID == 0 {
		return nil, apperr.Unauthorized("Invalid token")
	}
	return claims, nil
}

func (s *Service) issue(user *models.User) (*Result, error) {
	now := s.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperr.Internal("Failed to create token", err)
	}
	return &Result{Token: signed, User: user}, nil
}
