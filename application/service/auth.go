package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/account"
)

// MinPasswordLength is the shortest accepted password, in runes.
const MinPasswordLength = 8

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID int64
	Role   account.Role
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool { return a.Role == account.RoleAdmin }

// Claims are the JWT claims issued by Auth.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Actor returns the caller encoded in the claims.
func (c Claims) Actor() (Actor, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: bad subject", domain.ErrUnauthorized)
	}
	return Actor{UserID: id, Role: account.Role(c.Role)}, nil
}

// RegisterParams are the inputs of Register.
type RegisterParams struct {
	Email    string
	Password string
	FullName string
	Role     string
}

// Session is a user with a freshly issued token.
type Session struct {
	User      account.User
	Token     string
	ExpiresAt time.Time
}

// AuthOption configures Auth.
type AuthOption func(*Auth)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) AuthOption {
	return func(a *Auth) { a.cost = cost }
}

// WithClock overrides the time source used for token timestamps.
func WithClock(now func() time.Time) AuthOption {
	return func(a *Auth) { a.now = now }
}

// Auth registers users, checks passwords and issues tokens.
type Auth struct {
	users    account.UserStore
	profiles account.ProfileStore
	secret   []byte
	ttl      time.Duration
	cost     int
	now      func() time.Time
	logger   *slog.Logger
}

// NewAuth creates an Auth service.
func NewAuth(users account.UserStore, profiles account.ProfileStore, secret string, ttl time.Duration, logger *slog.Logger, opts ...AuthOption) *Auth {
	a := &Auth{
		users:    users,
		profiles: profiles,
		secret:   []byte(secret),
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register creates a user and an empty public profile, then signs them in.
// Self-registration as admin is refused.
func (a *Auth) Register(ctx context.Context, p RegisterParams) (Session, error) {
	role, err := account.ParseRole(p.Role)
	if err != nil {
		return Session{}, err
	}
	if role == account.RoleAdmin {
		return Session{}, fmt.Errorf("%w: admin accounts cannot self-register", domain.ErrForbidden)
	}
	if utf8.RuneCountInString(p.Password) < MinPasswordLength {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), a.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := account.NewUser(p.Email, string(hash), p.FullName, role)
	if err != nil {
		return Session{}, err
	}
	u, err = a.users.Save(ctx, u)
	if err != nil {
		return Session{}, fmt.Errorf("save user: %w", err)
	}
	if _, err := a.profiles.Save(ctx, account.NewProfile(u.ID())); err != nil {
		return Session{}, fmt.Errorf("create profile: %w", err)
	}

	a.logger.Info("user registered", slog.Int64("user_id", u.ID()), slog.String("role", string(role)))
	return a.issue(u)
}

// Login checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (a *Auth) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := a.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash()), []byte(password)); err != nil {
		return Session{}, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
	}
	return a.issue(u)
}

// Authenticate validates a token and returns its caller.
func (a *Auth) Authenticate(token string) (Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	return claims.Actor()
}

// Me returns the caller's user.
func (a *Auth) Me(ctx context.Context, actor Actor) (account.User, error) {
	return a.users.Get(ctx, actor.UserID)
}

func (a *Auth) issue(u account.User) (Session, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	claims := Claims{
		Role: string(u.Role()),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID(), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{User: u, Token: signed, ExpiresAt: expires}, nil
}
