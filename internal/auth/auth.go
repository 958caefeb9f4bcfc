// Package auth issues and verifies HS256 bearer tokens for catalog
// administrators.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("insufficient role")
	ErrNoSecret           = errors.New("token secret is empty")
)

// Role orders permissions: viewer < admin < master_admin.
type Role int

const (
	RoleViewer Role = iota
	RoleAdmin
	RoleMasterAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleMasterAdmin:
		return "master_admin"
	}
	return "viewer"
}

// ParseRole accepts the String forms; an empty string is viewer.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "viewer":
		return RoleViewer, nil
	case "admin":
		return RoleAdmin, nil
	case "master_admin", "master-admin", "master":
		return RoleMasterAdmin, nil
	}
	return RoleViewer, fmt.Errorf("unknown role %q", s)
}

// User is a configured account.
type User struct {
	Email        string
	PasswordHash string // bcrypt
	Role         Role
}

// Identity is the verified subject of a token.
type Identity struct {
	Email string `json:"email"`
	Role  Role   `json:"-"`
}

// Claims is the token payload.
type Claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

// Authenticator checks passwords and signs tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	users  map[string]User
	now    func() time.Time
}

// New creates an Authenticator. Emails are matched case-insensitively.
func New(secret []byte, ttl time.Duration, users []User) (*Authenticator, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	a := &Authenticator{
		secret: secret,
		ttl:    ttl,
		users:  make(map[string]User, len(users)),
		now:    time.Now,
	}
	for _, u := range users {
		a.users[strings.ToLower(u.Email)] = u
	}
	return a, nil
}

// SetClock replaces the clock used to stamp tokens.
func (a *Authenticator) SetClock(now func() time.Time) { a.now = now }

// Login checks the password and returns a signed token.
func (a *Authenticator) Login(_ context.Context, email, password string) (string, error) {
	u, ok := a.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok || u.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.Issue(Identity{Email: u.Email, Role: u.Role})
}

// Issue signs a token for id.
func (a *Authenticator) Issue(id Identity) (string, error) {
	now := a.now()
	claims := &Claims{
		Role: id.Role.String(),
		StandardClaims: jwt.StandardClaims{
			Subject:   id.Email,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(a.ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses and validates a token.
func (a *Authenticator) Verify(token string) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	role, err := ParseRole(claims.Role)
	if err != nil || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{Email: claims.Subject, Role: role}, nil
}

// HashPassword returns a bcrypt hash for storing in config.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
