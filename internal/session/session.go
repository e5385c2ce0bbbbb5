// Package session supplies the signed-in user to the conversation view.
//
// The identity itself is owned elsewhere; this package only reads a signed
// token left behind by a login flow and exposes the user it names.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EnvToken names the environment variable that may carry a session token.
const EnvToken = "DMVIEW_SESSION"

var (
	// ErrNoSession is returned when no token is stored.
	ErrNoSession = errors.New("no session")
	// ErrInvalidUser is returned when a user lacks a username or email.
	ErrInvalidUser = errors.New("session user needs a username and an email")
)

// User is the signed-in participant.
type User struct {
	Username string
	Email    string
}

// Provider returns the current user, or nil when nobody is signed in.
type Provider interface {
	Current() *User
}

// Static is a Provider with a fixed user.
type Static struct {
	User *User
}

// Current returns the fixed user.
func (s Static) Current() *User {
	return s.User
}

// TokenProvider reads the user from a token stored on disk or in the environment.
// The token is re-read on every call so a login or logout elsewhere is observed.
type TokenProvider struct {
	path string
	cfg  *TokenConfig
	now  func() time.Time
}

// NewTokenProvider creates a provider reading the token file at path.
func NewTokenProvider(path string, cfg *TokenConfig) *TokenProvider {
	return &TokenProvider{path: path, cfg: cfg, now: time.Now}
}

// Current returns the user named by a valid token, or nil.
func (p *TokenProvider) Current() *User {
	user, err := p.Load()
	if err != nil {
		return nil
	}
	return user
}

// Load returns the user named by the stored token, or why there is none.
func (p *TokenProvider) Load() (*User, error) {
	token, err := p.readToken()
	if err != nil {
		return nil, err
	}

	claims, err := ValidateToken(p.cfg, token, p.now())
	if err != nil {
		return nil, err
	}
	return &User{Username: claims.Username, Email: claims.Email}, nil
}

func (p *TokenProvider) readToken() (string, error) {
	if token := strings.TrimSpace(os.Getenv(EnvToken)); token != "" {
		return token, nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("read session: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// Save writes a token to path with owner-only permissions.
func Save(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the token at path. A missing file is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
