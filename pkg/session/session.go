package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harrisonrobin/applytrack/pkg/config"
	"github.com/harrisonrobin/applytrack/pkg/supabase"
	"golang.org/x/oauth2"
)

const sessionFile = "session.json"

var (
	ErrNotLoggedIn    = errors.New("not logged in, run `applytrack login` first")
	ErrSessionExpired = errors.New("session expired, run `applytrack login` again")
)

// Authenticator is the auth backend. *supabase.Client implements it.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*supabase.TokenResponse, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
}

// Session is the signed-in user plus the tokens that prove it.
type Session struct {
	Token *oauth2.Token `json:"token"`
	User  supabase.User `json:"user"`
}

// Manager owns the session file. Callers hold a Manager instead of reading
// shared state, and go through SignIn, Current, Refresh and Clear.
type Manager struct {
	auth Authenticator
	path string
	now  func() time.Time
	log  *log.Logger
}

func DefaultPath() (string, error) {
	dir, err := config.GetXdgHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sessionFile), nil
}

func NewManager(auth Authenticator, path string, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{auth: auth, path: path, now: time.Now, log: logger}
}

// SignIn authenticates with email and password and stores the new session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	resp, err := m.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s := &Session{Token: resp.Token(m.now()), User: resp.User}
	if err := m.save(s); err != nil {
		return nil, err
	}
	m.log.Info("signed in", "email", s.User.Email)
	return s, nil
}

// Current returns the stored session, refreshing the access token through an
// oauth2 token source when it has expired.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	s, err := m.load()
	if err != nil {
		return nil, err
	}
	if s.Token.Valid() {
		return s, nil
	}
	if s.Token.RefreshToken == "" {
		return nil, ErrSessionExpired
	}

	r := &refresher{ctx: ctx, m: m, refreshToken: s.Token.RefreshToken, user: s.User}
	tok, err := oauth2.ReuseTokenSource(s.Token, r).Token()
	if err != nil {
		return nil, m.expire(err)
	}
	s = &Session{Token: tok, User: r.user}
	if err := m.save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh trades the refresh token for a new access token regardless of expiry.
func (m *Manager) Refresh(ctx context.Context) (*Session, error) {
	s, err := m.load()
	if err != nil {
		return nil, err
	}
	if s.Token.RefreshToken == "" {
		return nil, ErrSessionExpired
	}
	resp, err := m.auth.Refresh(ctx, s.Token.RefreshToken)
	if err != nil {
		return nil, m.expire(err)
	}
	s = &Session{Token: resp.Token(m.now()), User: resp.User}
	if err := m.save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Clear signs out remotely when possible and always removes the local session.
func (m *Manager) Clear(ctx context.Context) error {
	s, err := m.load()
	if errors.Is(err, ErrNotLoggedIn) {
		return nil
	}
	if err == nil && s.Token.AccessToken != "" {
		if err := m.auth.SignOut(ctx, s.Token.AccessToken); err != nil {
			m.log.Warn("remote sign out failed, removing local session anyway", "err", err)
		}
	}
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Verify checks an access token against the auth server and returns its user.
func (m *Manager) Verify(ctx context.Context, accessToken string) (*supabase.User, error) {
	return m.auth.GetUser(ctx, accessToken)
}

// expire drops the local session when the server rejected the refresh token.
func (m *Manager) expire(err error) error {
	var authErr *supabase.Error
	if errors.As(err, &authErr) && authErr.StatusCode >= 400 && authErr.StatusCode < 500 {
		_ = os.Remove(m.path)
		return fmt.Errorf("%w: %s", ErrSessionExpired, authErr.Message)
	}
	return err
}

func (m *Manager) load() (*Session, error) {
	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}
	defer f.Close()

	var s Session
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode session from file %s: %w", m.path, err)
	}
	if s.Token == nil || s.Token.AccessToken == "" {
		return nil, ErrNotLoggedIn
	}
	return &s, nil
}

func (m *Manager) save(s *Session) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	f, err := os.OpenFile(m.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to store session in %s: %w", m.path, err)
	}
	if err := json.NewEncoder(f).Encode(s); err != nil {
		f.Close()
		return fmt.Errorf("unable to store session in %s: %w", m.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to store session in %s: %w", m.path, err)
	}
	return nil
}

// refresher is the oauth2.TokenSource behind Current. GoTrue wants JSON for
// refresh grants, which oauth2.Config cannot send.
type refresher struct {
	ctx          context.Context
	m            *Manager
	refreshToken string
	user         supabase.User
}

func (r *refresher) Token() (*oauth2.Token, error) {
	resp, err := r.m.auth.Refresh(r.ctx, r.refreshToken)
	if err != nil {
		return nil, err
	}
	if resp.User.ID != "" {
		r.user = resp.User
	}
	return resp.Token(r.m.now()), nil
}
