package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/safar/safar/backend/go-services/internal/kv"
	"github.com/safar/safar/backend/go-services/internal/models"
	"github.com/safar/safar/backend/go-services/internal/oidc"
	"github.com/safar/safar/backend/go-services/pkg/logger"
)

// SessionKey is the backend key holding the provider's current session.
const SessionKey = "auth.session"

var ErrNoSession = errors.New("no active session")

// LocalProvider signs users in from verified ID tokens and keeps the session
// under SessionKey in the local backend. Listeners are invoked synchronously,
// outside the provider's lock, so they may call back into the provider.
type LocalProvider struct {
	backend  kv.Backend
	verifier oidc.TokenVerifier
	ttl      time.Duration
	now      func() time.Time

	mu        sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64
}

type ProviderOption func(*LocalProvider)

// WithSessionTTL bounds sessions whose token carries no usable expiry.
func WithSessionTTL(d time.Duration) ProviderOption {
	return func(p *LocalProvider) { p.ttl = d }
}

func WithClock(now func() time.Time) ProviderOption {
	return func(p *LocalProvider) { p.now = now }
}

func NewLocalProvider(b kv.Backend, v oidc.TokenVerifier, opts ...ProviderOption) *LocalProvider {
	p := &LocalProvider{
		backend:   b,
		verifier:  v,
		ttl:       time.Hour,
		now:       time.Now,
		listeners: map[uint64]Listener{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type idClaims struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
	Exp               int64  `json:"exp"`
}

// SignInWithIDToken verifies raw, stores the resulting session and emits SIGNED_IN.
func (p *LocalProvider) SignInWithIDToken(ctx context.Context, raw string) (*Session, error) {
	if p.verifier == nil {
		return nil, errors.New("no token verifier configured")
	}
	tok, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	var c idClaims
	if err := tok.Claims(&c); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if c.Sub == "" {
		return nil, errors.New("id token has no subject")
	}
	now := p.now().UTC()
	exp := now.Add(p.ttl)
	if c.Exp > 0 {
		exp = time.Unix(c.Exp, 0).UTC()
	}
	username := c.PreferredUsername
	if username == "" {
		username = c.Name
	}
	s := &Session{
		AccessToken: raw,
		ExpiresAt:   exp,
		User: &models.User{
			ID:        c.Sub,
			Email:     c.Email,
			Username:  username,
			FullName:  c.Name,
			AvatarURL: c.Picture,
			CreatedAt: now,
		},
	}
	if err := p.save(ctx, s); err != nil {
		return nil, err
	}
	logger.Infof("auth: signed in user %s", c.Sub)
	p.emit(ctx, EventSignedIn, s)
	return s, nil
}

// Refresh extends the current session by the provider TTL and emits TOKEN_REFRESHED.
func (p *LocalProvider) Refresh(ctx context.Context) (*Session, error) {
	s, err := p.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNoSession
	}
	s.ExpiresAt = p.now().UTC().Add(p.ttl)
	if err := p.save(ctx, s); err != nil {
		return nil, err
	}
	p.emit(ctx, EventTokenRefreshed, s)
	return s, nil
}

// GetSession returns the stored session, or nil when absent or expired.
func (p *LocalProvider) GetSession(ctx context.Context) (*Session, error) {
	raw, ok, err := p.backend.GetItem(ctx, SessionKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	// expired sessions are treated as missing
	if p.now().UTC().After(s.ExpiresAt) {
		_ = p.backend.RemoveItem(ctx, SessionKey)
		return nil, nil
	}
	if s.User == nil || s.User.ID == "" {
		return nil, nil
	}
	return &s, nil
}

// SignOut removes the session and emits SIGNED_OUT.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	if err := p.backend.RemoveItem(ctx, SessionKey); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	p.emit(ctx, EventSignedOut, nil)
	return nil
}

func (p *LocalProvider) save(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := p.backend.SetItem(ctx, SessionKey, string(b)); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

type subscription struct {
	once sync.Once
	fn   func()
}

func (s *subscription) Unsubscribe() { s.once.Do(s.fn) }

func (p *LocalProvider) OnAuthStateChange(l Listener) Subscription {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.mu.Unlock()
	return &subscription{fn: func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}}
}

// Listeners returns the number of active subscriptions.
func (p *LocalProvider) Listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

func (p *LocalProvider) emit(ctx context.Context, e Event, s *Session) {
	p.mu.Lock()
	ls := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		ls = append(ls, l)
	}
	p.mu.Unlock()
	for _, l := range ls {
		l(ctx, e, s)
	}
}
