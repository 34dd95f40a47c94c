// Package auth holds the auth-provider contract the session reconciler
// consumes, plus a provider that keeps its session in the local backend.
package auth

import (
	"context"
	"time"

	"github.com/safar/safar/backend/go-services/internal/models"
)

// Event names an auth-state change.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
	EventUserUpdated    Event = "USER_UPDATED"
)

// Session is a real session issued by the provider.
type Session struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

// Listener receives auth-state changes. session is nil when signed out.
type Listener func(ctx context.Context, event Event, session *Session)

// Subscription is released with Unsubscribe; releasing twice is safe.
type Subscription interface {
	Unsubscribe()
}

// Provider is the external auth provider.
type Provider interface {
	// GetSession returns the current session, or nil when there is none.
	GetSession(ctx context.Context) (*Session, error)
	OnAuthStateChange(l Listener) Subscription
	SignOut(ctx context.Context) error
}
